package checkout

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/nft-trait-shop/internal/model"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// reserveAll reserves every cart item, all-or-nothing.  Items are
// reserved sequentially; on the first failure every reservation that
// already succeeded in this attempt is compensated and the attempt
// aborts with the most specific failure code, naming the item that
// failed.  Stock never stays decremented for an aborted attempt.
func (s *Session) reserveAll(ctx context.Context) ([]*model.PurchaseRecord, *Failure) {
	s.mu.Lock()
	items := s.items
	wallet := s.wallet
	targetMint := s.target.Mint
	method := s.method
	s.mu.Unlock()

	reserved := make([]*model.PurchaseRecord, 0, len(items))
	var cause error
	var failedItem string
	for i := range items {
		item := &items[i]
		var lamports uint64
		if method == model.PaymentSOL {
			lamports = item.SolPriceLamports
		}
		rec, err := s.mgr.ledger.Reserve(ctx, item.ID, wallet, targetMint, method, lamports)
		if err != nil {
			cause = err
			failedItem = item.Name
			break
		}
		s.log(ctx, rec.ID, model.LogInfo, model.StepReservation, "item reserved", map[string]interface{}{
			"trait_id":   item.ID,
			"trait_name": item.Name,
			"expires_at": rec.ReserveExpiresAt,
		})
		reserved = append(reserved, rec)
	}
	if cause == nil {
		return reserved, nil
	}

	// Compensate everything reserved in this attempt so no stock
	// decrement outlives the aborted cart.
	for _, rec := range reserved {
		if err := s.mgr.ledger.Compensate(ctx, rec.ID, CodeReservationFailed, "cart reservation aborted: "+failedItem+" unavailable"); err != nil {
			log.Printf("checkout: compensate purchase %d failed: %v", rec.ID, err)
		}
	}

	code := CodeReservationFailed
	switch {
	case errors.Is(cause, repository.ErrStockDepleted):
		code = CodeStockDepleted
	case errors.Is(cause, repository.ErrClaimLimitReached):
		code = CodeClaimLimitReached
	}
	return nil, &Failure{
		Code:        code,
		Message:     userMessage(code, s.graceMinutes()),
		Detail:      cause.Error(),
		FailedItems: []string{failedItem},
		Retryable:   code == CodeReservationFailed,
	}
}

// graceMinutes reports the grace window in whole minutes for user
// messaging.
func (s *Session) graceMinutes() int {
	return int(s.mgr.opts.Grace.Minutes())
}

// log appends an audit entry, best-effort.  A logging failure must
// never abort the orchestration, so errors only reach the process log.
func (s *Session) log(ctx context.Context, purchaseID uint64, level, step, message string, details map[string]interface{}) {
	if err := s.mgr.txlog.Append(ctx, purchaseID, level, step, message, details); err != nil {
		log.Printf("checkout: txlog append failed for purchase %d: %v", purchaseID, err)
	}
}
