package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// ErrUserRejected marks a payment failure caused by the user declining
// the wallet signature prompt.  Chain service implementations wrap the
// bridge's rejection code into this sentinel so the orchestrator can
// word the failure differently from a genuine transfer error.
var ErrUserRejected = errors.New("user rejected the signature request")

// payAll executes the payment appropriate to the session's method and
// returns the payment signature plus the mints burned, in transfer
// order.  Free carts synthesize a local marker signature and make no
// chain calls.  Burn carts transfer each selected NFT to the
// collection wallet and keep the first transfer's signature; SOL carts
// transfer the item total plus the service fee in one transaction.
// Both paid methods then transfer the fixed reimbursement fee.
//
// On any failure every record is marked failed/PAYMENT_FAILED and
// stock is deliberately NOT compensated: the reservation grace window
// stands so the user can retry without losing their items.
func (s *Session) payAll(ctx context.Context) (string, []string, *Failure) {
	s.mu.Lock()
	records := s.records
	items := s.items
	wallet := s.wallet
	method := s.method
	burnSet := s.burn
	s.mu.Unlock()
	opts := s.mgr.opts

	for _, rec := range records {
		if err := s.mgr.store.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepPayment, nil, nil, nil); err != nil {
			return "", nil, s.failPayment(ctx, model.StepPayment, fmt.Errorf("mark payment step: %w", err))
		}
		rec.Step = model.StepPayment
	}

	names := make([]string, 0, len(items))
	for i := range items {
		names = append(names, items[i].Name)
	}
	memo := "trait shop: " + strings.Join(names, ", ")

	switch method {
	case model.PaymentFree:
		// No payment call; the signature is a local marker tied to the
		// first record so the claim stays traceable.
		sig := fmt.Sprintf("free-claim-%d", records[0].ID)
		return sig, nil, nil

	case model.PaymentBurn:
		for _, rec := range records {
			if err := s.mgr.store.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepBurn, nil, nil, nil); err != nil {
				return "", nil, s.failPayment(ctx, model.StepBurn, fmt.Errorf("mark burn step: %w", err))
			}
			rec.Step = model.StepBurn
		}
		var sig string
		burned := make([]string, 0, len(burnSet))
		for i, mint := range burnSet {
			transferSig, err := s.mgr.chain.TransferNFT(ctx, wallet, mint, opts.CollectionWallet, opts.CollectionID, memo)
			if err != nil {
				return "", nil, s.failPayment(ctx, model.StepBurn, fmt.Errorf("burn transfer %d/%d (%s): %w", i+1, len(burnSet), mint, err))
			}
			if i == 0 {
				sig = transferSig
			}
			burned = append(burned, mint)
			for _, rec := range records {
				s.log(ctx, rec.ID, model.LogInfo, model.StepBurn, "burn transfer confirmed", map[string]interface{}{
					"mint":      mint,
					"signature": transferSig,
				})
			}
		}
		if _, err := s.mgr.chain.TransferSOL(ctx, wallet, opts.ReimburseWallet, opts.ReimburseFeeLamports, "trait shop reimbursement"); err != nil {
			return "", nil, s.failPayment(ctx, model.StepBurn, fmt.Errorf("reimbursement transfer: %w", err))
		}
		return sig, burned, nil

	case model.PaymentSOL:
		var total uint64
		for i := range items {
			total += items[i].SolPriceLamports
		}
		total += opts.ServiceFeeLamports
		sig, err := s.mgr.chain.TransferSOL(ctx, wallet, opts.CollectionWallet, total, memo)
		if err != nil {
			return "", nil, s.failPayment(ctx, model.StepPayment, fmt.Errorf("sol transfer of %d lamports: %w", total, err))
		}
		for _, rec := range records {
			s.log(ctx, rec.ID, model.LogInfo, model.StepPayment, "sol payment confirmed", map[string]interface{}{
				"lamports":  total,
				"signature": sig,
			})
		}
		if _, err := s.mgr.chain.TransferSOL(ctx, wallet, opts.ReimburseWallet, opts.ReimburseFeeLamports, "trait shop reimbursement"); err != nil {
			return "", nil, s.failPayment(ctx, model.StepPayment, fmt.Errorf("reimbursement transfer: %w", err))
		}
		return sig, nil, nil

	default:
		return "", nil, s.failPayment(ctx, model.StepPayment, fmt.Errorf("unknown payment method %q", method))
	}
}

// failPayment marks every record failed/PAYMENT_FAILED with the raw
// error, leaving reservations (and their stock) in place for the grace
// window.  The user-facing message distinguishes a declined signature
// prompt from other errors and quotes the remaining retry window.
func (s *Session) failPayment(ctx context.Context, step string, cause error) *Failure {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()

	code := CodePaymentFailed
	msg := cause.Error()
	for _, rec := range records {
		if err := s.mgr.store.UpdateStatus(ctx, rec.ID, model.StatusFailed, step, &code, &msg, nil); err != nil {
			s.log(ctx, rec.ID, model.LogWarning, step, "failed to record payment failure", map[string]interface{}{"error": err.Error()})
		}
		s.log(ctx, rec.ID, model.LogError, step, "payment failed", map[string]interface{}{"error": msg})
	}

	message := userMessage(CodePaymentFailed, s.graceMinutes())
	if errors.Is(cause, ErrUserRejected) {
		message = fmt.Sprintf("You declined the signature request. Your items stay reserved for %d minutes if you want to try again.", s.graceMinutes())
	}
	until := s.retryDeadline()
	return &Failure{
		Code:           CodePaymentFailed,
		Message:        message,
		Detail:         msg,
		Retryable:      true,
		RetryableUntil: until,
	}
}

// retryDeadline returns the earliest reservation expiry across the
// attempt's records, the moment after which a payment retry is no
// longer honoured.
func (s *Session) retryDeadline() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest *time.Time
	for _, rec := range s.records {
		t := rec.ReserveExpiresAt
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest
}
