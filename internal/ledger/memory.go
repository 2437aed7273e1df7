// Package ledger provides an in-memory stock ledger, purchase store
// and transaction logger with the same semantics as the SQL
// implementations in internal/repository.  It backs the orchestrator
// and property tests, which need real atomicity without a database,
// and can serve as a scratch backend in local development.
package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// Memory is a mutex-guarded, map-backed twin of the SQL stock ledger
// and purchase store.  One lock covers every operation, which makes
// each method atomic exactly the way the SQL implementation's
// transactions do.
type Memory struct {
	mu        sync.Mutex
	offers    map[uint64]*model.TraitOffer
	purchases map[uint64]*purchaseState
	logs      map[uint64][]model.TransactionLogEntry
	nextID    uint64
	nextLogID uint64
	grace     time.Duration
	now       func() time.Time // injectable clock for expiry tests
}

// purchaseState pairs a record with the stock-released flag the SQL
// schema keeps in its own column.
type purchaseState struct {
	rec           model.PurchaseRecord
	stockReleased bool
}

// NewMemory returns an empty in-memory ledger with the given grace
// window.
func NewMemory(grace time.Duration) *Memory {
	return &Memory{
		offers:    make(map[uint64]*model.TraitOffer),
		purchases: make(map[uint64]*purchaseState),
		logs:      make(map[uint64][]model.TransactionLogEntry),
		grace:     grace,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the ledger's clock.  Tests use it to move time
// past the grace window without sleeping.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// PutOffer inserts or replaces an offer.
func (m *Memory) PutOffer(o model.TraitOffer) {
	m.mu.Lock()
	offer := o
	m.offers[o.ID] = &offer
	m.mu.Unlock()
}

// Offer returns a copy of the stored offer.
func (m *Memory) Offer(id uint64) (model.TraitOffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return model.TraitOffer{}, false
	}
	return *o, true
}

// Purchase returns a copy of the stored purchase record.
func (m *Memory) Purchase(id uint64) (model.PurchaseRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return model.PurchaseRecord{}, false
	}
	return p.rec, true
}

// Logs returns the audit entries appended for a purchase, in write
// order.
func (m *Memory) Logs(purchaseID uint64) []model.TransactionLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TransactionLogEntry, len(m.logs[purchaseID]))
	copy(out, m.logs[purchaseID])
	return out
}

// Reserve mirrors repository.StockLedger.Reserve: expire due holds,
// check active/claims/stock, decrement, insert a pending record.  The
// whole method runs under one lock, so concurrent reservations against
// the same offer serialize exactly as the SQL row lock serializes
// them.
func (m *Memory) Reserve(ctx context.Context, offerID uint64, wallet, targetMint, method string, lamports uint64) (*model.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireDueLocked()

	offer, ok := m.offers[offerID]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	if !offer.IsActive {
		return nil, repository.ErrOfferInactive
	}
	if offer.MaxClaimsPerWallet != nil {
		now := m.now()
		var claims uint32
		for _, p := range m.purchases {
			if p.rec.TraitID != offerID || p.rec.WalletAddress != wallet {
				continue
			}
			if p.rec.Status == model.StatusCompleted ||
				(p.rec.Status == model.StatusPending && p.rec.ReserveExpiresAt.After(now)) {
				claims++
			}
		}
		if claims >= *offer.MaxClaimsPerWallet {
			return nil, repository.ErrClaimLimitReached
		}
	}
	if offer.StockQuantity != nil {
		if *offer.StockQuantity <= 0 {
			return nil, repository.ErrStockDepleted
		}
		*offer.StockQuantity--
	}

	m.nextID++
	now := m.now()
	rec := model.PurchaseRecord{
		ID:               m.nextID,
		TraitID:          offerID,
		WalletAddress:    wallet,
		TargetMint:       targetMint,
		PaymentMethod:    method,
		SolLamports:      lamports,
		Status:           model.StatusPending,
		Step:             model.StepReservation,
		ReserveExpiresAt: now.Add(m.grace),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.purchases[rec.ID] = &purchaseState{rec: rec}
	out := rec
	return &out, nil
}

// Compensate mirrors repository.StockLedger.Compensate, including its
// idempotency: stock is returned at most once per purchase and
// completed records are never touched.
func (m *Memory) Compensate(ctx context.Context, purchaseID uint64, code, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compensateLocked(purchaseID, code, message)
}

func (m *Memory) compensateLocked(purchaseID uint64, code, message string) error {
	p, ok := m.purchases[purchaseID]
	if !ok {
		return repository.ErrPurchaseNotFound
	}
	if p.rec.Status == model.StatusCompleted || p.stockReleased {
		return nil
	}
	if p.rec.Status == model.StatusPending {
		p.rec.Status = model.StatusFailed
		p.rec.ErrorCode = &code
		p.rec.ErrorMessage = &message
	}
	p.stockReleased = true
	if offer, ok := m.offers[p.rec.TraitID]; ok && offer.StockQuantity != nil {
		*offer.StockQuantity++
	}
	p.rec.UpdatedAt = m.now()
	return nil
}

// ExpireDue compensates every reservation past its grace window,
// returning the number compensated.
func (m *Memory) ExpireDue(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireDueLocked(), nil
}

func (m *Memory) expireDueLocked() int {
	now := m.now()
	count := 0
	for id, p := range m.purchases {
		if p.stockReleased || p.rec.ReserveExpiresAt.After(now) {
			continue
		}
		pending := p.rec.Status == model.StatusPending
		paymentFailed := p.rec.Status == model.StatusFailed &&
			p.rec.ErrorCode != nil && *p.rec.ErrorCode == "PAYMENT_FAILED"
		if !pending && !paymentFailed {
			continue
		}
		_ = m.compensateLocked(id, "RESERVATION_EXPIRED", "reservation grace window elapsed")
		count++
	}
	return count
}

// UpdateStatus mirrors repository.PurchaseRepo.UpdateStatus: pending
// records only, forward-only step movement, timestamp stamping.
func (m *Memory) UpdateStatus(ctx context.Context, id uint64, status, step string, errCode, errMsg, errDetails *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return repository.ErrPurchaseNotFound
	}
	if p.rec.Status != model.StatusPending {
		return repository.ErrStepBackward
	}
	if model.StepOrdinal(step) < model.StepOrdinal(p.rec.Step) {
		return repository.ErrStepBackward
	}
	now := m.now()
	p.rec.Status = status
	p.rec.Step = step
	p.rec.ErrorCode = errCode
	p.rec.ErrorMessage = errMsg
	p.rec.ErrorDetails = errDetails
	if step == model.StepPayment && p.rec.PaymentStartedAt == nil {
		t := now
		p.rec.PaymentStartedAt = &t
	}
	if status == model.StatusCompleted {
		t := now
		p.rec.CompletedAt = &t
	}
	p.rec.UpdatedAt = now
	return nil
}

// Finalize mirrors repository.PurchaseRepo.Finalize.
func (m *Memory) Finalize(ctx context.Context, id uint64, signature string, burnedMints []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return repository.ErrPurchaseNotFound
	}
	if p.rec.Status != model.StatusPending {
		return repository.ErrStepBackward
	}
	now := m.now()
	p.rec.Status = model.StatusCompleted
	p.rec.Step = model.StepCompleted
	sig := signature
	p.rec.TxSignature = &sig
	p.rec.BurnedMints = append([]string(nil), burnedMints...)
	p.rec.NFTsBurnedCount = uint32(len(burnedMints))
	p.rec.CompletedAt = &now
	p.rec.UpdatedAt = now
	return nil
}

// ReopenForRetry mirrors repository.PurchaseRepo.ReopenForRetry: only
// an unexpired PAYMENT_FAILED record still holding stock may re-enter
// the pipeline at the payment step.
func (m *Memory) ReopenForRetry(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return repository.ErrPurchaseNotFound
	}
	retryable := p.rec.Status == model.StatusFailed &&
		p.rec.ErrorCode != nil && *p.rec.ErrorCode == "PAYMENT_FAILED" &&
		!p.stockReleased &&
		p.rec.ReserveExpiresAt.After(m.now())
	if !retryable {
		return repository.ErrNotRetryable
	}
	p.rec.Status = model.StatusPending
	p.rec.Step = model.StepPayment
	p.rec.ErrorCode = nil
	p.rec.ErrorMessage = nil
	p.rec.ErrorDetails = nil
	p.rec.UpdatedAt = m.now()
	return nil
}

// Append mirrors repository.TxLogRepo.Append.
func (m *Memory) Append(ctx context.Context, purchaseID uint64, level, step, message string, details map[string]interface{}) error {
	var detailsJSON string
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = string(b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	m.logs[purchaseID] = append(m.logs[purchaseID], model.TransactionLogEntry{
		ID:         m.nextLogID,
		PurchaseID: purchaseID,
		Level:      level,
		Step:       step,
		Message:    message,
		Details:    detailsJSON,
		CreatedAt:  m.now(),
	})
	return nil
}
