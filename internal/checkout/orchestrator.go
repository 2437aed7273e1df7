package checkout

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// Confirm drives the session through the PROCESSING pipeline:
// reserve -> pay -> apply traits -> finalize.  Reservation is
// all-or-nothing for the cart; every later step settles all records
// together.  Any step failure short-circuits the rest, marks the
// records failed with a coded reason, and surfaces a Failure to the
// caller.  A finalize failure alone never fails the checkout, since
// the purchase already succeeded on-chain.
func (s *Session) Confirm(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.phase != PhaseConfirm {
		s.mu.Unlock()
		return nil, ErrWrongPhase
	}
	if s.target == nil {
		s.mu.Unlock()
		return nil, ErrTargetRequired
	}
	s.phase = PhaseProcessing
	s.mu.Unlock()

	s.emit(model.StepReservation, "Reserving your items")
	records, fail := s.reserveAll(ctx)
	if fail != nil {
		return nil, s.settle(nil, fail)
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	return s.processFromPayment(ctx)
}

// Retry re-enters a PAYMENT_FAILED attempt at the payment step.  It is
// only honoured while every reservation in the attempt is still inside
// its grace window; otherwise the attempt is converted to
// RESERVATION_EXPIRED and the user must start over.
func (s *Session) Retry(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.phase != PhaseFailure || s.failure == nil || s.failure.Code != CodePaymentFailed {
		s.mu.Unlock()
		return nil, ErrWrongPhase
	}
	records := s.records
	now := time.Now().UTC()
	for _, rec := range records {
		if !rec.ReserveExpiresAt.After(now) {
			fail := &Failure{
				Code:    CodeReservationExpired,
				Message: userMessage(CodeReservationExpired, s.graceMinutes()),
			}
			s.failure = fail
			s.mu.Unlock()
			return nil, fail
		}
	}
	s.phase = PhaseProcessing
	s.mu.Unlock()

	for _, rec := range records {
		if err := s.mgr.store.ReopenForRetry(ctx, rec.ID); err != nil {
			fail := &Failure{
				Code:    CodeReservationExpired,
				Message: userMessage(CodeReservationExpired, s.graceMinutes()),
				Detail:  err.Error(),
			}
			return nil, s.settle(nil, fail)
		}
		rec.Status = model.StatusPending
		rec.Step = model.StepPayment
	}
	return s.processFromPayment(ctx)
}

// processFromPayment runs payment, trait application and finalization
// for the already-reserved records.
func (s *Session) processFromPayment(ctx context.Context) (*Result, error) {
	s.emit(model.StepPayment, "Processing payment")
	paymentSig, burned, fail := s.payAll(ctx)
	if fail != nil {
		return nil, s.settle(nil, fail)
	}

	s.emit(model.StepMetadata, "Applying traits and updating metadata")
	meta, fail := s.applyTraits(ctx, paymentSig)
	if fail != nil {
		return nil, s.settle(nil, fail)
	}

	s.emit(model.StepRecording, "Recording your purchase")
	s.finalizeAll(ctx, paymentSig, burned)

	result := &Result{
		Signature:   meta.Signature,
		ImageURL:    meta.ImageURL,
		MetadataURL: meta.MetadataURL,
	}
	s.emit(model.StepCompleted, "Purchase complete")
	return result, s.settle(result, nil)
}

// finalizeAll writes the payment signature and burned mint list onto
// every record and marks them completed.  Storage errors here are
// logged as warnings and otherwise ignored: the purchase already
// settled on-chain and must not be reported as failed.
func (s *Session) finalizeAll(ctx context.Context, paymentSig string, burned []string) {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()
	for _, rec := range records {
		if err := s.mgr.store.Finalize(ctx, rec.ID, paymentSig, burned); err != nil {
			log.Printf("checkout: finalize purchase %d failed (purchase succeeded on-chain): %v", rec.ID, err)
			s.log(ctx, rec.ID, model.LogWarning, model.StepRecording, "finalize failed after successful purchase", map[string]interface{}{
				"error":             err.Error(),
				"payment_signature": paymentSig,
			})
			continue
		}
		rec.Status = model.StatusCompleted
		rec.Step = model.StepCompleted
		s.log(ctx, rec.ID, model.LogInfo, model.StepCompleted, "purchase completed", map[string]interface{}{
			"payment_signature": paymentSig,
			"nfts_burned":       len(burned),
		})
	}
}

// settle records the attempt outcome on the session and returns the
// failure (or nil) for the caller's error position.
func (s *Session) settle(result *Result, fail *Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fail != nil {
		s.phase = PhaseFailure
		s.failure = fail
		return fail
	}
	s.phase = PhaseSuccess
	s.result = result
	s.failure = nil
	return nil
}

// Records exposes the attempt's purchase records for read surfaces
// (admin, history).  The slice is copied; records themselves are the
// orchestrator's working set and must not be mutated by callers.
func (s *Session) Records() []*model.PurchaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.PurchaseRecord, len(s.records))
	copy(out, s.records)
	return out
}
