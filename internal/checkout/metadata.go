package checkout

import (
	"context"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// applyTraits merges the purchased traits into the target NFT's
// attribute list, renders the new composite image and pushes the
// updated metadata on-chain.  This runs strictly after payment; a
// failure here is terminal-but-paid, never retried automatically, and
// the payment signature is preserved in the audit trail even though
// the records are marked failed.
func (s *Session) applyTraits(ctx context.Context, paymentSig string) (*MetadataResult, *Failure) {
	s.mu.Lock()
	records := s.records
	items := s.items
	target := s.target
	s.mu.Unlock()

	for _, rec := range records {
		if err := s.mgr.store.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepMetadata, nil, nil, nil); err != nil {
			return nil, s.failMetadata(ctx, paymentSig, err)
		}
		rec.Step = model.StepMetadata
	}

	merged := MergeAttributes(target.Attributes, items)
	image, err := s.mgr.renderer.Render(ctx, merged)
	if err != nil {
		return nil, s.failMetadata(ctx, paymentSig, err)
	}
	meta, err := s.mgr.chain.UpdateMetadata(ctx, target.Mint, merged, image, s.mgr.opts.UseNewLogo)
	if err != nil {
		return nil, s.failMetadata(ctx, paymentSig, err)
	}
	for _, rec := range records {
		s.log(ctx, rec.ID, model.LogInfo, model.StepMetadata, "metadata updated", map[string]interface{}{
			"metadata_signature": meta.Signature,
			"image_url":          meta.ImageURL,
			"metadata_url":       meta.MetadataURL,
		})
	}
	return meta, nil
}

// failMetadata marks every record failed/METADATA_FAILED.  The payment
// signature rides along in both the record details and the audit trail
// so support can reconcile the paid-but-unapplied purchase.
func (s *Session) failMetadata(ctx context.Context, paymentSig string, cause error) *Failure {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()

	code := CodeMetadataFailed
	msg := cause.Error()
	details := `{"payment_signature":"` + paymentSig + `"}`
	for _, rec := range records {
		if err := s.mgr.store.UpdateStatus(ctx, rec.ID, model.StatusFailed, model.StepMetadata, &code, &msg, &details); err != nil {
			s.log(ctx, rec.ID, model.LogWarning, model.StepMetadata, "failed to record metadata failure", map[string]interface{}{"error": err.Error()})
		}
		s.log(ctx, rec.ID, model.LogError, model.StepMetadata, "metadata update failed", map[string]interface{}{
			"error":             msg,
			"payment_signature": paymentSig,
		})
	}
	return &Failure{
		Code:      CodeMetadataFailed,
		Message:   userMessage(CodeMetadataFailed, s.graceMinutes()),
		Detail:    msg,
		Retryable: false,
	}
}
