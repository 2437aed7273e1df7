package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nft-trait-shop/internal/ledger"
	"github.com/iliyamo/nft-trait-shop/internal/model"
)

const (
	testWallet     = "WaLLet1111111111111111111111111111111111"
	collectionDest = "CoLLection111111111111111111111111111111"
	reimburseDest  = "ReimBurse1111111111111111111111111111111"
)

func testOffer(id uint64, name string, burn uint32, lamports uint64, stock int64) model.TraitOffer {
	s := stock
	return model.TraitOffer{
		ID:               id,
		Name:             name,
		Category:         "Hat",
		TraitValue:       name,
		BurnCost:         burn,
		SolPriceLamports: lamports,
		StockQuantity:    &s,
		IsActive:         true,
	}
}

func testTarget() model.WalletNFT {
	return model.WalletNFT{
		Mint: "TargetMint11111111111111111111111111111111",
		Name: "Member #42",
		Attributes: []model.TraitAttribute{
			{TraitType: "Background", Value: "Blue"},
		},
	}
}

func newTestRig(offers ...model.TraitOffer) (*ledger.Memory, *Manager, *fakeChain) {
	mem := ledger.NewMemory(10 * time.Minute)
	for _, o := range offers {
		mem.PutOffer(o)
	}
	fake := newFakeChain()
	mgr := NewManager(mem, mem, mem, fake, fake, Options{
		CollectionWallet:     collectionDest,
		ReimburseWallet:      reimburseDest,
		CollectionID:         "COLL",
		ServiceFeeLamports:   10_000_000,
		ReimburseFeeLamports: 50_000_000,
		Grace:                10 * time.Minute,
	})
	return mem, mgr, fake
}

func stockOf(t *testing.T, mem *ledger.Memory, id uint64) int64 {
	t.Helper()
	o, ok := mem.Offer(id)
	require.True(t, ok)
	require.NotNil(t, o.StockQuantity)
	return *o.StockQuantity
}

func failureOf(t *testing.T, err error) *Failure {
	t.Helper()
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	return fail
}

func TestFreeClaimCheckout(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Red Beanie", 0, 0, 5))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)

	// A fully free cart skips payment selection entirely.
	require.NoError(t, s.SelectTarget(testTarget()))
	assert.Equal(t, PhaseConfirm, s.Phase())

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, PhaseSuccess, s.Phase())

	// No transfers for a free claim, only render + metadata.
	assert.Empty(t, fake.callsOf("sol"))
	assert.Empty(t, fake.callsOf("nft"))
	require.Len(t, fake.callsOf("metadata"), 1)

	assert.Equal(t, int64(4), stockOf(t, mem, 1))

	recs := s.Records()
	require.Len(t, recs, 1)
	rec, ok := mem.Purchase(recs[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Equal(t, model.StepCompleted, rec.Step)
	require.NotNil(t, rec.TxSignature)
	assert.Equal(t, fmt.Sprintf("free-claim-%d", rec.ID), *rec.TxSignature)
	assert.Equal(t, uint32(0), rec.NFTsBurnedCount)
}

func TestBurnCheckout(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Gold Chain", 2, 0, 3))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentBurn))
	require.NoError(t, s.SelectBurnSet([]string{"MintA", "MintB"}))

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	nft := fake.callsOf("nft")
	require.Len(t, nft, 2)
	assert.Equal(t, "MintA", nft[0].mint)
	assert.Equal(t, "MintB", nft[1].mint)
	for _, call := range nft {
		assert.Equal(t, collectionDest, call.recipient)
		assert.Equal(t, testWallet, call.wallet)
	}

	// Fixed reimbursement after the burns.
	sol := fake.callsOf("sol")
	require.Len(t, sol, 1)
	assert.Equal(t, reimburseDest, sol[0].recipient)
	assert.Equal(t, uint64(50_000_000), sol[0].lamports)

	rec, ok := mem.Purchase(s.Records()[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Equal(t, uint32(2), rec.NFTsBurnedCount)
	assert.Equal(t, []string{"MintA", "MintB"}, rec.BurnedMints)
}

func TestSolCheckoutFeeMath(t *testing.T) {
	// 1 SOL + 0.5 SOL cart plus the 0.01 SOL service fee must move
	// exactly 1_510_000_000 lamports in a single transfer.
	mem, mgr, fake := newTestRig(
		testOffer(1, "Laser Eyes", 0, 1_000_000_000, 2),
		testOffer(2, "Halo", 0, 500_000_000, 2),
	)

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1), mustOffer(t, mem, 2)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	q, err := s.Quote()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), q.TotalLamports)
	assert.Equal(t, uint64(10_000_000), q.ServiceFeeLamports)
	assert.Equal(t, uint64(1_510_000_000), q.PayableLamports)

	_, err = s.Confirm(context.Background())
	require.NoError(t, err)

	sol := fake.callsOf("sol")
	require.Len(t, sol, 2)
	assert.Equal(t, collectionDest, sol[0].recipient)
	assert.Equal(t, uint64(1_510_000_000), sol[0].lamports)
	assert.Contains(t, sol[0].memo, "Laser Eyes")
	assert.Contains(t, sol[0].memo, "Halo")
	assert.Equal(t, reimburseDest, sol[1].recipient)
	assert.Equal(t, uint64(50_000_000), sol[1].lamports)

	assert.Equal(t, int64(1), stockOf(t, mem, 1))
	assert.Equal(t, int64(1), stockOf(t, mem, 2))
}

func TestAllOrNothingReservation(t *testing.T) {
	mem, mgr, fake := newTestRig(
		testOffer(1, "Crown", 0, 100, 5),
		testOffer(2, "Scepter", 0, 100, 0), // sold out
	)

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1), mustOffer(t, mem, 2)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	_, err = s.Confirm(context.Background())
	fail := failureOf(t, err)
	assert.Equal(t, CodeStockDepleted, fail.Code)
	assert.Equal(t, []string{"Scepter"}, fail.FailedItems)
	assert.False(t, fail.Retryable)

	// The first item's decrement must not outlive the aborted cart.
	assert.Equal(t, int64(5), stockOf(t, mem, 1))
	assert.Equal(t, PhaseFailure, s.Phase())
	assert.Empty(t, fake.allCalls())
}

func TestClaimLimitEnforced(t *testing.T) {
	offer := testOffer(1, "OG Badge", 0, 0, 100)
	max := uint32(1)
	offer.MaxClaimsPerWallet = &max
	mem, mgr, _ := newTestRig(offer)

	s1, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s1.SelectTarget(testTarget()))
	_, err = s1.Confirm(context.Background())
	require.NoError(t, err)

	s2, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s2.SelectTarget(testTarget()))
	_, err = s2.Confirm(context.Background())
	fail := failureOf(t, err)
	assert.Equal(t, CodeClaimLimitReached, fail.Code)
}

func TestPaymentFailureKeepsReservationThenRetrySucceeds(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Visor", 0, 200_000_000, 3))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	fake.setSOLErr(errors.New("blockhash expired"))
	_, err = s.Confirm(context.Background())
	fail := failureOf(t, err)
	assert.Equal(t, CodePaymentFailed, fail.Code)
	assert.True(t, fail.Retryable)
	require.NotNil(t, fail.RetryableUntil)

	// Payment failure keeps the reservation: stock stays decremented
	// and the record is failed with the retryable code.
	assert.Equal(t, int64(2), stockOf(t, mem, 1))
	rec, ok := mem.Purchase(s.Records()[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorCode)
	assert.Equal(t, "PAYMENT_FAILED", *rec.ErrorCode)

	fake.setSOLErr(nil)
	result, err := s.Retry(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, PhaseSuccess, s.Phase())

	// Retry resumes at payment: still exactly one reservation spent.
	assert.Equal(t, int64(2), stockOf(t, mem, 1))
	rec, _ = mem.Purchase(rec.ID)
	assert.Equal(t, model.StatusCompleted, rec.Status)
}

func TestUserRejectedSignatureMessage(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Visor", 0, 200_000_000, 3))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	fake.setSOLErr(fmt.Errorf("bridge /v1/transfers/sol: rejected: %w", ErrUserRejected))
	_, err = s.Confirm(context.Background())
	fail := failureOf(t, err)
	assert.Equal(t, CodePaymentFailed, fail.Code)
	assert.Contains(t, fail.Message, "declined")
	assert.True(t, fail.Retryable)
}

func TestRetryBlockedAfterGraceWindow(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Visor", 0, 200_000_000, 3))
	// Run the whole attempt on a clock 30 minutes in the past so the
	// reservation is already expired by the time of the retry.
	past := time.Now().UTC().Add(-30 * time.Minute)
	mem.SetClock(func() time.Time { return past })

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	fake.setSOLErr(errors.New("blockhash expired"))
	_, err = s.Confirm(context.Background())
	fail := failureOf(t, err)
	require.Equal(t, CodePaymentFailed, fail.Code)

	fake.setSOLErr(nil)
	_, err = s.Retry(context.Background())
	fail = failureOf(t, err)
	assert.Equal(t, CodeReservationExpired, fail.Code)
}

func TestMetadataFailurePreservesPaymentSignature(t *testing.T) {
	mem, mgr, fake := newTestRig(testOffer(1, "Visor", 0, 200_000_000, 3))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))

	fake.metaErr = errors.New("arweave upload failed")
	_, err = s.Confirm(context.Background())
	fail := failureOf(t, err)
	assert.Equal(t, CodeMetadataFailed, fail.Code)
	assert.False(t, fail.Retryable)

	recID := s.Records()[0].ID
	rec, ok := mem.Purchase(recID)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorCode)
	assert.Equal(t, "METADATA_FAILED", *rec.ErrorCode)
	require.NotNil(t, rec.ErrorDetails)
	assert.Contains(t, *rec.ErrorDetails, "payment_signature")

	// The payment signature must also survive in the audit trail.
	found := false
	for _, entry := range mem.Logs(recID) {
		if entry.Level == model.LogError && strings.Contains(entry.Details, "payment_signature") {
			found = true
		}
	}
	assert.True(t, found, "audit trail should carry the payment signature")
}

func TestProgressEventsInOrder(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Red Beanie", 0, 0, 5))

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))

	var steps []string
	s.OnProgress(func(ev ProgressEvent) { steps = append(steps, ev.Step) })

	_, err = s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		model.StepReservation,
		model.StepPayment,
		model.StepMetadata,
		model.StepRecording,
		model.StepCompleted,
	}, steps)
}

// mustOffer reads an offer back from the ledger so tests always carry
// the stored copy into the cart snapshot.
func mustOffer(t *testing.T, mem *ledger.Memory, id uint64) model.TraitOffer {
	t.Helper()
	o, ok := mem.Offer(id)
	require.True(t, ok)
	return o
}
