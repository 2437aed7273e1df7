package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nft-trait-shop/internal/ledger"
	"github.com/iliyamo/nft-trait-shop/internal/model"
)

func TestBeginRequiresItems(t *testing.T) {
	_, mgr, _ := newTestRig()
	_, err := mgr.Begin(testWallet, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBeginSnapshotsCart(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Crown", 0, 100, 5))
	items := []model.TraitOffer{mustOffer(t, mem, 1)}
	s, err := mgr.Begin(testWallet, items)
	require.NoError(t, err)

	// Mutating the caller's slice must not leak into the session.
	items[0].Name = "mutated"
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentSOL))
	q, err := s.Quote()
	require.NoError(t, err)
	assert.Equal(t, "Crown", q.Items[0].Name)
}

func TestPhaseOrderEnforced(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Crown", 0, 100, 5))
	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)

	// Payment and burn-set selection are invalid before a target.
	assert.ErrorIs(t, s.SelectPaymentMethod(model.PaymentSOL), ErrWrongPhase)
	assert.ErrorIs(t, s.SelectBurnSet([]string{"M1"}), ErrWrongPhase)
	_, err = s.Quote()
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestFreeCartSkipsPaymentSelection(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Red Beanie", 0, 0, 5))
	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	assert.Equal(t, PhaseConfirm, s.Phase())

	q, err := s.Quote()
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFree, q.PaymentMethod)
	assert.Zero(t, q.PayableLamports)
}

func TestMixedCartRequiresPaymentSelection(t *testing.T) {
	mem, mgr, _ := newTestRig(
		testOffer(1, "Red Beanie", 0, 0, 5),
		testOffer(2, "Crown", 0, 100, 5),
	)
	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1), mustOffer(t, mem, 2)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	assert.Equal(t, PhaseSelectPayment, s.Phase())
}

func TestBurnSetValidation(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Gold Chain", 2, 0, 5))
	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	target := testTarget()
	require.NoError(t, s.SelectTarget(target))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentBurn))
	assert.Equal(t, PhaseSelectBurnSet, s.Phase())

	// Wrong count, duplicates and the target itself are all rejected.
	assert.ErrorIs(t, s.SelectBurnSet([]string{"M1"}), ErrBadBurnSet)
	assert.ErrorIs(t, s.SelectBurnSet([]string{"M1", "M1"}), ErrBadBurnSet)
	assert.ErrorIs(t, s.SelectBurnSet([]string{"M1", target.Mint}), ErrBadBurnSet)
	assert.ErrorIs(t, s.SelectBurnSet([]string{"M1", "M2", "M3"}), ErrBadBurnSet)

	require.NoError(t, s.SelectBurnSet([]string{"M1", "M2"}))
	assert.Equal(t, PhaseConfirm, s.Phase())
}

func TestFreeMethodCannotBeChosenExplicitly(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Crown", 0, 100, 5))
	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	assert.ErrorIs(t, s.SelectPaymentMethod(model.PaymentFree), ErrBadPaymentMethod)
}

func TestBeginReplacesPreviousSession(t *testing.T) {
	mem, mgr, _ := newTestRig(testOffer(1, "Crown", 0, 100, 5))
	s1, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	s2, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)

	got, ok := mgr.Session(testWallet)
	require.True(t, ok)
	assert.Same(t, s2, got)
	assert.NotSame(t, s1, got)

	mgr.End(testWallet)
	_, ok = mgr.Session(testWallet)
	assert.False(t, ok)
}

func TestQuoteFeesOnlyForSol(t *testing.T) {
	mem := ledger.NewMemory(10 * time.Minute)
	mem.PutOffer(testOffer(1, "Gold Chain", 2, 0, 5))
	fake := newFakeChain()
	mgr := NewManager(mem, mem, mem, fake, fake, Options{
		ServiceFeeLamports: 10_000_000,
		Grace:              10 * time.Minute,
	})

	s, err := mgr.Begin(testWallet, []model.TraitOffer{mustOffer(t, mem, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SelectTarget(testTarget()))
	require.NoError(t, s.SelectPaymentMethod(model.PaymentBurn))
	require.NoError(t, s.SelectBurnSet([]string{"M1", "M2"}))

	q, err := s.Quote()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), q.TotalBurnCost)
	assert.Zero(t, q.ServiceFeeLamports)
	assert.Zero(t, q.PayableLamports)
}
