package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nft-trait-shop/internal/model"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

const wallet = "WaLLet1111111111111111111111111111111111"

func newOffer(id uint64, stock int64) model.TraitOffer {
	s := stock
	return model.TraitOffer{
		ID:            id,
		Name:          "Crown",
		Category:      "Hat",
		TraitValue:    "Crown",
		StockQuantity: &s,
		IsActive:      true,
	}
}

func stock(t *testing.T, m *Memory, id uint64) int64 {
	t.Helper()
	o, ok := m.Offer(id)
	require.True(t, ok)
	require.NotNil(t, o.StockQuantity)
	return *o.StockQuantity
}

func TestReserveDecrementsStock(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))

	rec, err := m.Reserve(context.Background(), 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, model.StepReservation, rec.Step)
	assert.Equal(t, int64(2), stock(t, m, 1))
}

func TestReserveUnknownAndInactiveOffer(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	inactive := newOffer(2, 3)
	inactive.IsActive = false
	m.PutOffer(inactive)

	_, err := m.Reserve(context.Background(), 1, wallet, "Target", model.PaymentFree, 0)
	assert.ErrorIs(t, err, repository.ErrOfferNotFound)
	_, err = m.Reserve(context.Background(), 2, wallet, "Target", model.PaymentFree, 0)
	assert.ErrorIs(t, err, repository.ErrOfferInactive)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 5))

	const attempts = 40
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct wallets so only stock gates the outcome.
			w := wallet + string(rune('a'+i%26))
			_, errs[i] = m.Reserve(context.Background(), 1, w, "Target", model.PaymentFree, 0)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, repository.ErrStockDepleted)
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, int64(0), stock(t, m, 1))
}

func TestClaimLimitCountsCompletedAndPending(t *testing.T) {
	o := newOffer(1, 100)
	max := uint32(2)
	o.MaxClaimsPerWallet = &max
	m := NewMemory(10 * time.Minute)
	m.PutOffer(o)
	ctx := context.Background()

	r1, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	require.NoError(t, m.Finalize(ctx, r1.ID, "sig-1", nil))

	// One completed plus one pending reaches the cap of two.
	_, err = m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	_, err = m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	assert.ErrorIs(t, err, repository.ErrClaimLimitReached)

	// A different wallet is unaffected.
	_, err = m.Reserve(ctx, 1, "OtherWallet11111111111111111111111111111", "Target", model.PaymentFree, 0)
	assert.NoError(t, err)
}

func TestCompensateIsIdempotent(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))
	ctx := context.Background()

	rec, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), stock(t, m, 1))

	require.NoError(t, m.Compensate(ctx, rec.ID, "RESERVATION_FAILED", "cart aborted"))
	assert.Equal(t, int64(3), stock(t, m, 1))

	// Second compensation must not double-return the unit.
	require.NoError(t, m.Compensate(ctx, rec.ID, "RESERVATION_FAILED", "cart aborted"))
	assert.Equal(t, int64(3), stock(t, m, 1))

	got, ok := m.Purchase(rec.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, "RESERVATION_FAILED", *got.ErrorCode)
}

func TestCompensateNeverTouchesCompleted(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))
	ctx := context.Background()

	rec, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	require.NoError(t, m.Finalize(ctx, rec.ID, "sig-1", nil))

	require.NoError(t, m.Compensate(ctx, rec.ID, "RESERVATION_EXPIRED", "sweep"))
	assert.Equal(t, int64(2), stock(t, m, 1), "completed purchases keep their unit")
	got, _ := m.Purchase(rec.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestExpireDueReleasesPendingAndPaymentFailed(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 5))
	ctx := context.Background()

	base := time.Now().UTC()
	m.SetClock(func() time.Time { return base })

	pending, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)

	code := "PAYMENT_FAILED"
	msg := "transfer failed"
	failed, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentSOL, 100)
	require.NoError(t, err)
	require.NoError(t, m.UpdateStatus(ctx, failed.ID, model.StatusFailed, model.StepPayment, &code, &msg, nil))

	require.Equal(t, int64(3), stock(t, m, 1))

	// Inside the window nothing is released.
	n, err := m.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	m.SetClock(func() time.Time { return base.Add(11 * time.Minute) })
	n, err = m.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(5), stock(t, m, 1))

	got, _ := m.Purchase(pending.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, "RESERVATION_EXPIRED", *got.ErrorCode)

	// The payment failure keeps its original code; only stock returns.
	got, _ = m.Purchase(failed.ID)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, "PAYMENT_FAILED", *got.ErrorCode)
}

func TestLazyExpiryInsideReserve(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 1))
	ctx := context.Background()

	base := time.Now().UTC()
	m.SetClock(func() time.Time { return base })
	_, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)

	// Sold out while the first hold is live.
	_, err = m.Reserve(ctx, 1, "OtherWallet11111111111111111111111111111", "Target", model.PaymentFree, 0)
	require.ErrorIs(t, err, repository.ErrStockDepleted)

	// Once the hold lapses a new reservation reclaims the unit without
	// waiting for the background sweep.
	m.SetClock(func() time.Time { return base.Add(11 * time.Minute) })
	_, err = m.Reserve(ctx, 1, "OtherWallet11111111111111111111111111111", "Target", model.PaymentFree, 0)
	assert.NoError(t, err)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))
	ctx := context.Background()

	rec, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentSOL, 100)
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepPayment, nil, nil, nil))
	require.NoError(t, m.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepMetadata, nil, nil, nil))

	// Stepping back from metadata to validation is rejected.
	err = m.UpdateStatus(ctx, rec.ID, model.StatusPending, model.StepValidation, nil, nil, nil)
	assert.ErrorIs(t, err, repository.ErrStepBackward)

	got, _ := m.Purchase(rec.ID)
	assert.Equal(t, model.StepMetadata, got.Step)
	require.NotNil(t, got.PaymentStartedAt)
}

func TestFinalizeStampsRecord(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))
	ctx := context.Background()

	rec, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentBurn, 0)
	require.NoError(t, err)
	require.NoError(t, m.Finalize(ctx, rec.ID, "sig-xyz", []string{"M1", "M2"}))

	got, _ := m.Purchase(rec.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, model.StepCompleted, got.Step)
	require.NotNil(t, got.TxSignature)
	assert.Equal(t, "sig-xyz", *got.TxSignature)
	assert.Equal(t, uint32(2), got.NFTsBurnedCount)
	require.NotNil(t, got.CompletedAt)

	// Finalizing twice is rejected: the record left pending.
	err = m.Finalize(ctx, rec.ID, "sig-other", nil)
	assert.ErrorIs(t, err, repository.ErrStepBackward)
}

func TestReopenForRetryGuards(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))
	ctx := context.Background()

	code := "PAYMENT_FAILED"
	msg := "transfer failed"

	rec, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentSOL, 100)
	require.NoError(t, err)

	// Pending records are not retryable.
	assert.ErrorIs(t, m.ReopenForRetry(ctx, rec.ID), repository.ErrNotRetryable)

	require.NoError(t, m.UpdateStatus(ctx, rec.ID, model.StatusFailed, model.StepPayment, &code, &msg, nil))
	require.NoError(t, m.ReopenForRetry(ctx, rec.ID))

	got, _ := m.Purchase(rec.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.StepPayment, got.Step)
	assert.Nil(t, got.ErrorCode)

	// Once the sweep released the stock a retry is no longer honoured.
	require.NoError(t, m.UpdateStatus(ctx, rec.ID, model.StatusFailed, model.StepPayment, &code, &msg, nil))
	base := time.Now().UTC()
	m.SetClock(func() time.Time { return base.Add(11 * time.Minute) })
	_, err = m.ExpireDue(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, m.ReopenForRetry(ctx, rec.ID), repository.ErrNotRetryable)
}

func TestAppendLogsInOrder(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, 7, model.LogInfo, model.StepReservation, "reserved", map[string]interface{}{"trait_id": 1}))
	require.NoError(t, m.Append(ctx, 7, model.LogError, model.StepPayment, "failed", nil))

	logs := m.Logs(7)
	require.Len(t, logs, 2)
	assert.Equal(t, "reserved", logs[0].Message)
	assert.Contains(t, logs[0].Details, "trait_id")
	assert.Equal(t, model.LogError, logs[1].Level)
	assert.Empty(t, logs[1].Details)
}

func TestUnlimitedStockNeverDepletes(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(model.TraitOffer{ID: 1, Name: "Open Edition", Category: "Hat", TraitValue: "Open", IsActive: true})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := m.Reserve(ctx, 1, wallet, "Target", model.PaymentFree, 0)
		if !assert.NoError(t, err) {
			break
		}
	}
	_, ok := m.Offer(1)
	require.True(t, ok)
}

func TestReserveReturnsCopy(t *testing.T) {
	m := NewMemory(10 * time.Minute)
	m.PutOffer(newOffer(1, 3))

	rec, err := m.Reserve(context.Background(), 1, wallet, "Target", model.PaymentFree, 0)
	require.NoError(t, err)
	rec.Status = "tampered"

	got, _ := m.Purchase(rec.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, errors.Is(m.Compensate(context.Background(), 999, "X", "y"), repository.ErrPurchaseNotFound))
}
