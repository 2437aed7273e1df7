package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// StockLedger is the only component allowed to mutate stock_quantity
// and per-wallet claim counts.  Every reservation runs inside a single
// database transaction with the offer row locked, which closes the
// check-then-act race between concurrent buyers: of N wallets racing
// for the last unit, exactly one decrement commits and the rest fail
// with ErrStockDepleted.
//
// Reservations that never reach payment within the grace window are
// compensated: stock is restored once and the record is marked
// failed/RESERVATION_EXPIRED.  Expiry runs both lazily inside Reserve
// (so a busy offer self-heals) and from the background sweeper in
// cmd/server (so an idle one does too).
type StockLedger struct {
	db    *sql.DB
	grace time.Duration // reservation grace window
}

// NewStockLedger returns a StockLedger bound to the provided database.
// grace is the reservation validity window; the spec'd default is ten
// minutes.
func NewStockLedger(db *sql.DB, grace time.Duration) *StockLedger {
	return &StockLedger{db: db, grace: grace}
}

// Grace returns the configured reservation grace window.
func (l *StockLedger) Grace() time.Duration { return l.grace }

// Reserve atomically acquires one unit of the offer for the wallet.
// Within one transaction it expires due holds on the offer, locks the
// offer row, enforces the active flag, the per-wallet claim limit and
// the stock floor, decrements finite stock and inserts a pending
// purchase record at the reservation step.  On any check failure the
// transaction is rolled back and no mutation persists.
//
// Returned errors: ErrOfferNotFound, ErrOfferInactive, ErrStockDepleted,
// ErrClaimLimitReached, or a raw database error (surfaced upstream as a
// generic reservation failure).
func (l *StockLedger) Reserve(ctx context.Context, offerID uint64, wallet, targetMint, method string, lamports uint64) (*model.PurchaseRecord, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Return stock held by reservations on this offer that ran out the
	// clock, before checking availability.
	if err := l.expireForOfferTx(ctx, tx, offerID); err != nil {
		return nil, err
	}

	// Lock the offer row for the remainder of the transaction.  This is
	// the serialization point for concurrent reservations of the same
	// offer.
	const sel = `SELECT is_active, stock_quantity, max_claims_per_wallet
                 FROM trait_offers WHERE id = ? FOR UPDATE`
	var active bool
	var stock sql.NullInt64
	var maxClaims sql.NullInt64
	if err := tx.QueryRowContext(ctx, sel, offerID).Scan(&active, &stock, &maxClaims); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if !active {
		return nil, ErrOfferInactive
	}

	// Claim limit counts the wallet's completed acquisitions plus its
	// live pending reservations for this offer.  Expired pendings were
	// just swept above.
	if maxClaims.Valid {
		const countQ = `SELECT COUNT(*) FROM purchases
                        WHERE trait_id = ? AND wallet_address = ?
                          AND (status = 'completed'
                               OR (status = 'pending' AND reserve_expires_at > UTC_TIMESTAMP()))`
		var claims int64
		if err := tx.QueryRowContext(ctx, countQ, offerID, wallet).Scan(&claims); err != nil {
			return nil, err
		}
		if claims >= maxClaims.Int64 {
			return nil, ErrClaimLimitReached
		}
	}

	// Decrement finite stock with a floor check in the WHERE clause so
	// the counter can never go negative even if the lock discipline is
	// ever weakened.
	if stock.Valid {
		const dec = `UPDATE trait_offers SET stock_quantity = stock_quantity - 1
                     WHERE id = ? AND stock_quantity > 0`
		result, err := tx.ExecContext(ctx, dec, offerID)
		if err != nil {
			return nil, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrStockDepleted
		}
	}

	expiresAt := time.Now().UTC().Add(l.grace)
	const ins = `INSERT INTO purchases
                 (trait_id, wallet_address, target_mint, payment_method,
                  sol_lamports, status, transaction_step, reserve_expires_at)
                 VALUES (?, ?, ?, ?, ?, 'pending', 'reservation', ?)`
	result, err := tx.ExecContext(ctx, ins,
		offerID, wallet, targetMint, method, lamports,
		expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	rec := &model.PurchaseRecord{
		ID:               uint64(id),
		TraitID:          offerID,
		WalletAddress:    wallet,
		TargetMint:       targetMint,
		PaymentMethod:    method,
		SolLamports:      lamports,
		Status:           model.StatusPending,
		Step:             model.StepReservation,
		ReserveExpiresAt: expiresAt,
		CreatedAt:        time.Now().UTC(),
	}
	return rec, nil
}

// Compensate restores stock and claim count for a reservation that
// will not complete.  It is idempotent: stock is returned at most once
// per purchase (guarded by the stock_released flag), and repeated
// calls after the first are no-ops.  A record that already completed
// is never touched.  When the record is still pending it is marked
// failed with the supplied code and message; a record that already
// failed (e.g. PAYMENT_FAILED) keeps its original code and only has
// its stock returned.
func (l *StockLedger) Compensate(ctx context.Context, purchaseID uint64, code, message string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT trait_id, status, stock_released
                 FROM purchases WHERE id = ? FOR UPDATE`
	var traitID uint64
	var status string
	var released bool
	if err := tx.QueryRowContext(ctx, sel, purchaseID).Scan(&traitID, &status, &released); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPurchaseNotFound
		}
		return err
	}
	if status == model.StatusCompleted || released {
		// Nothing to return; commit the empty transaction so the row
		// lock is dropped promptly.
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	}

	if status == model.StatusPending {
		const fail = `UPDATE purchases
                      SET status = 'failed', error_code = ?, error_message = ?, stock_released = 1
                      WHERE id = ?`
		if _, err := tx.ExecContext(ctx, fail, code, message, purchaseID); err != nil {
			return err
		}
	} else {
		const release = `UPDATE purchases SET stock_released = 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, release, purchaseID); err != nil {
			return err
		}
	}

	// Finite stock only; NULL stock means unlimited and needs no return.
	const restore = `UPDATE trait_offers SET stock_quantity = stock_quantity + 1
                     WHERE id = ? AND stock_quantity IS NOT NULL`
	if _, err := tx.ExecContext(ctx, restore, traitID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExpireDue sweeps the whole purchases table for reservations past
// their grace window and compensates each one.  It covers both pending
// records that never reached payment and failed payment attempts whose
// retry window ran out while still holding stock.  Returns the number
// of records compensated.
func (l *StockLedger) ExpireDue(ctx context.Context) (int, error) {
	const q = `SELECT id, status FROM purchases
               WHERE stock_released = 0
                 AND reserve_expires_at <= UTC_TIMESTAMP()
                 AND (status = 'pending'
                      OR (status = 'failed' AND error_code = 'PAYMENT_FAILED'))`
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return 0, err
	}
	type due struct {
		id     uint64
		status string
	}
	var dues []due
	for rows.Next() {
		var d due
		if scanErr := rows.Scan(&d.id, &d.status); scanErr != nil {
			rows.Close()
			return 0, scanErr
		}
		dues = append(dues, d)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	count := 0
	for _, d := range dues {
		if err := l.Compensate(ctx, d.id, "RESERVATION_EXPIRED", "reservation grace window elapsed"); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// expireForOfferTx compensates due reservations for a single offer
// inside an existing transaction.  Unlike ExpireDue it batches the
// stock return into one UPDATE since every row belongs to the same
// offer.
func (l *StockLedger) expireForOfferTx(ctx context.Context, tx *sql.Tx, offerID uint64) error {
	const sel = `SELECT id, status FROM purchases
                 WHERE trait_id = ? AND stock_released = 0
                   AND reserve_expires_at <= UTC_TIMESTAMP()
                   AND (status = 'pending'
                        OR (status = 'failed' AND error_code = 'PAYMENT_FAILED'))
                 FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel, offerID)
	if err != nil {
		return err
	}
	var pendingIDs, failedIDs []uint64
	for rows.Next() {
		var id uint64
		var status string
		if scanErr := rows.Scan(&id, &status); scanErr != nil {
			rows.Close()
			return scanErr
		}
		if status == model.StatusPending {
			pendingIDs = append(pendingIDs, id)
		} else {
			failedIDs = append(failedIDs, id)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	total := len(pendingIDs) + len(failedIDs)
	if total == 0 {
		return nil
	}
	for _, id := range pendingIDs {
		const fail = `UPDATE purchases
                      SET status = 'failed', error_code = 'RESERVATION_EXPIRED',
                          error_message = 'reservation grace window elapsed', stock_released = 1
                      WHERE id = ?`
		if _, err := tx.ExecContext(ctx, fail, id); err != nil {
			return err
		}
	}
	for _, id := range failedIDs {
		const release = `UPDATE purchases SET stock_released = 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, release, id); err != nil {
			return err
		}
	}
	const restore = `UPDATE trait_offers SET stock_quantity = stock_quantity + ?
                     WHERE id = ? AND stock_quantity IS NOT NULL`
	_, err = tx.ExecContext(ctx, restore, total, offerID)
	return err
}
