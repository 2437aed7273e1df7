package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// PurchaseRepo provides read access and the post-reservation mutation
// entrypoints for purchase records.  Creation happens exclusively in
// the StockLedger's reservation transaction; after that, UpdateStatus,
// Finalize and ReopenForRetry are the only writers.  The step-forward
// invariant is enforced in SQL via a FIELD() ordinal comparison rather
// than trusting the single-writer property alone.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

const purchaseColumns = `id, trait_id, wallet_address, target_mint, payment_method,
       sol_lamports, nfts_burned_count, burned_nft_mints, status, transaction_step,
       error_code, error_message, error_details, tx_signature,
       reserve_expires_at, created_at, payment_started_at, completed_at, updated_at`

func scanPurchase(row interface{ Scan(...interface{}) error }) (*model.PurchaseRecord, error) {
	var p model.PurchaseRecord
	var burned sql.NullString
	var errCode, errMsg, errDetails, sig sql.NullString
	var payStarted, completed sql.NullTime
	if err := row.Scan(
		&p.ID, &p.TraitID, &p.WalletAddress, &p.TargetMint, &p.PaymentMethod,
		&p.SolLamports, &p.NFTsBurnedCount, &burned, &p.Status, &p.Step,
		&errCode, &errMsg, &errDetails, &sig,
		&p.ReserveExpiresAt, &p.CreatedAt, &payStarted, &completed, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if burned.Valid && burned.String != "" {
		if err := json.Unmarshal([]byte(burned.String), &p.BurnedMints); err != nil {
			return nil, err
		}
	}
	if errCode.Valid {
		v := errCode.String
		p.ErrorCode = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		p.ErrorMessage = &v
	}
	if errDetails.Valid {
		v := errDetails.String
		p.ErrorDetails = &v
	}
	if sig.Valid {
		v := sig.String
		p.TxSignature = &v
	}
	if payStarted.Valid {
		t := payStarted.Time
		p.PaymentStartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

// GetByID returns a single purchase record.  ErrPurchaseNotFound is
// returned when no row exists.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (*model.PurchaseRecord, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`
	p, err := scanPurchase(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	return p, err
}

// ListByWallet returns the wallet's purchase history, newest first.
func (r *PurchaseRepo) ListByWallet(ctx context.Context, wallet string, limit int) ([]model.PurchaseRecord, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases
               WHERE wallet_address = ? ORDER BY created_at DESC LIMIT ?`
	return r.list(ctx, q, wallet, limit)
}

// ListRecent returns the most recent purchases across all wallets for
// the admin surface.
func (r *PurchaseRepo) ListRecent(ctx context.Context, limit int) ([]model.PurchaseRecord, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases
               ORDER BY created_at DESC LIMIT ?`
	return r.list(ctx, q, limit)
}

func (r *PurchaseRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.PurchaseRecord, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// UpdateStatus moves a pending record to a new status and step,
// optionally recording error fields.  It stamps payment_started_at the
// first time the payment step is entered and completed_at when status
// becomes completed.  The WHERE clause rejects writes against records
// that already settled and writes that would move the step backward;
// such writes return ErrStepBackward.
func (r *PurchaseRepo) UpdateStatus(ctx context.Context, id uint64, status, step string, errCode, errMsg, errDetails *string) error {
	q := `UPDATE purchases
          SET status = ?, transaction_step = ?,
              error_code = ?, error_message = ?, error_details = ?,
              payment_started_at = CASE WHEN ? = 'payment' AND payment_started_at IS NULL
                                        THEN UTC_TIMESTAMP() ELSE payment_started_at END,
              completed_at = CASE WHEN ? = 'completed' THEN UTC_TIMESTAMP() ELSE completed_at END
          WHERE id = ? AND status = 'pending'
            AND FIELD(transaction_step, 'unknown','reservation','validation','payment','burn','metadata','recording','completed')
             <= FIELD(?, 'unknown','reservation','validation','payment','burn','metadata','recording','completed')`
	result, err := r.db.ExecContext(ctx, q,
		status, step, nullable(errCode), nullable(errMsg), nullable(errDetails),
		step, status, id, step,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStepBackward
	}
	return nil
}

// Finalize writes the payment signature and burned mint list onto a
// record and marks it completed in a single statement.  Like
// UpdateStatus it only applies to records still pending.
func (r *PurchaseRepo) Finalize(ctx context.Context, id uint64, signature string, burnedMints []string) error {
	var burnedJSON interface{}
	if len(burnedMints) > 0 {
		b, err := json.Marshal(burnedMints)
		if err != nil {
			return err
		}
		burnedJSON = string(b)
	}
	const q = `UPDATE purchases
               SET status = 'completed', transaction_step = 'completed',
                   tx_signature = ?, burned_nft_mints = ?, nfts_burned_count = ?,
                   completed_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, q, signature, burnedJSON, len(burnedMints), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStepBackward
	}
	return nil
}

// ReopenForRetry flips a PAYMENT_FAILED record back to pending at the
// payment step so a retry can re-enter the pipeline without a new
// reservation.  This is the one sanctioned exception to the monotonic
// status transition, and it is only permitted while the reservation
// grace window still holds and the stock has not been returned.
// Returns ErrNotRetryable otherwise.
func (r *PurchaseRepo) ReopenForRetry(ctx context.Context, id uint64) error {
	const q = `UPDATE purchases
               SET status = 'pending', transaction_step = 'payment',
                   error_code = NULL, error_message = NULL, error_details = NULL
               WHERE id = ? AND status = 'failed' AND error_code = 'PAYMENT_FAILED'
                 AND stock_released = 0
                 AND reserve_expires_at > UTC_TIMESTAMP()`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotRetryable
	}
	return nil
}

// nullable converts a *string to the driver value for a nullable column.
func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
