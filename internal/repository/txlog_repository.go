package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// TxLogRepo provides the append-only transaction audit trail.  Entries
// are never updated or deleted once written; there is deliberately no
// mutation method besides Append.
type TxLogRepo struct {
	db *sql.DB
}

// NewTxLogRepo returns a new TxLogRepo bound to the given database.
func NewTxLogRepo(db *sql.DB) *TxLogRepo { return &TxLogRepo{db: db} }

// Append writes one audit entry for a purchase.  details may be nil.
// Callers treat this as best-effort: the orchestrator reports Append
// failures to the process log and carries on.
func (r *TxLogRepo) Append(ctx context.Context, purchaseID uint64, level, step, message string, details map[string]interface{}) error {
	var detailsJSON interface{}
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = string(b)
	}
	const q = `INSERT INTO transaction_logs (purchase_id, level, step, message, details)
               VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, purchaseID, level, step, message, detailsJSON)
	return err
}

// ListByPurchase returns all audit entries for a purchase in write
// order, for the admin read surface.
func (r *TxLogRepo) ListByPurchase(ctx context.Context, purchaseID uint64) ([]model.TransactionLogEntry, error) {
	const q = `SELECT id, purchase_id, level, step, message, COALESCE(details, ''), created_at
               FROM transaction_logs
               WHERE purchase_id = ?
               ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.TransactionLogEntry, 0)
	for rows.Next() {
		var e model.TransactionLogEntry
		if err := rows.Scan(&e.ID, &e.PurchaseID, &e.Level, &e.Step, &e.Message, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
