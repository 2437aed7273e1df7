package model

import "time"

// Log levels for transaction log entries.
const (
	LogInfo    = "info"
	LogWarning = "warning"
	LogError   = "error"
)

// TransactionLogEntry is one line of the append-only audit trail kept
// per purchase.  Entries are never updated or deleted once written.
//
// Fields:
//  ID         – primary key identifier.
//  PurchaseID – purchase the entry belongs to.
//  Level      – info, warning or error.
//  Step       – pipeline step the entry was written from.
//  Message    – human-readable message.
//  Details    – structured key/value context as JSON.
//  CreatedAt  – when the entry was written.
type TransactionLogEntry struct {
	ID         uint64    `json:"id"`          // transaction_logs.id
	PurchaseID uint64    `json:"purchase_id"` // transaction_logs.purchase_id
	Level      string    `json:"level"`       // transaction_logs.level
	Step       string    `json:"step"`        // transaction_logs.step
	Message    string    `json:"message"`     // transaction_logs.message
	Details    string    `json:"details"`     // transaction_logs.details (JSON)
	CreatedAt  time.Time `json:"created_at"`  // transaction_logs.created_at
}
