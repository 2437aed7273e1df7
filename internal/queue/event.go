// Package queue defines message payloads exchanged over the message broker.
package queue

// PurchaseCompletedEvent is published when a trait purchase finishes
// the checkout pipeline.  It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type PurchaseCompletedEvent struct {
	PurchaseID    uint64 `json:"purchase_id"`
	TraitID       uint64 `json:"trait_id"`
	WalletAddress string `json:"wallet_address"`
	TargetMint    string `json:"target_mint"`
	PaymentMethod string `json:"payment_method"`
	SolLamports   uint64 `json:"sol_lamports"`
	NFTsBurned    uint32 `json:"nfts_burned"`
	TxSignature   string `json:"tx_signature"`
	CompletedAt   string `json:"completed_at"`
}
