package model

import "time"

// Payment methods accepted at checkout.
const (
	PaymentFree = "free"
	PaymentBurn = "burn"
	PaymentSOL  = "sol"
)

// Purchase statuses.  A record moves from pending to exactly one of
// completed or failed and never reverses.  The single exception is a
// payment retry inside the reservation grace window, which reopens a
// PAYMENT_FAILED record through PurchaseRepo.ReopenForRetry.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction steps in pipeline order.  transaction_step only moves
// forward through this sequence; on failure the step records where the
// pipeline stopped.
const (
	StepReservation = "reservation"
	StepValidation  = "validation"
	StepPayment     = "payment"
	StepBurn        = "burn"
	StepMetadata    = "metadata"
	StepRecording   = "recording"
	StepCompleted   = "completed"
	StepUnknown     = "unknown"
)

// stepOrder assigns each step its position in the pipeline.  Unknown
// steps sort first so a corrective write can always move them forward.
var stepOrder = map[string]int{
	StepUnknown:     0,
	StepReservation: 1,
	StepValidation:  2,
	StepPayment:     3,
	StepBurn:        4,
	StepMetadata:    5,
	StepRecording:   6,
	StepCompleted:   7,
}

// StepOrdinal returns the pipeline position of a step.  Unrecognised
// steps map to the unknown ordinal.
func StepOrdinal(step string) int {
	if n, ok := stepOrder[step]; ok {
		return n
	}
	return stepOrder[StepUnknown]
}

// PurchaseRecord tracks one unit of one trait offer being acquired by
// one wallet for one target NFT.  It is created by the stock ledger at
// reservation time and driven through the pipeline by the checkout
// orchestrator.  Once completed or failed the record is immutable
// apart from late diagnostic logging.
//
// Fields:
//  ID               – primary key, assigned at reservation time.
//  TraitID          – the trait offer being acquired.
//  WalletAddress    – buying wallet.
//  TargetMint       – mint address of the NFT receiving the trait.
//  PaymentMethod    – free, burn or sol.
//  SolLamports      – lamports paid for this unit (sol method only).
//  NFTsBurnedCount  – number of NFTs burned as payment.
//  BurnedMints      – mint addresses burned, in transfer order.
//  Status           – pending, completed or failed.
//  Step             – pipeline step the record last reached.
//  ErrorCode        – coded failure reason when status is failed.
//  ErrorMessage     – raw error text for diagnostics.
//  ErrorDetails     – structured failure context as JSON.
//  TxSignature      – on-chain signature of the payment transaction.
//  ReserveExpiresAt – end of the reservation grace window.
//  CreatedAt        – reservation timestamp.
//  PaymentStartedAt – when the payment step began, if reached.
//  CompletedAt      – when the record reached completed.
//  UpdatedAt        – last modification timestamp.
type PurchaseRecord struct {
	ID               uint64     `json:"id"`                       // purchases.id
	TraitID          uint64     `json:"trait_id"`                 // purchases.trait_id
	WalletAddress    string     `json:"wallet_address"`           // purchases.wallet_address
	TargetMint       string     `json:"target_mint"`              // purchases.target_mint
	PaymentMethod    string     `json:"payment_method"`           // purchases.payment_method
	SolLamports      uint64     `json:"sol_lamports"`             // purchases.sol_lamports
	NFTsBurnedCount  uint32     `json:"nfts_burned_count"`        // purchases.nfts_burned_count
	BurnedMints      []string   `json:"burned_nft_mints"`         // purchases.burned_nft_mints (JSON)
	Status           string     `json:"status"`                   // purchases.status
	Step             string     `json:"transaction_step"`         // purchases.transaction_step
	ErrorCode        *string    `json:"error_code,omitempty"`     // purchases.error_code (nullable)
	ErrorMessage     *string    `json:"error_message,omitempty"`  // purchases.error_message (nullable)
	ErrorDetails     *string    `json:"error_details,omitempty"`  // purchases.error_details (nullable JSON)
	TxSignature      *string    `json:"transaction_signature"`    // purchases.tx_signature (nullable)
	ReserveExpiresAt time.Time  `json:"reserve_expires_at"`       // purchases.reserve_expires_at
	CreatedAt        time.Time  `json:"created_at"`               // purchases.created_at
	PaymentStartedAt *time.Time `json:"payment_started_at"`       // purchases.payment_started_at (nullable)
	CompletedAt      *time.Time `json:"completed_at"`             // purchases.completed_at (nullable)
	UpdatedAt        time.Time  `json:"updated_at"`               // purchases.updated_at
}
