package checkout

import (
	"context"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// StockLedger reserves and compensates units of trait offer stock.
// The SQL implementation lives in internal/repository; an in-memory
// twin in internal/ledger backs the tests.
type StockLedger interface {
	Reserve(ctx context.Context, offerID uint64, wallet, targetMint, method string, lamports uint64) (*model.PurchaseRecord, error)
	Compensate(ctx context.Context, purchaseID uint64, code, message string) error
}

// PurchaseStore mutates purchase records after the reservation step.
type PurchaseStore interface {
	UpdateStatus(ctx context.Context, id uint64, status, step string, errCode, errMsg, errDetails *string) error
	Finalize(ctx context.Context, id uint64, signature string, burnedMints []string) error
	ReopenForRetry(ctx context.Context, id uint64) error
}

// TransactionLogger appends audit entries.  Append failures never
// abort the orchestration; the orchestrator reports them to the
// process log and continues.
type TransactionLogger interface {
	Append(ctx context.Context, purchaseID uint64, level, step, message string, details map[string]interface{}) error
}

// MetadataResult is returned by a successful on-chain metadata update.
type MetadataResult struct {
	Signature   string `json:"signature"`
	ImageURL    string `json:"image_url"`
	MetadataURL string `json:"metadata_url"`
}

// ChainService is the on-chain capability consumed by the orchestrator.
// The wallet bridge sidecar implements it; this package never touches
// wallet cryptography or transaction serialization.
type ChainService interface {
	TransferSOL(ctx context.Context, wallet, recipient string, lamports uint64, memo string) (string, error)
	TransferNFT(ctx context.Context, wallet, mint, recipient, collectionID, memo string) (string, error)
	UpdateMetadata(ctx context.Context, targetMint string, attrs []model.TraitAttribute, image []byte, useNewLogo bool) (*MetadataResult, error)
}

// ImageRenderer produces a composite image from an ordered attribute
// list.
type ImageRenderer interface {
	Render(ctx context.Context, attrs []model.TraitAttribute) ([]byte, error)
}

// Result is the successful outcome of a checkout attempt.
type Result struct {
	Signature   string `json:"signature"`
	ImageURL    string `json:"image_url"`
	MetadataURL string `json:"metadata_url"`
}

// ProgressEvent is one step transition emitted while a checkout
// attempt is processing.  Subscribers receive events in registration
// order.
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ProgressFunc consumes progress events.
type ProgressFunc func(ProgressEvent)
