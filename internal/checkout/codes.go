package checkout

import (
	"fmt"
	"time"
)

// Failure codes surfaced to the client.  Stock and eligibility codes
// are terminal (the cart must change); process codes are retryable
// within the reservation grace window; METADATA_FAILED is terminal but
// paid and must never be retried automatically.
const (
	CodeStockDepleted      = "STOCK_DEPLETED"
	CodeClaimLimitReached  = "CLAIM_LIMIT_REACHED"
	CodeReservationFailed  = "RESERVATION_FAILED"
	CodeReservationExpired = "RESERVATION_EXPIRED"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodeMetadataFailed     = "METADATA_FAILED"
	CodeUnexpected         = "UNEXPECTED_ERROR"
)

// Failure is the coded failure report returned from a checkout
// attempt.  Message is selected by code and safe to show to users;
// Detail carries the raw error text for diagnostics.
type Failure struct {
	Code           string     `json:"code"`
	Message        string     `json:"message"`
	Detail         string     `json:"detail,omitempty"`
	FailedItems    []string   `json:"failed_items,omitempty"`
	Retryable      bool       `json:"retryable"`
	RetryableUntil *time.Time `json:"retryable_until,omitempty"`
}

// Error implements the error interface so a Failure can travel through
// error returns.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// userMessage maps a failure code to the human-readable template shown
// to the user.  graceMin is the reservation grace window in minutes,
// quoted in retryable messages.
func userMessage(code string, graceMin int) string {
	switch code {
	case CodeStockDepleted:
		return "One or more items just sold out. Remove them from your cart and try again."
	case CodeClaimLimitReached:
		return "You have already claimed the maximum allowed for one of these items."
	case CodeReservationFailed:
		return "We could not reserve your items. Nothing was charged; please try again."
	case CodeReservationExpired:
		return "Your reservation expired. Please start checkout again."
	case CodePaymentFailed:
		return fmt.Sprintf("Payment did not complete. Your items stay reserved for %d minutes, so you can retry without losing them.", graceMin)
	case CodeMetadataFailed:
		return "Payment succeeded but updating your NFT failed. Please contact support; do not retry."
	default:
		return "Something went wrong. Please try again or contact support."
	}
}
