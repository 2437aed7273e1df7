// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// checkout orchestrator to distinguish between different failure
// scenarios and map them onto the coded failure taxonomy surfaced to
// clients.
package repository

import "errors"

// ErrOfferNotFound is returned when a trait offer does not exist.
var ErrOfferNotFound = errors.New("trait offer not found")

// ErrOfferInactive is returned when attempting to reserve an offer
// that has been deactivated by the admin surface.
var ErrOfferInactive = errors.New("trait offer is not active")

// ErrStockDepleted is returned when a reservation would take a finite
// stock quantity below zero. No mutation is performed in that case.
var ErrStockDepleted = errors.New("stock depleted")

// ErrClaimLimitReached is returned when the wallet already holds the
// maximum number of completed or pending acquisitions for an offer.
var ErrClaimLimitReached = errors.New("claim limit reached")

// ErrPurchaseNotFound is returned when a purchase record does not exist.
var ErrPurchaseNotFound = errors.New("purchase not found")

// ErrStepBackward is returned when a status update would move the
// transaction step backward or mutate a record that already settled.
var ErrStepBackward = errors.New("illegal purchase step transition")

// ErrNotRetryable is returned when a payment retry is requested for a
// record that is not in a retryable state or whose reservation grace
// window has already expired.
var ErrNotRetryable = errors.New("purchase is not retryable")
