package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/cart"
	"github.com/iliyamo/nft-trait-shop/internal/checkout"
	"github.com/iliyamo/nft-trait-shop/internal/queue"
	queue_publisher "github.com/iliyamo/nft-trait-shop/internal/service"
)

// CheckoutHandler drives a wallet's checkout session over HTTP.  The
// session state machine itself lives in internal/checkout; this layer
// only translates requests, verifies NFT ownership at the selection
// steps and maps coded failures to HTTP statuses.
type CheckoutHandler struct {
	Carts     *cart.Store
	Manager   *checkout.Manager
	Inventory NFTInventory
}

// NewCheckoutHandler constructs a CheckoutHandler.  All dependencies
// must be non-nil.
func NewCheckoutHandler(carts *cart.Store, mgr *checkout.Manager, inv NFTInventory) *CheckoutHandler {
	if carts == nil || mgr == nil || inv == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Carts: carts, Manager: mgr, Inventory: inv}
}

// Begin handles POST /v1/checkout.  It opens a fresh session over a
// snapshot of the wallet's cart, replacing any previous session.
func (h *CheckoutHandler) Begin(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items := h.Carts.For(wallet).Items()
	s, err := h.Manager.Begin(wallet, items)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start checkout"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"phase": s.Phase()})
}

// session fetches the wallet's active session or writes a 404.
func (h *CheckoutHandler) session(c echo.Context) (*checkout.Session, string, error) {
	wallet, err := getWallet(c)
	if err != nil {
		return nil, "", c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	s, ok := h.Manager.Session(wallet)
	if !ok {
		return nil, "", c.JSON(http.StatusNotFound, echo.Map{"error": "no active checkout session"})
	}
	return s, wallet, nil
}

// SelectTarget handles POST /v1/checkout/target.  The target must be
// an NFT the wallet actually holds; ownership is checked against the
// bridge inventory before the session accepts it.
func (h *CheckoutHandler) SelectTarget(c echo.Context) error {
	s, wallet, err := h.session(c)
	if s == nil {
		return err
	}
	var body struct {
		Mint string `json:"mint"`
	}
	if err := c.Bind(&body); err != nil || body.Mint == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mint is required"})
	}
	nfts, err := h.Inventory.ListOwnedNFTs(c.Request().Context(), wallet)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to load wallet NFTs"})
	}
	nft, ok := ownsMint(nfts, body.Mint)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "wallet does not hold this NFT"})
	}
	if err := s.SelectTarget(*nft); err != nil {
		return selectionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"phase": s.Phase()})
}

// SelectPayment handles POST /v1/checkout/payment with a method of
// "burn" or "sol".  Free carts never reach this step.
func (h *CheckoutHandler) SelectPayment(c echo.Context) error {
	s, _, err := h.session(c)
	if s == nil {
		return err
	}
	var body struct {
		Method string `json:"method"`
	}
	if err := c.Bind(&body); err != nil || body.Method == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method is required"})
	}
	if err := s.SelectPaymentMethod(body.Method); err != nil {
		return selectionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"phase": s.Phase()})
}

// SelectBurnSet handles POST /v1/checkout/burn-set.  Every mint in the
// set must be held by the wallet; the session additionally enforces
// count, distinctness and target exclusion.
func (h *CheckoutHandler) SelectBurnSet(c echo.Context) error {
	s, wallet, err := h.session(c)
	if s == nil {
		return err
	}
	var body struct {
		Mints []string `json:"mints"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	nfts, err := h.Inventory.ListOwnedNFTs(c.Request().Context(), wallet)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to load wallet NFTs"})
	}
	for _, mint := range body.Mints {
		if _, ok := ownsMint(nfts, mint); !ok {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "wallet does not hold NFT " + mint})
		}
	}
	if err := s.SelectBurnSet(body.Mints); err != nil {
		return selectionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"phase": s.Phase()})
}

// Status handles GET /v1/checkout.  It reports the session phase plus
// the quote at CONFIRM and the failure report after a failed attempt.
func (h *CheckoutHandler) Status(c echo.Context) error {
	s, _, err := h.session(c)
	if s == nil {
		return err
	}
	resp := echo.Map{"phase": s.Phase()}
	if q, err := s.Quote(); err == nil {
		resp["quote"] = q
	}
	if fail := s.Failure(); fail != nil {
		resp["failure"] = fail
	}
	return c.JSON(http.StatusOK, resp)
}

// Confirm handles POST /v1/checkout/confirm.  On success the cart is
// cleared and a purchase.completed event is published per record;
// publish failures are ignored since the purchase already settled.
func (h *CheckoutHandler) Confirm(c echo.Context) error {
	s, wallet, err := h.session(c)
	if s == nil {
		return err
	}
	result, err := s.Confirm(c.Request().Context())
	if err != nil {
		return checkoutError(c, err)
	}
	h.Carts.For(wallet).Clear()
	h.publishCompleted(c, s)
	return c.JSON(http.StatusOK, echo.Map{"result": result})
}

// Retry handles POST /v1/checkout/retry.  Only a PAYMENT_FAILED
// attempt still inside its grace window may re-enter at payment.
func (h *CheckoutHandler) Retry(c echo.Context) error {
	s, wallet, err := h.session(c)
	if s == nil {
		return err
	}
	result, err := s.Retry(c.Request().Context())
	if err != nil {
		return checkoutError(c, err)
	}
	h.Carts.For(wallet).Clear()
	h.publishCompleted(c, s)
	return c.JSON(http.StatusOK, echo.Map{"result": result})
}

// Cancel handles DELETE /v1/checkout.  Ending a session never returns
// stock directly; unexpired reservations are reclaimed by the grace
// window sweep.
func (h *CheckoutHandler) Cancel(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	h.Manager.End(wallet)
	return c.NoContent(http.StatusNoContent)
}

// publishCompleted emits one purchase.completed event per finished
// record.  Best effort only.
func (h *CheckoutHandler) publishCompleted(c echo.Context, s *checkout.Session) {
	for _, rec := range s.Records() {
		sig := ""
		if rec.TxSignature != nil {
			sig = *rec.TxSignature
		}
		ev := queue.PurchaseCompletedEvent{
			PurchaseID:    rec.ID,
			TraitID:       rec.TraitID,
			WalletAddress: rec.WalletAddress,
			TargetMint:    rec.TargetMint,
			PaymentMethod: rec.PaymentMethod,
			SolLamports:   rec.SolLamports,
			NFTsBurned:    rec.NFTsBurnedCount,
			TxSignature:   sig,
			CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		_ = queue_publisher.PublishPurchaseCompleted(c.Request().Context(), ev)
	}
}

// selectionError maps pre-processing state machine errors to 4xx.
func selectionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkout.ErrWrongPhase):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, checkout.ErrTargetRequired),
		errors.Is(err, checkout.ErrBadPaymentMethod),
		errors.Is(err, checkout.ErrBadBurnSet):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout error"})
	}
}

// checkoutError maps a processing failure to an HTTP status carrying
// the full coded failure report.
func checkoutError(c echo.Context, err error) error {
	var fail *checkout.Failure
	if !errors.As(err, &fail) {
		return selectionError(c, err)
	}
	status := http.StatusInternalServerError
	switch fail.Code {
	case checkout.CodeStockDepleted, checkout.CodeClaimLimitReached:
		status = http.StatusConflict
	case checkout.CodePaymentFailed:
		status = http.StatusPaymentRequired
	case checkout.CodeReservationExpired:
		status = http.StatusGone
	case checkout.CodeReservationFailed:
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"failure": fail})
}
