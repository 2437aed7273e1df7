package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// AdminPurchaseHandler exposes purchase records and the reservation
// sweep to operators.  The sweep also runs on a timer in cmd/server;
// the endpoint exists so support can force it when investigating a
// stuck reservation.
type AdminPurchaseHandler struct {
	Purchases *repository.PurchaseRepo
	Logs      *repository.TxLogRepo
	Ledger    *repository.StockLedger
}

// NewAdminPurchaseHandler constructs an AdminPurchaseHandler.
func NewAdminPurchaseHandler(purchases *repository.PurchaseRepo, logs *repository.TxLogRepo, ledger *repository.StockLedger) *AdminPurchaseHandler {
	if purchases == nil || logs == nil || ledger == nil {
		panic("nil dependency passed to NewAdminPurchaseHandler")
	}
	return &AdminPurchaseHandler{Purchases: purchases, Logs: logs, Ledger: ledger}
}

// ListPurchases handles GET /v1/admin/purchases, newest first.  The
// optional ?limit caps the result (default 100, max 500).
func (h *AdminPurchaseHandler) ListPurchases(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"), 100, 500)
	records, err := h.Purchases.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load purchases"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records})
}

// GetPurchase handles GET /v1/admin/purchases/:id and returns the
// record together with its full audit trail.
func (h *AdminPurchaseHandler) GetPurchase(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	ctx := c.Request().Context()
	rec, err := h.Purchases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load purchase"})
	}
	logs, err := h.Logs.ListByPurchase(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load purchase logs"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item": rec,
		"logs": logs,
	})
}

// ExpireReservations handles POST /v1/admin/expire-reservations.  It
// runs the grace-window sweep immediately and reports how many
// reservations were released.
func (h *AdminPurchaseHandler) ExpireReservations(c echo.Context) error {
	released, err := h.Ledger.ExpireDue(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to expire reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}
