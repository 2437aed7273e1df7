package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// ShopHandler serves the browse surfaces: the public trait listing,
// the wallet's NFT inventory and its purchase history.
type ShopHandler struct {
	Offers    *repository.OfferRepo    // trait offer reads
	Purchases *repository.PurchaseRepo // purchase history reads
	Logs      *repository.TxLogRepo    // per-purchase audit trail
	Inventory NFTInventory             // wallet NFT listing via the bridge
}

// NewShopHandler constructs a ShopHandler.  All dependencies must be
// non-nil.
func NewShopHandler(offers *repository.OfferRepo, purchases *repository.PurchaseRepo, logs *repository.TxLogRepo, inv NFTInventory) *ShopHandler {
	if offers == nil || purchases == nil || logs == nil || inv == nil {
		panic("nil dependency passed to NewShopHandler")
	}
	return &ShopHandler{Offers: offers, Purchases: purchases, Logs: logs, Inventory: inv}
}

// ListTraits handles GET /v1/traits.  It returns every active offer
// grouped-friendly (ordered by category, then name).  This route sits
// behind the response cache, so stock counts may lag by the cache TTL.
func (h *ShopHandler) ListTraits(c echo.Context) error {
	offers, err := h.Offers.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load traits"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": offers})
}

// GetTrait handles GET /v1/traits/:id.  Inactive offers are hidden
// from the public surface and reported as not found.
func (h *ShopHandler) GetTrait(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trait id"})
	}
	offer, err := h.Offers.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trait"})
	}
	if !offer.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": offer})
}

// ListWalletNFTs handles GET /v1/wallet/nfts.  It returns the
// collection NFTs the authenticated wallet holds, already normalized
// by the bridge.
func (h *ShopHandler) ListWalletNFTs(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nfts, err := h.Inventory.ListOwnedNFTs(c.Request().Context(), wallet)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to load wallet NFTs"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nfts})
}

// ListMyPurchases handles GET /v1/my-purchases.  It returns the
// wallet's purchase records, newest first.  The optional ?limit query
// parameter caps the result (default 50, max 200).
func (h *ShopHandler) ListMyPurchases(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := parseLimit(c.QueryParam("limit"), 50, 200)
	records, err := h.Purchases.ListByWallet(c.Request().Context(), wallet, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load purchases"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records})
}

// GetPurchase handles GET /v1/purchases/:id.  It returns one purchase
// record with its audit trail.  Wallets may only see their own
// records; admins may see any.
func (h *ShopHandler) GetPurchase(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
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
	role, _ := c.Get("role").(string)
	if rec.WalletAddress != wallet && role != RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
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

// parseLimit parses a ?limit value with a default and an upper bound.
func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
