package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/cart"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// CartHandler exposes the wallet's cart.  Carts live in memory, keyed
// by wallet address; items are snapshots of the offer at add time and
// get re-validated against live stock during checkout.
type CartHandler struct {
	Carts  *cart.Store
	Offers *repository.OfferRepo
}

// NewCartHandler constructs a CartHandler.  Both dependencies must be
// non-nil.
func NewCartHandler(carts *cart.Store, offers *repository.OfferRepo) *CartHandler {
	if carts == nil || offers == nil {
		panic("nil dependency passed to NewCartHandler")
	}
	return &CartHandler{Carts: carts, Offers: offers}
}

// cartView is the response shape shared by all cart endpoints.
func cartView(c *cart.Cart) echo.Map {
	items := c.Items()
	return echo.Map{
		"items":           items,
		"total_burn_cost": c.TotalBurnCost(),
		"total_lamports":  c.TotalSolPrice(),
	}
}

// Get handles GET /v1/cart and returns the wallet's current cart.
func (h *CartHandler) Get(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, cartView(h.Carts.For(wallet)))
}

// AddItem handles POST /v1/cart/items.  The body carries a trait_id;
// the offer must exist and be active.  Adding an offer already in the
// cart is a no-op and still returns the cart.
func (h *CartHandler) AddItem(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TraitID uint64 `json:"trait_id"`
	}
	if err := c.Bind(&body); err != nil || body.TraitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trait_id is required"})
	}
	offer, err := h.Offers.GetByID(c.Request().Context(), body.TraitID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trait"})
	}
	if !offer.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "trait is no longer available"})
	}
	crt := h.Carts.For(wallet)
	added := crt.Add(*offer)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, cartView(crt))
}

// RemoveItem handles DELETE /v1/cart/items/:id.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trait id"})
	}
	crt := h.Carts.For(wallet)
	if !crt.Remove(id) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not in cart"})
	}
	return c.JSON(http.StatusOK, cartView(crt))
}

// Clear handles DELETE /v1/cart and empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crt := h.Carts.For(wallet)
	crt.Clear()
	return c.JSON(http.StatusOK, cartView(crt))
}
