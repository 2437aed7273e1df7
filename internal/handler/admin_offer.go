package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/model"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
)

// AdminOfferHandler covers trait offer CRUD for the ops surface.  All
// routes sit behind RequireRole(RoleAdmin).
type AdminOfferHandler struct {
	Offers *repository.OfferRepo
}

// NewAdminOfferHandler constructs an AdminOfferHandler.
func NewAdminOfferHandler(offers *repository.OfferRepo) *AdminOfferHandler {
	if offers == nil {
		panic("nil repository passed to NewAdminOfferHandler")
	}
	return &AdminOfferHandler{Offers: offers}
}

// ListOffers handles GET /v1/admin/traits and returns every offer,
// inactive ones included.
func (h *AdminOfferHandler) ListOffers(c echo.Context) error {
	offers, err := h.Offers.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load traits"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": offers})
}

type createOfferReq struct {
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	TraitValue         string  `json:"trait_value"`
	ImageRef           string  `json:"image_ref"`
	BurnCost           uint32  `json:"burn_cost"`
	SolPriceLamports   uint64  `json:"sol_price_lamports"`
	StockQuantity      *int64  `json:"stock_quantity"`        // null means unlimited
	MaxClaimsPerWallet *uint32 `json:"max_claims_per_wallet"` // null means unlimited
	IsActive           *bool   `json:"is_active"`             // defaults to true
}

// CreateOffer handles POST /v1/admin/traits.
func (h *AdminOfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.TraitValue = strings.TrimSpace(req.TraitValue)
	if req.Name == "" || req.Category == "" || req.TraitValue == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, category and trait_value are required"})
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock_quantity must not be negative"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	offer := &model.TraitOffer{
		Name:               req.Name,
		Category:           req.Category,
		TraitValue:         req.TraitValue,
		ImageRef:           req.ImageRef,
		BurnCost:           req.BurnCost,
		SolPriceLamports:   req.SolPriceLamports,
		StockQuantity:      req.StockQuantity,
		MaxClaimsPerWallet: req.MaxClaimsPerWallet,
		IsActive:           active,
	}
	if err := h.Offers.Create(c.Request().Context(), offer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create trait"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": offer})
}

type updateOfferReq struct {
	Name               *string `json:"name"`
	ImageRef           *string `json:"image_ref"`
	BurnCost           *uint32 `json:"burn_cost"`
	SolPriceLamports   *uint64 `json:"sol_price_lamports"`
	StockQuantity      *int64  `json:"stock_quantity"`
	ClearStock         bool    `json:"clear_stock"`      // set stock back to unlimited
	MaxClaimsPerWallet *uint32 `json:"max_claims_per_wallet"`
	ClearMaxClaims     bool    `json:"clear_max_claims"` // remove the per-wallet cap
	IsActive           *bool   `json:"is_active"`
}

// UpdateOffer handles PATCH /v1/admin/traits/:id.  Absent fields are
// untouched; category and trait_value are immutable because completed
// purchases reference them in on-chain metadata.
func (h *AdminOfferHandler) UpdateOffer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trait id"})
	}
	var req updateOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock_quantity must not be negative"})
	}
	ctx := c.Request().Context()
	u := repository.OfferUpdate{
		Name:               req.Name,
		ImageRef:           req.ImageRef,
		BurnCost:           req.BurnCost,
		SolPriceLamports:   req.SolPriceLamports,
		StockQuantity:      req.StockQuantity,
		ClearStock:         req.ClearStock,
		MaxClaimsPerWallet: req.MaxClaimsPerWallet,
		ClearMaxClaims:     req.ClearMaxClaims,
		IsActive:           req.IsActive,
	}
	if err := h.Offers.Update(ctx, id, u); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update trait"})
	}
	offer, err := h.Offers.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trait"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": offer})
}

// DeactivateOffer handles DELETE /v1/admin/traits/:id.  Offers are
// never hard-deleted so purchase history stays resolvable; delete
// means deactivate.
func (h *AdminOfferHandler) DeactivateOffer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trait id"})
	}
	if err := h.Offers.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trait not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate trait"})
	}
	return c.NoContent(http.StatusNoContent)
}
