package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/config"
	"github.com/iliyamo/nft-trait-shop/internal/utils"
)

// AuthHandler issues session tokens for connected wallets.  There are
// no accounts or passwords: a session binds requests to one wallet
// address, and presenting the admin key upgrades the session role.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type connectReq struct {
	WalletAddress string `json:"wallet_address"`
	AdminKey      string `json:"admin_key"` // optional; unlocks the admin role
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type connectResp struct {
	WalletAddress string    `json:"wallet_address"`
	Role          string    `json:"role"`
	Session       tokenPart `json:"session"`
}

// validWallet applies a shape check on a base58 Solana address.  Full
// ownership verification is the bridge's job; this only rejects
// obvious garbage before it reaches a session token.
func validWallet(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	for _, r := range addr {
		switch {
		case r >= '1' && r <= '9':
		case r >= 'A' && r <= 'H':
		case r >= 'J' && r <= 'N':
		case r >= 'P' && r <= 'Z':
		case r >= 'a' && r <= 'k':
		case r >= 'm' && r <= 'z':
		default:
			return false
		}
	}
	return true
}

// Connect handles POST /v1/auth/connect.  It issues a session token
// for the given wallet address.  When a correct admin key accompanies
// the request the session carries the admin role; a wrong key is a 401
// rather than a silent downgrade.
func (h *AuthHandler) Connect(c echo.Context) error {
	var req connectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if !validWallet(req.WalletAddress) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid wallet address"})
	}

	role := RoleWallet
	if req.AdminKey != "" {
		if !utils.VerifyAdminKey(h.Cfg.AdminKeyHash, req.AdminKey) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid admin key"})
		}
		role = RoleAdmin
	}

	session, err := utils.NewSessionToken(h.Cfg.JWTSecret, req.WalletAddress, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	return c.JSON(http.StatusCreated, connectResp{
		WalletAddress: req.WalletAddress,
		Role:          role,
		Session:       tokenPart{Token: session.Token, Expires: session.Exp},
	})
}

// Me handles GET /v1/me and returns the authenticated session identity.
func (h *AuthHandler) Me(c echo.Context) error {
	wallet, err := getWallet(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, echo.Map{
		"wallet_address": wallet,
		"role":           role,
	})
}
