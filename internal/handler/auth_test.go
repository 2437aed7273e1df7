package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/nft-trait-shop/internal/config"
	"github.com/iliyamo/nft-trait-shop/internal/utils"
)

const goodWallet = "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2"

func TestValidWallet(t *testing.T) {
	assert.True(t, validWallet(goodWallet))
	assert.False(t, validWallet(""))
	assert.False(t, validWallet("short"))
	assert.False(t, validWallet(strings.Repeat("1", 45)), "too long")
	// 0, O, I and l are not part of the base58 alphabet.
	assert.False(t, validWallet(strings.Repeat("O", 40)))
	assert.False(t, validWallet(strings.Repeat("0", 40)))
}

func connectRequest(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/connect", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Connect(e.NewContext(req, rec)))
	return rec
}

func TestConnectIssuesWalletSession(t *testing.T) {
	h := NewAuthHandler(config.Config{JWTSecret: "test-secret", AccessTTLMin: 30})
	rec := connectRequest(t, h, `{"wallet_address":"`+goodWallet+`"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"wallet"`)
	assert.Contains(t, rec.Body.String(), goodWallet)
}

func TestConnectRejectsBadWallet(t *testing.T) {
	h := NewAuthHandler(config.Config{JWTSecret: "test-secret", AccessTTLMin: 30})
	rec := connectRequest(t, h, `{"wallet_address":"not-a-wallet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectAdminKey(t *testing.T) {
	hash, err := utils.HashAdminKey("open-sesame", 4)
	require.NoError(t, err)
	h := NewAuthHandler(config.Config{JWTSecret: "test-secret", AccessTTLMin: 30, AdminKeyHash: hash})

	rec := connectRequest(t, h, `{"wallet_address":"`+goodWallet+`","admin_key":"open-sesame"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	// A wrong key is an explicit 401, never a silent downgrade.
	rec = connectRequest(t, h, `{"wallet_address":"`+goodWallet+`","admin_key":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
