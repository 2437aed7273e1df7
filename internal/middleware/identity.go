package middleware

// identity.go holds helpers shared across middleware files.  The rate
// limiter keys buckets by wallet when a session is present and falls
// back to "guest" for unauthenticated traffic.

import "github.com/labstack/echo/v4"

// currentWallet extracts the wallet address stored by JWTAuth.  It
// returns "guest" when no session is authenticated.
func currentWallet(c echo.Context) string {
	if v := c.Get("wallet_address"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "guest"
}
