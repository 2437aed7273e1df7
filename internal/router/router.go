// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/handler"
	"github.com/iliyamo/nft-trait-shop/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health
// check, used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the wallet connect endpoint and the
// session-introspection endpoint.  Connect lives under /v1/auth and is
// unauthenticated; /v1/me requires a valid session token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/connect", a.Connect)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(handler.RoleWallet, handler.RoleAdmin))
	auth.GET("/me", a.Me)
}
