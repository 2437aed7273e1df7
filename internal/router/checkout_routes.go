package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/handler"
	"github.com/iliyamo/nft-trait-shop/internal/middleware"
)

// RegisterCheckout registers the cart and checkout routes.  Everything
// here requires a session.  The rate limiter, when configured, wraps
// the whole group so a wallet cannot hammer the stock ledger through
// rapid-fire confirms.
func RegisterCheckout(e *echo.Echo, ch *handler.CartHandler, co *handler.CheckoutHandler, jwtSecret string, rateMW echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleWallet, handler.RoleAdmin))
	if rateMW != nil {
		g.Use(rateMW)
	}

	g.GET("/cart", ch.Get)
	g.POST("/cart/items", ch.AddItem)
	g.DELETE("/cart/items/:id", ch.RemoveItem)
	g.DELETE("/cart", ch.Clear)

	g.POST("/checkout", co.Begin)
	g.GET("/checkout", co.Status)
	g.POST("/checkout/target", co.SelectTarget)
	g.POST("/checkout/payment", co.SelectPayment)
	g.POST("/checkout/burn-set", co.SelectBurnSet)
	g.POST("/checkout/confirm", co.Confirm)
	g.POST("/checkout/retry", co.Retry)
	g.DELETE("/checkout", co.Cancel)
}
