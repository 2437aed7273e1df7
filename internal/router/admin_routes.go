package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/handler"
	"github.com/iliyamo/nft-trait-shop/internal/middleware"
)

// RegisterAdmin registers the ops surface under /v1/admin.  Every
// route requires a session whose role claim is admin.
func RegisterAdmin(e *echo.Echo, offers *handler.AdminOfferHandler, purchases *handler.AdminPurchaseHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleAdmin))

	g.GET("/traits", offers.ListOffers)
	g.POST("/traits", offers.CreateOffer)
	g.PATCH("/traits/:id", offers.UpdateOffer)
	g.DELETE("/traits/:id", offers.DeactivateOffer)

	g.GET("/purchases", purchases.ListPurchases)
	g.GET("/purchases/:id", purchases.GetPurchase)
	g.POST("/expire-reservations", purchases.ExpireReservations)
}
