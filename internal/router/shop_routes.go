package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/handler"
	"github.com/iliyamo/nft-trait-shop/internal/middleware"
)

// RegisterShop registers the browse surfaces.  The public trait
// listing is unauthenticated and sits behind the Redis response cache
// when one is configured; wallet inventory and purchase history
// require a session.
func RegisterShop(e *echo.Echo, s *handler.ShopHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	public := []echo.MiddlewareFunc{}
	if cacheMW != nil {
		public = append(public, cacheMW)
	}
	e.GET("/v1/traits", s.ListTraits, public...)
	e.GET("/v1/traits/:id", s.GetTrait, public...)

	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleWallet, handler.RoleAdmin))
	g.GET("/wallet/nfts", s.ListWalletNFTs)
	g.GET("/my-purchases", s.ListMyPurchases)
	g.GET("/purchases/:id", s.GetPurchase)
}
