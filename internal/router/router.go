// Package router wires HTTP routes to their handlers. Mutations live
// behind JWT auth; catalogue reads are public and may be served from
// the response cache.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/arvela/restaurant-rating-ledger/internal/config"
	"github.com/arvela/restaurant-rating-ledger/internal/handler"
	"github.com/arvela/restaurant-rating-ledger/internal/middleware"
	"github.com/arvela/restaurant-rating-ledger/internal/repository"
)

// RegisterRoutes mounts the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the account endpoints. Me sits behind JWT auth so
// it can read the caller id from the token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}

// RegisterLedger mounts the restaurant and review endpoints.
//
// Reads are public: anyone may browse restaurants and reviews. Writes
// require a valid token; the user id in the "sub" claim becomes the
// owner or reviewer recorded by the ledger.
func RegisterLedger(e *echo.Echo, rh *handler.RestaurantHandler, vh *handler.ReviewHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	pub := e.Group("/v1", middleware.ReadCache(cacheCfg, rdb))
	pub.GET("/restaurants/:id", rh.Get)
	pub.GET("/restaurants/:id/reviews", rh.Reviews)
	pub.GET("/restaurants/:id/reviewed", rh.HasReviewed)
	pub.GET("/reviews/:id", vh.Get)
	pub.GET("/users/:id/reviews", vh.UserReviews)
	pub.GET("/stats", rh.Stats)

	priv := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(repository.RoleUser, repository.RoleAdmin),
	)
	priv.POST("/restaurants", rh.Register)
	priv.POST("/restaurants/:id/toggle", rh.ToggleStatus)
	priv.POST("/restaurants/:id/reviews", vh.Submit)
	priv.POST("/reviews/:id/verify", vh.Verify)
}
