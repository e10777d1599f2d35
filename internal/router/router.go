package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus" // import prometheus to expose the metrics gatherer

	"github.com/iliyamo/subsplit/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/subsplit/internal/metrics"    // import the metrics collector and its HTTP handler
	"github.com/iliyamo/subsplit/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, gatherer prometheus.Gatherer) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Expose the Prometheus metrics of the process.
	e.GET("/metrics", metrics.Handler(gatherer))
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session (register,
	// login, refresh).  Each handler generates or exchanges tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: the handler accepts a
	// JSON body containing a `refresh_token` and invalidates that token,
	// or revokes every session when called with a valid bearer token.
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token.  All handlers registered
	// on this group execute the JWTAuth middleware before being invoked.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// call either /v1/auth/logout or /v1/logout with a valid refresh
	// token in the body to terminate a session.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated browse endpoints.  These
// routes apply no JWT middleware and are intended for guests comparing
// listings before signing up.  cache may be nil when Redis is down; in
// that case responses are simply computed on every request.
func RegisterPublic(e *echo.Echo, l *handler.ListingHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	// Browse open listings, optionally filtered with ?service= and
	// expanded with ?include=full.
	e.GET("/v1/listings", l.ListListings, mws...)
	// Full detail of one listing: members, ratings, aggregate.
	e.GET("/v1/listings/:id", l.GetListing, mws...)
	// Distinct service names that currently have joinable listings.
	e.GET("/v1/services", l.ListServices, mws...)
	// Ratings of one listing with the recomputed aggregate.
	e.GET("/v1/listings/:id/ratings", l.ListRatings, mws...)
}

// RegisterListings registers the authenticated marketplace endpoints:
// publishing a listing, joining one, rating one and viewing one's own
// listings.
func RegisterListings(e *echo.Echo, l *handler.ListingHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Publish a new subscription share.
	auth.POST("/listings", l.CreateListing)
	// Claim one open slot on a listing.
	auth.POST("/listings/:id/join", l.JoinListing)
	// Store or replace the caller's rating of a listing.
	auth.POST("/listings/:id/ratings", l.SubmitRating)
	// The caller's owned listings and memberships.
	auth.GET("/user/listings", l.UserListings)
}
