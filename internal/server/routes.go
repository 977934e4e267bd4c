package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = ErrorJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication; health stays open for liveness checks
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Path(), "/health")
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/config", h.Config)
	v1.GET("/accounts/:address", h.Account)
	v1.GET("/pools/:address", h.Pool)
	v1.GET("/pools/:address/quote", h.Quote)
	v1.GET("/launches/:address", h.Launch)
	v1.GET("/contributions/:address", h.Contribution)
	v1.GET("/events/recent", h.RecentEvents)

	// Transaction intake with rate limiting
	limit, burst := cfg.RateLimit, cfg.RateBurst
	if limit <= 0 {
		limit = 20
	}
	if burst <= 0 {
		burst = 40
	}
	txGroup := v1.Group("/transactions")
	txGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: 2 * time.Minute,
	})))
	txGroup.POST("", h.SubmitTransaction)

	// Policy flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)           // List all flags
	flagGroup.POST("", h.FlagsUpsert)        // Create new flag
	flagGroup.GET("/:key", h.FlagsGet)       // Get specific flag
	flagGroup.PUT("/:key", h.FlagsUpdate)    // Update existing flag
	flagGroup.DELETE("/:key", h.FlagsDelete) // Delete flag

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
