package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/mw"
)

// NewRouter creates and configures the viewer's Gin router. The limiter and
// cache are passed in so the caller can sweep and flush them.
func NewRouter(q Querier, limiter *mw.ClientLimiter, rc *mw.ResponseCache) *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(pageTemplate())

	handler := NewHandler(q)
	caching := rc.Handler()

	r.Use(mw.RateLimiter(limiter))

	r.GET("/", caching, handler.GetIndex)

	api := r.Group("/api")
	{
		// GET /api/records?bus_type=&min_price=&max_price=&min_rating=
		api.GET("/records", caching, handler.GetRecords)

		// GET /api/facets
		api.GET("/facets", caching, handler.GetFacets)
	}

	return r
}

// NewMiddleware builds the limiter and response cache from server settings.
func NewMiddleware(cfg config.ServerConfig) (*mw.ClientLimiter, *mw.ResponseCache) {
	return mw.NewClientLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		mw.NewResponseCache(cfg.CacheTTL)
}
