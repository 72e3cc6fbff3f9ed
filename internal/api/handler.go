package api

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/query"
)

// Querier is the read-only view over stored records used by the handlers.
type Querier interface {
	Load(ctx context.Context) ([]model.Record, error)
	Filter(records []model.Record, preds ...query.Predicate) []model.Record
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	query Querier
}

// NewHandler creates a new API handler.
func NewHandler(q Querier) *Handler {
	return &Handler{query: q}
}

// criteriaFromQuery reads the filter inputs from the request. Missing price
// bounds fall back to the bounds of the stored data and a missing rating
// falls back to defaultRating.
func criteriaFromQuery(c *gin.Context, all []model.Record, defaultRating float64) (query.Criteria, error) {
	lo, hi, _ := query.PriceBounds(all)
	crit := query.Criteria{
		BusType:   c.DefaultQuery("bus_type", query.AllBusTypes),
		MinPrice:  lo,
		MaxPrice:  hi,
		MinRating: defaultRating,
	}

	var err error
	if crit.MinPrice, err = floatParam(c, "min_price", crit.MinPrice); err != nil {
		return crit, err
	}
	if crit.MaxPrice, err = floatParam(c, "max_price", crit.MaxPrice); err != nil {
		return crit, err
	}
	if crit.MinRating, err = floatParam(c, "min_rating", crit.MinRating); err != nil {
		return crit, err
	}
	if crit.MinRating < 0 || crit.MinRating > model.MaxStarRating {
		return crit, fmt.Errorf("min_rating must be within [0, %g]", model.MaxStarRating)
	}
	return crit, nil
}

func floatParam(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
