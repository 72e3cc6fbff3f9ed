package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/query"
)

type recordsResponse struct {
	Records []model.Record `json:"records"`
	Count   int            `json:"count"`
}

type facetsResponse struct {
	BusTypes         []string `json:"bus_types"`
	MinPrice         float64  `json:"min_price"`
	MaxPrice         float64  `json:"max_price"`
	DefaultMinRating float64  `json:"default_min_rating"`
}

// GetRecords handles GET /api/records.
func (h *Handler) GetRecords(c *gin.Context) {
	all, err := h.query.Load(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load records: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}

	crit, err := criteriaFromQuery(c, all, 0)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matched := h.query.Filter(all, crit.Predicates()...)
	c.JSON(http.StatusOK, recordsResponse{Records: matched, Count: len(matched)})
}

// GetFacets handles GET /api/facets. It returns the inputs a client needs to
// build the filter form.
func (h *Handler) GetFacets(c *gin.Context) {
	all, err := h.query.Load(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load records: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}

	lo, hi, _ := query.PriceBounds(all)
	c.JSON(http.StatusOK, facetsResponse{
		BusTypes:         query.BusTypes(all),
		MinPrice:         lo,
		MaxPrice:         hi,
		DefaultMinRating: query.DefaultMinRating,
	})
}
