package api

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bus-listing-backend/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

func pageTemplate() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// GetIndex handles GET /. It renders the filter form and the matching
// records, or an empty-state message.
func (h *Handler) GetIndex(c *gin.Context) {
	all, err := h.query.Load(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load records: %v", err)
		c.String(http.StatusInternalServerError, "Failed to retrieve records")
		return
	}

	crit, err := criteriaFromQuery(c, all, query.DefaultMinRating)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.HTML(http.StatusOK, "index", gin.H{
		"HasData":  len(all) > 0,
		"Total":    len(all),
		"BusTypes": query.BusTypes(all),
		"Criteria": crit,
		"Records":  h.query.Filter(all, crit.Predicates()...),
	})
}
