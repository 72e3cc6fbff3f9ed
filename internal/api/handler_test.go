package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/query"
)

type stubLoader struct {
	records []model.Record
	err     error
}

func (s stubLoader) Load(context.Context) ([]model.Record, error) {
	return s.records, s.err
}

func setupRouter(t *testing.T, loader query.Loader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter, rc := NewMiddleware(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute})
	return NewRouter(query.NewService(loader), limiter, rc)
}

func scenario() []model.Record {
	return []model.Record{
		{ID: 1, RouteName: "Bangalore to Chennai", BusName: "SRS Travels", BusType: "AC", StarRating: 4.0, Price: 100, SeatsAvailable: 10},
		{ID: 2, RouteName: "Bangalore to Chennai", BusName: "KPN Travels", BusType: "Non-AC", StarRating: 2.0, Price: 50, SeatsAvailable: 3},
	}
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeRecords(t *testing.T, w *httptest.ResponseRecorder) recordsResponse {
	t.Helper()
	var resp recordsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRecords(t *testing.T) {
	router := setupRouter(t, stubLoader{records: scenario()})

	testCases := []struct {
		name    string
		target  string
		wantIDs []int64
	}{
		{name: "No filters", target: "/api/records", wantIDs: []int64{1, 2}},
		{name: "Scenario filters", target: "/api/records?bus_type=All&min_price=60&max_price=150&min_rating=3", wantIDs: []int64{1}},
		{name: "Bus type", target: "/api/records?bus_type=Non-AC", wantIDs: []int64{2}},
		{name: "Exact price", target: "/api/records?min_price=100&max_price=100", wantIDs: []int64{1}},
		{name: "Nothing matches", target: "/api/records?min_rating=5", wantIDs: []int64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.target)
			require.Equal(t, http.StatusOK, w.Code)

			resp := decodeRecords(t, w)
			got := make([]int64, 0, len(resp.Records))
			for _, r := range resp.Records {
				got = append(got, r.ID)
			}
			assert.Equal(t, tc.wantIDs, got)
			assert.Equal(t, len(tc.wantIDs), resp.Count)
		})
	}
}

func TestGetRecords_EmptyTable(t *testing.T) {
	router := setupRouter(t, stubLoader{})

	w := get(router, "/api/records")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"records":[],"count":0}`, w.Body.String())
}

func TestGetRecords_InvalidParams(t *testing.T) {
	router := setupRouter(t, stubLoader{records: scenario()})

	for _, target := range []string{
		"/api/records?min_price=cheap",
		"/api/records?max_price=1e",
		"/api/records?min_rating=7",
		"/api/records?min_rating=NaN",
		"/api/records?min_price=NaN",
		"/api/records?max_price=Inf",
		"/api/records?min_price=-Infinity",
	} {
		w := get(router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestGetRecords_LoadFailure(t *testing.T) {
	router := setupRouter(t, stubLoader{err: errors.New("storage load: disk I/O error")})

	w := get(router, "/api/records")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to retrieve records"}`, w.Body.String())
}

func TestGetFacets(t *testing.T) {
	router := setupRouter(t, stubLoader{records: scenario()})

	w := get(router, "/api/facets")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"bus_types": ["All", "AC", "Non-AC"],
		"min_price": 50,
		"max_price": 100,
		"default_min_rating": 3
	}`, w.Body.String())
}

func TestGetIndex(t *testing.T) {
	t.Run("Empty table", func(t *testing.T) {
		w := get(setupRouter(t, stubLoader{}), "/")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No data available. Please scrape data first.")
		assert.NotContains(t, w.Body.String(), "<table>")
	})

	t.Run("Default rating hides low rated buses", func(t *testing.T) {
		w := get(setupRouter(t, stubLoader{records: scenario()}), "/")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "SRS Travels")
		assert.NotContains(t, body, "KPN Travels")
		assert.Contains(t, body, "1 of 2 buses shown.")
	})

	t.Run("No match", func(t *testing.T) {
		w := get(setupRouter(t, stubLoader{records: scenario()}), "/?bus_type=Sleeper")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No buses match the selected filters.")
	})

	t.Run("Bad input", func(t *testing.T) {
		w := get(setupRouter(t, stubLoader{records: scenario()}), "/?min_rating=abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
