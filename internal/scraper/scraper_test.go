package scraper

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/extract"
	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/parse"
)

func loadFixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/results.html")
	require.NoError(t, err)
	return string(b)
}

// fakeRenderer returns canned HTML and remembers what it was asked for.
type fakeRenderer struct {
	html     string
	err      error
	url      string
	selector string
}

func (r *fakeRenderer) Render(_ context.Context, url, readySelector string) (string, error) {
	r.url, r.selector = url, readySelector
	return r.html, r.err
}

// mockRepo is a mock implementation of store.Repository.
type mockRepo struct {
	EnsureSchemaFunc func(ctx context.Context) error
	InsertBatchFunc  func(ctx context.Context, records []model.Record) ([]model.Record, error)
	calls            []string
}

func (m *mockRepo) EnsureSchema(ctx context.Context) error {
	m.calls = append(m.calls, "ensure")
	if m.EnsureSchemaFunc == nil {
		return nil
	}
	return m.EnsureSchemaFunc(ctx)
}

func (m *mockRepo) InsertBatch(ctx context.Context, records []model.Record) ([]model.Record, error) {
	m.calls = append(m.calls, "insert")
	if m.InsertBatchFunc == nil {
		out := make([]model.Record, len(records))
		for i, r := range records {
			r.ID = int64(i + 1)
			out[i] = r
		}
		return out, nil
	}
	return m.InsertBatchFunc(ctx, records)
}

func (m *mockRepo) Load(context.Context) ([]model.Record, error) {
	return nil, errors.New("not used by the scraper")
}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{URL: "https://example.test/buses", Selectors: config.DefaultSelectors()}
}

func TestParseElements_ScopesFieldsToListing(t *testing.T) {
	elements, err := ParseElements(loadFixture(t), config.DefaultSelectors())
	require.NoError(t, err)
	require.Len(t, elements, 4)

	name, ok := elements[1].Text(extract.FieldBusName)
	assert.True(t, ok)
	assert.Equal(t, "KPN Travels", name)

	fare, ok := elements[0].Text(extract.FieldPrice)
	assert.True(t, ok)
	assert.Equal(t, "Rs 899", parse.Text(fare), "nested markup is flattened to text")

	_, ok = elements[3].Text(extract.FieldPrice)
	assert.False(t, ok, "a listing without a fare has no price field")
}

func TestParseElements_NoListings(t *testing.T) {
	elements, err := ParseElements("<html><body><p>No buses found</p></body></html>", config.DefaultSelectors())
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestParseElements_BadSelector(t *testing.T) {
	sels := config.DefaultSelectors()
	sels.Seats = "div[["

	_, err := ParseElements(loadFixture(t), sels)
	assert.Error(t, err)
}

func TestService_ScrapeOnce(t *testing.T) {
	renderer := &fakeRenderer{html: loadFixture(t)}
	var stored []model.Record
	repo := &mockRepo{
		InsertBatchFunc: func(_ context.Context, records []model.Record) ([]model.Record, error) {
			stored = records
			return records, nil
		},
	}

	res, err := NewService(testConfig(), renderer, repo).ScrapeOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure", "insert"}, repo.calls)
	assert.Equal(t, "https://example.test/buses", renderer.url)
	assert.Equal(t, "li.bus-item", renderer.selector)

	assert.Equal(t, 4, res.Report.Total)
	assert.Equal(t, 2, res.Report.Extracted)
	require.Len(t, res.Report.Skipped, 2)
	assert.Equal(t, 1, res.Report.Skipped[0].Index, "unrated listing is skipped")
	assert.Equal(t, 3, res.Report.Skipped[1].Index, "listing without fare is skipped")

	require.Len(t, stored, 2)
	assert.Equal(t, model.Record{
		RouteName:      "Bangalore to Chennai",
		BusName:        "SRS Travels",
		BusType:        "A/C Sleeper (2+1)",
		DepartingTime:  "21:30",
		Duration:       "06h 15m",
		ReachingTime:   "03:45",
		StarRating:     4.2,
		Price:          899,
		SeatsAvailable: 12,
	}, stored[0])
	assert.Equal(t, "Orange Tours", stored[1].BusName)
	assert.Equal(t, 1150.0, stored[1].Price)
	assert.Equal(t, 1, stored[1].SeatsAvailable)
}

func TestService_ScrapeOnceRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: ErrNotReady}
	repo := &mockRepo{}

	_, err := NewService(testConfig(), renderer, repo).ScrapeOnce(context.Background())

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, []string{"ensure"}, repo.calls, "nothing is inserted when the page never renders")
}

func TestService_ScrapeOnceStorageFailure(t *testing.T) {
	diskErr := errors.New("disk I/O error")
	repo := &mockRepo{
		InsertBatchFunc: func(context.Context, []model.Record) ([]model.Record, error) {
			return nil, diskErr
		},
	}

	res, err := NewService(testConfig(), &fakeRenderer{html: loadFixture(t)}, repo).ScrapeOnce(context.Background())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, diskErr)
}

func TestService_ScrapeOnceSchemaFailure(t *testing.T) {
	schemaErr := errors.New("unable to open database file")
	repo := &mockRepo{EnsureSchemaFunc: func(context.Context) error { return schemaErr }}
	renderer := &fakeRenderer{html: loadFixture(t)}

	_, err := NewService(testConfig(), renderer, repo).ScrapeOnce(context.Background())

	assert.ErrorIs(t, err, schemaErr)
	assert.Empty(t, renderer.url, "the page is not rendered when storage is unusable")
}

func TestReadinessExpr(t *testing.T) {
	assert.Equal(t, `document.querySelector("li.bus-item") !== null`, readinessExpr("li.bus-item"))
	assert.Equal(t, `document.querySelector("a[href=\"x\"]") !== null`, readinessExpr(`a[href="x"]`))
}

func TestFindChromeBinary_PrefersConfigured(t *testing.T) {
	assert.Equal(t, "/opt/chrome/chrome", findChromeBinary("/opt/chrome/chrome"))
}
