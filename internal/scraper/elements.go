package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/extract"
)

// listingElement exposes one listing match as an extract.Element. Field
// lookups are scoped to the listing's subtree.
type listingElement struct {
	sel      *goquery.Selection
	matchers map[extract.Field]cascadia.Selector
}

func (e listingElement) Text(f extract.Field) (string, bool) {
	m, ok := e.matchers[f]
	if !ok {
		return "", false
	}
	found := e.sel.FindMatcher(m).First()
	if found.Length() == 0 {
		return "", false
	}
	return found.Text(), true
}

// ParseElements splits a rendered page into listing elements.
func ParseElements(html string, sels config.Selectors) ([]extract.Element, error) {
	listing, err := cascadia.Compile(sels.Listing)
	if err != nil {
		return nil, fmt.Errorf("listing selector %q: %w", sels.Listing, err)
	}
	matchers, err := fieldMatchers(sels)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}

	var elements []extract.Element
	doc.FindMatcher(listing).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, listingElement{sel: s, matchers: matchers})
	})
	return elements, nil
}

func fieldMatchers(sels config.Selectors) (map[extract.Field]cascadia.Selector, error) {
	raw := map[extract.Field]string{
		extract.FieldRouteName:     sels.RouteName,
		extract.FieldBusName:       sels.BusName,
		extract.FieldBusType:       sels.BusType,
		extract.FieldDepartingTime: sels.DepartingTime,
		extract.FieldDuration:      sels.Duration,
		extract.FieldReachingTime:  sels.ReachingTime,
		extract.FieldStarRating:    sels.StarRating,
		extract.FieldPrice:         sels.Price,
		extract.FieldSeats:         sels.Seats,
	}
	out := make(map[extract.Field]cascadia.Selector, len(raw))
	for f, q := range raw {
		m, err := cascadia.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("%s selector %q: %w", f, q, err)
		}
		out[f] = m
	}
	return out, nil
}
