package query

import (
	"context"
	"log"

	"bus-listing-backend/internal/model"
)

// AllBusTypes is the bus type selection that disables the bus type filter.
const AllBusTypes = "All"

// DefaultMinRating is the rating threshold the viewer starts with.
const DefaultMinRating = 3.0

// Loader is the read side of the store.
type Loader interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// Predicate reports whether a record belongs in the result.
type Predicate func(model.Record) bool

// BusType matches records whose bus type equals t exactly. AllBusTypes and
// the empty string match every record.
func BusType(t string) Predicate {
	if t == "" || t == AllBusTypes {
		return func(model.Record) bool { return true }
	}
	return func(r model.Record) bool { return r.BusType == t }
}

// PriceBetween matches lo <= price <= hi.
func PriceBetween(lo, hi float64) Predicate {
	return func(r model.Record) bool { return r.Price >= lo && r.Price <= hi }
}

// MinRating matches star_rating >= threshold.
func MinRating(threshold float64) Predicate {
	return func(r model.Record) bool { return r.StarRating >= threshold }
}

// And matches when every predicate matches. And() matches everything.
func And(preds ...Predicate) Predicate {
	return func(r model.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Filter keeps the records matching all predicates, preserving their order.
// The result is never nil.
func Filter(records []model.Record, preds ...Predicate) []model.Record {
	match := And(preds...)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Criteria is the filter set the viewer exposes.
type Criteria struct {
	BusType   string
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
}

// Predicates expands the criteria into bus type, price range and rating
// predicates.
func (c Criteria) Predicates() []Predicate {
	return []Predicate{
		BusType(c.BusType),
		PriceBetween(c.MinPrice, c.MaxPrice),
		MinRating(c.MinRating),
	}
}

// DefaultCriteria returns criteria that keep every record in records except
// those below DefaultMinRating, mirroring the viewer's initial state.
func DefaultCriteria(records []model.Record) Criteria {
	lo, hi, _ := PriceBounds(records)
	return Criteria{BusType: AllBusTypes, MinPrice: lo, MaxPrice: hi, MinRating: DefaultMinRating}
}

// Service loads persisted records and filters them. It never writes.
type Service struct {
	loader Loader
}

// NewService creates a query service over loader.
func NewService(loader Loader) *Service {
	return &Service{loader: loader}
}

// Load returns every persisted record; an empty table gives an empty slice.
func (s *Service) Load(ctx context.Context) ([]model.Record, error) {
	records, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

// Filter applies preds to records.
func (s *Service) Filter(records []model.Record, preds ...Predicate) []model.Record {
	return Filter(records, preds...)
}

// Query loads every record and applies c. It also returns the unfiltered
// set so callers can tell "no data" apart from "nothing matched".
func (s *Service) Query(ctx context.Context, c Criteria) (all, matched []model.Record, err error) {
	all, err = s.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	matched = Filter(all, c.Predicates()...)
	log.Printf("Query %+v matched %d of %d records", c, len(matched), len(all))
	return all, matched, nil
}
