package query

import "bus-listing-backend/internal/model"

// BusTypes lists AllBusTypes followed by each distinct bus type in the
// order it first appears.
func BusTypes(records []model.Record) []string {
	seen := make(map[string]struct{}, len(records))
	types := []string{AllBusTypes}
	for _, r := range records {
		if _, ok := seen[r.BusType]; ok {
			continue
		}
		seen[r.BusType] = struct{}{}
		types = append(types, r.BusType)
	}
	return types
}

// PriceBounds returns the lowest and highest price in records. ok is false
// for an empty set.
func PriceBounds(records []model.Record) (lo, hi float64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	lo, hi = records[0].Price, records[0].Price
	for _, r := range records[1:] {
		if r.Price < lo {
			lo = r.Price
		}
		if r.Price > hi {
			hi = r.Price
		}
	}
	return lo, hi, true
}
