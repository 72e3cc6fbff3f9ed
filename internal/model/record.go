package model

import (
	"fmt"
	"math"
)

// MaxStarRating is the upper bound of the rating scale used by listings.
const MaxStarRating = 5.0

// Record is one scraped bus listing. ID is assigned by the store on insert
// and is zero for records that have not been persisted yet.
type Record struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	RouteName      string  `gorm:"column:route_name" json:"route_name"`
	BusName        string  `gorm:"column:bus_name" json:"bus_name"`
	BusType        string  `gorm:"column:bus_type" json:"bus_type"`
	DepartingTime  string  `gorm:"column:departing_time" json:"departing_time"`
	Duration       string  `gorm:"column:duration" json:"duration"`
	ReachingTime   string  `gorm:"column:reaching_time" json:"reaching_time"`
	StarRating     float64 `gorm:"column:star_rating" json:"star_rating"`
	Price          float64 `gorm:"column:price" json:"price"`
	SeatsAvailable int     `gorm:"column:seats_available" json:"seats_available"`
}

// TableName pins the table name so it stays stable regardless of gorm's
// naming strategy.
func (Record) TableName() string {
	return "bus_routes"
}

// InvariantError reports a Record field holding a value outside its domain.
type InvariantError struct {
	Field string
	Value any
	Rule  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Rule)
}

// Validate checks the field constraints a Record must satisfy before it can
// be stored.
func (r Record) Validate() error {
	switch {
	case r.RouteName == "":
		return &InvariantError{Field: "route_name", Value: `""`, Rule: "must not be empty"}
	case r.BusName == "":
		return &InvariantError{Field: "bus_name", Value: `""`, Rule: "must not be empty"}
	case r.BusType == "":
		return &InvariantError{Field: "bus_type", Value: `""`, Rule: "must not be empty"}
	case math.IsNaN(r.StarRating) || r.StarRating < 0 || r.StarRating > MaxStarRating:
		return &InvariantError{Field: "star_rating", Value: r.StarRating, Rule: "must be within [0, 5]"}
	case math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || r.Price < 0:
		return &InvariantError{Field: "price", Value: r.Price, Rule: "must be a finite, non-negative number"}
	case r.SeatsAvailable < 0:
		return &InvariantError{Field: "seats_available", Value: r.SeatsAvailable, Rule: "must not be negative"}
	}
	return nil
}
