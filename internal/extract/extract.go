package extract

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/parse"
)

// Field names one sub-field of a listing element.
type Field string

const (
	FieldRouteName     Field = "route_name"
	FieldBusName       Field = "bus_name"
	FieldBusType       Field = "bus_type"
	FieldDepartingTime Field = "departing_time"
	FieldDuration      Field = "duration"
	FieldReachingTime  Field = "reaching_time"
	FieldStarRating    Field = "star_rating"
	FieldPrice         Field = "price"
	FieldSeats         Field = "seats_available"
)

// Fields lists every sub-field read from a listing element, in column order.
var Fields = []Field{
	FieldRouteName,
	FieldBusName,
	FieldBusType,
	FieldDepartingTime,
	FieldDuration,
	FieldReachingTime,
	FieldStarRating,
	FieldPrice,
	FieldSeats,
}

// Element is a single listing handed over by the page renderer. Text returns
// false when the element has no such sub-field.
type Element interface {
	Text(field Field) (string, bool)
}

// FieldFailure records why one field of an element was rejected.
type FieldFailure struct {
	Field Field
	Err   error
}

// Reason returns the parse reason behind the failure, or "invalid" when the
// value parsed but broke a record constraint.
func (f FieldFailure) Reason() parse.Reason {
	var perr *parse.Error
	if errors.As(f.Err, &perr) {
		return perr.Reason
	}
	return "invalid"
}

// ElementError is reported for every skipped element.
type ElementError struct {
	Index    int
	Failures []FieldFailure
}

func (e *ElementError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Field, f.Err))
	}
	return fmt.Sprintf("listing %d skipped: %s", e.Index, strings.Join(parts, "; "))
}

// Report summarizes one extraction pass.
type Report struct {
	Total     int
	Extracted int
	Skipped   []*ElementError
}

// Extract converts listing elements into records. Elements with any missing
// or malformed field are skipped and described in the report; they never
// stop the remaining elements from being processed.
func Extract(elements []Element) ([]model.Record, Report) {
	report := Report{Total: len(elements)}
	records := make([]model.Record, 0, len(elements))

	for i, el := range elements {
		rec, err := extractOne(i, el)
		if err != nil {
			log.Printf("Skipping listing: %v", err)
			report.Skipped = append(report.Skipped, err)
			continue
		}
		records = append(records, rec)
	}

	report.Extracted = len(records)
	return records, report
}

// fieldReader gathers failures so every field of an element gets reported,
// not only the first bad one.
type fieldReader struct {
	el       Element
	failures []FieldFailure
}

func (r *fieldReader) raw(f Field) (string, bool) {
	if r.el == nil {
		r.fail(f, parse.Missing())
		return "", false
	}
	s, ok := r.el.Text(f)
	if !ok {
		r.fail(f, parse.Missing())
	}
	return s, ok
}

func (r *fieldReader) fail(f Field, err error) {
	r.failures = append(r.failures, FieldFailure{Field: f, Err: err})
}

func (r *fieldReader) required(f Field) string {
	s, ok := r.raw(f)
	if !ok {
		return ""
	}
	v, err := parse.RequiredText(s)
	if err != nil {
		r.fail(f, err)
	}
	return v
}

func (r *fieldReader) text(f Field) string {
	s, _ := r.raw(f)
	return parse.Text(s)
}

func (r *fieldReader) float(f Field, conv func(string) (float64, error)) float64 {
	s, ok := r.raw(f)
	if !ok {
		return 0
	}
	v, err := conv(s)
	if err != nil {
		r.fail(f, err)
	}
	return v
}

func (r *fieldReader) seats() int {
	s, ok := r.raw(FieldSeats)
	if !ok {
		return 0
	}
	n, err := parse.Seats(s)
	if err != nil {
		r.fail(FieldSeats, err)
	}
	return n
}

func extractOne(index int, el Element) (model.Record, *ElementError) {
	r := &fieldReader{el: el}
	rec := model.Record{
		RouteName:      r.required(FieldRouteName),
		BusName:        r.required(FieldBusName),
		BusType:        r.required(FieldBusType),
		DepartingTime:  r.text(FieldDepartingTime),
		Duration:       r.text(FieldDuration),
		ReachingTime:   r.text(FieldReachingTime),
		StarRating:     r.float(FieldStarRating, parse.Rating),
		Price:          r.float(FieldPrice, parse.Price),
		SeatsAvailable: r.seats(),
	}

	if len(r.failures) == 0 {
		if err := rec.Validate(); err != nil {
			var ierr *model.InvariantError
			field := Field("record")
			if errors.As(err, &ierr) {
				field = Field(ierr.Field)
			}
			r.fail(field, err)
		}
	}

	if len(r.failures) > 0 {
		return model.Record{}, &ElementError{Index: index, Failures: r.failures}
	}
	return rec, nil
}
