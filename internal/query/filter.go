package query

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Op is a predicate operator. The filter expression stays backend-agnostic;
// the mongo adapter lowers each operator to its native form.
type Op string

const (
	OpContains Op = "contains" // case-insensitive substring
	OpEquals   Op = "eq"
	OpIn       Op = "in"
	OpGTE      Op = "gte"
	OpLTE      Op = "lte"
)

// Logical field names used by clauses. The storage adapter owns the mapping
// to concrete document paths.
const (
	FieldName       = "name"
	FieldTags       = "tags"
	FieldBrandID    = "brand.id"
	FieldPriceMin   = "price.min"
	FieldPriceMax   = "price.max"
	FieldLaunchedAt = "launchedAt"
	FieldSeats      = "seatingCapacity"
	FieldFuelType   = "fuelType"
)

type Clause struct {
	Field string
	Op    Op
	Value interface{}
}

// Filter is a flat clause list combined with implicit AND.
type Filter struct {
	Clauses []Clause
}

const (
	launchPast      = "past"
	launchFuture    = "future"
	launchDelimiter = "."
)

// CompileFilter translates raw query parameters into a filter expression.
// Absent keys mean no constraint. A parameter that was supplied but does not
// parse is a field error, never a silently dropped constraint. The reference
// date for launch-status clauses is ref unless a launchedDate parameter
// overrides it. Compilation is pure: the same params and ref always produce
// a structurally identical filter.
func CompileFilter(params map[string]string, ref time.Time) (Filter, error) {
	var (
		f         Filter
		fieldErrs []FieldError
	)

	if name := params["name"]; name != "" {
		f.Clauses = append(f.Clauses, Clause{Field: FieldName, Op: OpContains, Value: name})
	}

	if tags := params["tags"]; tags != "" {
		f.Clauses = append(f.Clauses, Clause{Field: FieldTags, Op: OpIn, Value: splitList(tags)})
	}

	if brand := params["brand"]; brand != "" {
		f.Clauses = append(f.Clauses, Clause{Field: FieldBrandID, Op: OpEquals, Value: brand})
	}

	launchClauses, launchErrs := compileLaunchStatus(params, ref)
	f.Clauses = append(f.Clauses, launchClauses...)
	fieldErrs = append(fieldErrs, launchErrs...)

	if budget := params["budget"]; budget != "" {
		min, max, err := parseBudget(budget)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "budget", Message: err.Error()})
		} else {
			f.Clauses = append(f.Clauses,
				Clause{Field: FieldPriceMin, Op: OpGTE, Value: min},
				Clause{Field: FieldPriceMax, Op: OpLTE, Value: max},
			)
		}
	}

	if seats := params["seats"]; seats != "" {
		values := splitList(seats)
		counts := make([]int, 0, len(values))
		ok := true
		for _, v := range values {
			n, err := strconv.Atoi(v)
			if err != nil {
				fieldErrs = append(fieldErrs, FieldError{Field: "seats", Message: "not a number: " + v})
				ok = false
				break
			}
			counts = append(counts, n)
		}
		if ok {
			f.Clauses = append(f.Clauses, Clause{Field: FieldSeats, Op: OpIn, Value: counts})
		}
	}

	if fuel := params["fuelType"]; fuel != "" {
		f.Clauses = append(f.Clauses, Clause{Field: FieldFuelType, Op: OpIn, Value: splitList(fuel)})
	}

	if len(fieldErrs) > 0 {
		return Filter{}, &ValidationError{Fields: fieldErrs}
	}
	return f, nil
}

// compileLaunchStatus handles the launchedAt parameter. Absent means
// already-released only (launched on or before the reference date). A single
// token constrains one direction; requesting both directions at once means no
// launch-date constraint at all.
func compileLaunchStatus(params map[string]string, ref time.Time) ([]Clause, []FieldError) {
	var fieldErrs []FieldError

	if raw := params["launchedDate"]; raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "launchedDate", Message: "unparseable date: " + raw})
		} else {
			ref = parsed
		}
	}

	raw := params["launchedAt"]
	if raw == "" {
		return []Clause{{Field: FieldLaunchedAt, Op: OpLTE, Value: ref}}, fieldErrs
	}

	var past, future bool
	for _, token := range strings.Split(raw, launchDelimiter) {
		switch token {
		case launchPast:
			past = true
		case launchFuture:
			future = true
		default:
			fieldErrs = append(fieldErrs, FieldError{Field: "launchedAt", Message: "unknown launch status: " + token})
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	switch {
	case past && future:
		// Both directions requested: unconstrained.
		return nil, nil
	case future:
		return []Clause{{Field: FieldLaunchedAt, Op: OpGTE, Value: ref}}, nil
	default:
		return []Clause{{Field: FieldLaunchedAt, Op: OpLTE, Value: ref}}, nil
	}
}

func parseBudget(raw string) (min, max float64, err error) {
	left, right, found := strings.Cut(raw, "-")
	if !found {
		return 0, 0, errBudgetFormat
	}
	min, err = strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, errBudgetFormat
	}
	max, err = strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, errBudgetFormat
	}
	return min, max, nil
}

var errBudgetFormat = errors.New(`expected "<min>-<max>" with numeric sides`)

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
