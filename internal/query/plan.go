package query

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	// HardPageCap is the absolute ceiling a caller can request.
	HardPageCap = 1000
	// SafePageCap is the advisory ceiling actually applied; any request above
	// it is clamped down regardless of the hard cap.
	SafePageCap = 500
)

type SortKey struct {
	Field      string
	Descending bool
}

// DefaultSort orders results most-recently-launched first.
var DefaultSort = []SortKey{{Field: FieldLaunchedAt, Descending: true}}

// ParseSort parses a sort directive: empty means the default, otherwise a
// comma-separated list of "field:direction" tokens. Input order is preserved,
// the first token being the primary key. A missing direction means
// descending; "asc" means ascending.
func ParseSort(raw string) ([]SortKey, error) {
	if raw == "" {
		return DefaultSort, nil
	}

	var (
		keys      []SortKey
		fieldErrs []FieldError
	)
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		field, direction, _ := strings.Cut(token, ":")
		if field == "" {
			fieldErrs = append(fieldErrs, FieldError{Field: "sort", Message: "missing field in token: " + token})
			continue
		}
		switch direction {
		case "", "desc":
			keys = append(keys, SortKey{Field: field, Descending: true})
		case "asc":
			keys = append(keys, SortKey{Field: field, Descending: false})
		default:
			fieldErrs = append(fieldErrs, FieldError{Field: "sort", Message: "unknown direction: " + direction})
		}
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}
	if len(keys) == 0 {
		return DefaultSort, nil
	}
	return keys, nil
}

type Pagination struct {
	Page  int
	Limit int
}

// NewPagination parses raw page/limit tokens. Absent values take defaults,
// page is clamped to >= 1 and the effective limit is
// min(requested, HardPageCap, SafePageCap). Non-numeric tokens are field
// errors.
func NewPagination(pageRaw, limitRaw string) (Pagination, error) {
	var fieldErrs []FieldError

	page := 1
	if pageRaw != "" {
		n, err := strconv.Atoi(pageRaw)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "page", Message: "not a number: " + pageRaw})
		} else {
			page = n
		}
	}
	if page < 1 {
		page = 1
	}

	limit := DefaultPageSize
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: "limit", Message: "not a number: " + limitRaw})
		} else {
			limit = n
		}
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > HardPageCap {
		limit = HardPageCap
	}
	if limit > SafePageCap {
		limit = SafePageCap
	}

	if len(fieldErrs) > 0 {
		return Pagination{}, &ValidationError{Fields: fieldErrs}
	}
	return Pagination{Page: page, Limit: limit}, nil
}

// Skip is the number of documents to pass over for the current page.
func (p Pagination) Skip() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta is the derived pagination metadata returned alongside a result
// page.
type PageMeta struct {
	TotalItems  int64
	TotalPages  int64
	CurrentPage int
	NextPage    *int
	HasNextPage bool
}

func NewPageMeta(totalItems int64, p Pagination) PageMeta {
	totalPages := totalItems / int64(p.Limit)
	if totalItems%int64(p.Limit) != 0 {
		totalPages++
	}

	meta := PageMeta{
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		CurrentPage: p.Page,
	}
	if int64(p.Page) < totalPages {
		next := p.Page + 1
		meta.NextPage = &next
		meta.HasNextPage = true
	}
	return meta
}

// Plan is a fully-compiled query: filter expression, ordered sort keys and
// bounded pagination.
type Plan struct {
	Filter     Filter
	Sort       []SortKey
	Pagination Pagination
}

// BuildPlan compiles the full parameter set into an executable plan,
// aggregating field errors from the filter, sort and pagination stages so the
// caller sees every problem at once.
func BuildPlan(params map[string]string, ref time.Time) (Plan, error) {
	var fieldErrs []FieldError

	filter, err := CompileFilter(params, ref)
	fieldErrs = appendFieldErrors(fieldErrs, err)

	sort, err := ParseSort(params["sort"])
	fieldErrs = appendFieldErrors(fieldErrs, err)

	pagination, err := NewPagination(params["page"], params["limit"])
	fieldErrs = appendFieldErrors(fieldErrs, err)

	if len(fieldErrs) > 0 {
		return Plan{}, &ValidationError{Fields: fieldErrs}
	}
	return Plan{Filter: filter, Sort: sort, Pagination: pagination}, nil
}

func appendFieldErrors(dst []FieldError, err error) []FieldError {
	if err == nil {
		return dst
	}
	if verr, ok := err.(*ValidationError); ok {
		return append(dst, verr.Fields...)
	}
	return append(dst, FieldError{Field: "query", Message: err.Error()})
}
