package transaction

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

// parseFilter reads the company-scoped list filters from the query string.
func parseFilter(r *http.Request) (ledger.ListFilter, error) {
	q := r.URL.Query()

	var (
		filter ledger.ListFilter
		fields []render.FieldError
	)

	// Errors are reported in the order the fields are listed here.
	ids := []struct {
		name string
		dst  **uuid.UUID
	}{
		{"categoryId", &filter.CategoryID},
		{"accountId", &filter.AccountID},
		{"projectId", &filter.ProjectID},
	}

	for _, f := range ids {
		name, dst := f.name, f.dst

		s := q.Get(name)
		if s == "" {
			continue
		}

		id, err := uuid.Parse(s)
		if err != nil {
			fields = append(fields, render.FieldError{Field: name, Message: "must be a UUID"})
			continue
		}

		*dst = &id
	}

	if s := q.Get("type"); s != "" {
		if t := ledger.Type(s); t.Valid() {
			filter.Type = &t
		} else {
			fields = append(fields, render.FieldError{Field: "type", Message: "must be one of: income expense"})
		}
	}

	if s := q.Get("status"); s != "" {
		if st := ledger.Status(s); st.Valid() {
			filter.Status = &st
		} else {
			fields = append(fields, render.FieldError{Field: "status", Message: "must be one of: pending completed"})
		}
	}

	dates := []struct {
		name string
		dst  **time.Time
	}{
		{"startDate", &filter.StartDate},
		{"endDate", &filter.EndDate},
	}

	for _, f := range dates {
		name, dst := f.name, f.dst

		s := q.Get(name)
		if s == "" {
			continue
		}

		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			fields = append(fields, render.FieldError{Field: name, Message: "must be a date (YYYY-MM-DD)"})
			continue
		}

		*dst = &t
	}

	if len(fields) > 0 {
		return ledger.ListFilter{}, &render.ValidationError{Fields: fields}
	}

	return filter, nil
}
