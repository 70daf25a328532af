// Package render writes JSON responses and maps domain errors to status codes.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/auth"
	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/company"
	"github.com/MrJamesThe3rd/erpledger/internal/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	"github.com/MrJamesThe3rd/erpledger/internal/ledgersync"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	// Decimals compare numerically in gt/gte/lt/lte tags.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		return field.Interface().(decimal.Decimal).InexactFloat64()
	}, decimal.Decimal{})

	return v
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a malformed request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Decode reads a JSON body into v and validates its struct tags.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}

	return Validate(v)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fieldPath(fe), Message: message(fe)}
	}

	return &ValidationError{Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}

	return path
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return fmt.Sprintf("must be %s characters long", fe.Param())
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	case "gtefield":
		return "must not be before " + fe.Param()
	case "datetime":
		return "must be a date formatted " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// Error writes err with the status its kind maps to. Unknown errors are
// logged and reported as a generic internal error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	JSON(w, status, errorResponse{Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, company.ErrNotFound):
		return http.StatusNotFound, "company not found"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, budget.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, currency.ErrUnsupportedCurrency),
		errors.Is(err, ledger.ErrInvalid),
		errors.Is(err, ledger.ErrNotCompleted),
		errors.Is(err, budget.ErrInvalid),
		errors.Is(err, budget.ErrInvalidPeriod),
		errors.Is(err, notification.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrDuplicateLink), errors.Is(err, ledger.ErrStale):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ledgersync.ErrNoAccountConfigured):
		return http.StatusInternalServerError, "company has no bank or cash account configured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Company returns the company resolved for the request. It writes a 404 and
// reports false when there is none.
func Company(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.CompanyFrom(r.Context())
	if !ok {
		Error(w, r, company.ErrNotFound)
		return uuid.Nil, false
	}

	return id, true
}
