package http

import (
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/erpledger/internal/auth"
	"github.com/MrJamesThe3rd/erpledger/internal/company"
	"github.com/MrJamesThe3rd/erpledger/internal/http/render"
)

const sessionCookie = "session"

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}

	return ""
}

// Authenticate resolves the caller from the session token and the company the
// caller acts for. Owners act for the company they own; employees for the
// company named in their token.
func Authenticate(tokens *auth.Tokens, companies company.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				render.Error(w, r, auth.ErrInvalidToken)
				return
			}

			caller, err := tokens.Verify(token)
			if err != nil {
				render.Error(w, r, err)
				return
			}

			var c *company.Company

			switch caller.Kind {
			case auth.KindOwner:
				c, err = companies.GetCompanyByOwner(r.Context(), caller.UserID)
			default:
				c, err = companies.GetCompany(r.Context(), caller.Scope.CompanyID)
			}

			if err != nil {
				render.Error(w, r, err)
				return
			}

			ctx := auth.WithCompany(auth.WithCaller(r.Context(), caller), c.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects callers without permission.
func Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFrom(r.Context())
			if !ok {
				render.Error(w, r, auth.ErrInvalidToken)
				return
			}

			if !caller.Can(permission) {
				render.Error(w, r, auth.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWrite applies Require(permission) to every non-GET request.
func RequireWrite(permission string) func(http.Handler) http.Handler {
	guard := Require(permission)

	return func(next http.Handler) http.Handler {
		guarded := guard(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			guarded.ServeHTTP(w, r)
		})
	}
}
