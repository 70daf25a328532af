package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/erpledger/internal/auth"
	"github.com/MrJamesThe3rd/erpledger/internal/company"
	"github.com/MrJamesThe3rd/erpledger/internal/http/account"
	"github.com/MrJamesThe3rd/erpledger/internal/http/budget"
	"github.com/MrJamesThe3rd/erpledger/internal/http/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/http/ledgersync"
	"github.com/MrJamesThe3rd/erpledger/internal/http/notification"
	"github.com/MrJamesThe3rd/erpledger/internal/http/transaction"
)

type Handlers struct {
	Accounts      *account.Handler
	Transactions  *transaction.Handler
	Budgets       *budget.Handler
	Currency      *currency.Handler
	Sync          *ledgersync.Handler
	Notifications *notification.Handler
}

func New(h Handlers, tokens *auth.Tokens, companies company.Repository, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(tokens, companies))
		r.Use(Require(auth.PermFinanceView))
		r.Use(RequireWrite(auth.PermFinanceManage))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/accounts", h.Accounts.Routes)
		r.Route("/transactions", h.Transactions.Routes)
		r.Route("/budgets", h.Budgets.Routes)
		r.Route("/currency", h.Currency.Routes)
		r.Route("/sync", h.Sync.Routes)
		r.Route("/notifications", h.Notifications.Routes)
	})

	return router
}
