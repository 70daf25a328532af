package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/erpledger/internal/auth"
	"github.com/MrJamesThe3rd/erpledger/internal/budget"
	budgetStore "github.com/MrJamesThe3rd/erpledger/internal/budget/store"
	"github.com/MrJamesThe3rd/erpledger/internal/cache"
	companyStore "github.com/MrJamesThe3rd/erpledger/internal/company/store"
	"github.com/MrJamesThe3rd/erpledger/internal/config"
	"github.com/MrJamesThe3rd/erpledger/internal/currency"
	"github.com/MrJamesThe3rd/erpledger/internal/database"
	ledgerHttp "github.com/MrJamesThe3rd/erpledger/internal/http"
	accountHandler "github.com/MrJamesThe3rd/erpledger/internal/http/account"
	budgetHandler "github.com/MrJamesThe3rd/erpledger/internal/http/budget"
	currencyHandler "github.com/MrJamesThe3rd/erpledger/internal/http/currency"
	syncHandler "github.com/MrJamesThe3rd/erpledger/internal/http/ledgersync"
	notificationHandler "github.com/MrJamesThe3rd/erpledger/internal/http/notification"
	txHandler "github.com/MrJamesThe3rd/erpledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/erpledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/erpledger/internal/ledgersync"
	"github.com/MrJamesThe3rd/erpledger/internal/notification"
	notificationStore "github.com/MrJamesThe3rd/erpledger/internal/notification/store"
)

func main() {
	_ = godotenv.Load()

	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	rates, err := currency.LoadRates(cfg.Currency.RatesFile)
	if err != nil {
		slog.Error("failed to load currency rates", "path", cfg.Currency.RatesFile, "error", err)
		os.Exit(1)
	}

	var (
		results   = cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)
		companies = companyStore.New(db)
		ledgerDB  = ledgerStore.New(db)
	)

	var (
		currencyService     = currency.NewService(rates, companies, results)
		balances            = ledger.NewBalances(ledgerDB, currencyService)
		budgetService       = budget.NewService(budgetStore.New(db), currencyService, results)
		ledgerService       = ledger.NewService(ledgerDB, balances, currency.Codes{}, budgetService)
		notificationService = notification.NewService(notificationStore.New(db))
		syncService         = ledgersync.NewService(ledgerService, currencyService)
	)

	handlers := ledgerHttp.Handlers{
		Accounts:      accountHandler.NewHandler(ledgerService, balances, currencyService),
		Transactions:  txHandler.NewHandler(ledgerService, currencyService),
		Budgets:       budgetHandler.NewHandler(budgetService, ledgerService, notificationService, cfg.Budget.AlertThreshold),
		Currency:      currencyHandler.NewHandler(currencyService),
		Sync:          syncHandler.NewHandler(syncService),
		Notifications: notificationHandler.NewHandler(notificationService),
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	router := ledgerHttp.New(handlers, tokens, companies, cfg.Auth.AllowedOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
