package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"stocks-trader/auth"
	"stocks-trader/config"
	"stocks-trader/database"
	"stocks-trader/handlers"
	"stocks-trader/ledger"
	"stocks-trader/logging"
	"stocks-trader/quote"
	"stocks-trader/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database and redis connections.
	db, err := config.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	rdb, err := config.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	provider, err := newProvider(cfg.Quote, logger)
	if err != nil {
		return err
	}
	quotes := quote.NewCached(quote.WithTimeout(provider, cfg.Quote.Timeout), rdb, cfg.Quote.CacheTTL, logger.Component("quote-cache"))

	store := database.NewStore(db)
	h := handlers.New(
		auth.NewService(store, auth.Bcrypt{Cost: cfg.BcryptCost}, cfg.StartingCash),
		ledger.NewService(store, quotes, logger.Component("ledger")),
		session.NewManager(rdb, cfg.JWTSecret, cfg.SessionTTL),
		logger.Component("handlers"),
		cfg.IsProduction(),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := handlers.NewRouter(h, logger.Component("http"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("quote_provider", cfg.Quote.Provider).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newProvider picks the upstream quote source.
func newProvider(cfg config.QuoteConfig, logger *logging.Logger) (quote.Provider, error) {
	switch cfg.Provider {
	case "alphavantage":
		if cfg.AlphaVantage == "" {
			return nil, errors.New("ALPHA_VANTAGE_API_KEY is required for the alphavantage provider")
		}
		return quote.NewAlphaVantage(cfg.AlphaVantage,
			quote.WithRateLimit(cfg.RateLimit),
			quote.WithLogger(logger.Component("alphavantage")),
		), nil
	case "finnhub":
		if cfg.Finnhub == "" {
			return nil, errors.New("FINNHUB_API_KEY is required for the finnhub provider")
		}
		return quote.NewFinnhub(cfg.Finnhub,
			quote.WithRateLimit(cfg.RateLimit),
			quote.WithLogger(logger.Component("finnhub")),
		), nil
	case "static":
		return quote.ParseStatic(cfg.StaticSymbols)
	default:
		return nil, fmt.Errorf("unsupported QUOTE_PROVIDER %q", cfg.Provider)
	}
}
