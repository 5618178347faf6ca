// Storefront proxy - backend for a localized WooCommerce storefront.
// Fronts CoCart, the Store API, REST v3, TI Wishlist and MyFatoorah behind
// one {success, data|error} JSON surface. Designed for Cloud Run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-proxy/internal/account"
	"storefront-proxy/internal/adapter"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/config"
	"storefront-proxy/internal/events"
	"storefront-proxy/internal/handler"
	"storefront-proxy/internal/middleware"
	"storefront-proxy/internal/myfatoorah"
	"storefront-proxy/internal/negotiation"
	"storefront-proxy/internal/orders"
	"storefront-proxy/internal/shipping"
	"storefront-proxy/internal/storage"
	"storefront-proxy/internal/storage/sqlite"
	"storefront-proxy/internal/transport"
	"storefront-proxy/internal/wishlist"
	"storefront-proxy/internal/woocommerce"
)

const purgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.StoreURL),
		slog.Bool("payments", cfg.PaymentsEnabled()),
		slog.Bool("chrome_tls", cfg.ChromeTLS),
		slog.Int("kafka_brokers", len(cfg.KafkaBrokers)),
	)

	bundles, err := openBundleStore(cfg)
	if err != nil {
		return fmt.Errorf("opening bundle store: %w", err)
	}
	defer bundles.Close()
	go storage.RunPurger(ctx, bundles, cfg.BundleRetention, purgeInterval, logger)

	publisher := newPublisher(cfg)
	defer publisher.Close()

	services, err := buildServices(cfg, bundles, publisher, logger)
	if err != nil {
		return err
	}

	negotiationCfg := negotiation.Config{
		MinClientVersion: cfg.MinClientVersion,
		DefaultCurrency:  cfg.DefaultCurrency,
	}
	h := handler.New(services, handler.Options{
		SyncSecret:    cfg.Store.SyncSecret,
		Places:        cfg.CurrencyPlaces,
		Negotiation:   negotiationCfg,
		SecureCookies: cfg.IsProduction(),
		Logger:        logger,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery must be outermost to catch panics from the other middleware.
	// Metrics sits next to the mux so the matched route pattern is visible.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		negotiation.Middleware(negotiationCfg, logger),
		middleware.Metrics(),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// buildServices wires the upstream clients into the domain services.
func buildServices(cfg *config.Config, bundles storage.Store, publisher events.Publisher, logger *slog.Logger) (adapter.Services, error) {
	client := func(service string) *http.Client {
		return transport.NewClient(transport.Options{
			Service:     service,
			Timeout:     30 * time.Second,
			Fingerprint: cfg.ChromeTLS,
		})
	}

	woo, err := woocommerce.New(woocommerce.Config{
		StoreURL:   cfg.Store.StoreURL,
		APIKey:     cfg.Store.ConsumerKey,
		APISecret:  cfg.Store.ConsumerSecret,
		HTTPClient: client("woocommerce"),
		Logger:     logger,
	})
	if err != nil {
		return adapter.Services{}, fmt.Errorf("creating woocommerce client: %w", err)
	}

	carts, err := cocart.New(cocart.Config{
		StoreURL:   cfg.Store.StoreURL,
		HTTPClient: client("cocart"),
		Logger:     logger,
	})
	if err != nil {
		return adapter.Services{}, fmt.Errorf("creating cocart client: %w", err)
	}

	orderCfg := orders.Config{
		Store:   woo,
		Events:  publisher,
		Bundles: bundles,
		Places:  cfg.CurrencyPlaces,
		Logger:  logger,
	}
	if cfg.PaymentsEnabled() {
		gateway, err := myfatoorah.New(myfatoorah.Config{
			BaseURL:    cfg.Store.MyFatoorahURL,
			APIKey:     cfg.Store.MyFatoorahAPIKey,
			HTTPClient: client("myfatoorah"),
			Logger:     logger,
		})
		if err != nil {
			return adapter.Services{}, fmt.Errorf("creating myfatoorah client: %w", err)
		}
		orderCfg.Gateway = gateway
	}

	return adapter.Services{
		Cart: cart.New(cart.Config{
			Carts:   carts,
			Store:   woo,
			Bundles: bundles,
			Logger:  logger,
		}),
		Wishlist: wishlist.New(woo, logger),
		Shipping: shipping.New(woo, cfg.CurrencyPlaces, logger),
		Account:  account.New(woo, logger),
		Orders:   orders.New(orderCfg),
	}, nil
}

// openBundleStore opens the sqlite fallback store, or an in-memory one when
// no database path is configured.
func openBundleStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DatabasePath == "" {
		return storage.NewMemory(), nil
	}
	return sqlite.New(cfg.DatabasePath)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}
	return events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses tint's colored text output.
func initLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		AddSource:  level == slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}
