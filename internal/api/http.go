package api

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/billmanager/internal/api/swagger"
	"github.com/bher20/billmanager/internal/auth"
	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/config"
	migrate "github.com/bher20/billmanager/internal/migrate"
	"github.com/bher20/billmanager/internal/notification"
	"github.com/bher20/billmanager/internal/storage"
	"github.com/bher20/billmanager/internal/tariff"
)

// NewMux constructs the HTTP mux, wiring in the billing service,
// metrics, and health endpoints.
func NewMux(cfg config.Config) *http.ServeMux {
	ctx := context.Background()

	// Optional tariff schedule override: rates parsed out of a tariff
	// order PDF take precedence over the built-in constants.
	if cfg.TariffPDFPath != "" {
		n, err := tariff.LoadSchedulePDF(cfg.TariffPDFPath)
		if err != nil {
			log.Printf("tariff schedule load failed (%s): %v; using built-in rates", cfg.TariffPDFPath, err)
		} else {
			log.Printf("tariff schedule loaded from %s (%d categories overridden)", cfg.TariffPDFPath, n)
		}
	}

	// Optional auto-migration: run `goose up` on startup when enabled.
	if cfg.AutoMigrate && cfg.Driver != "memory" {
		if err := migrate.Up(ctx, cfg.Driver, cfg.DSN); err != nil {
			log.Printf("auto-migration failed: %v", err)
		}
	}

	// Construct the billing service, preferring a real storage backend
	// when available.
	var svc *billing.Service
	st, err := storage.Open(ctx, storage.Config{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		log.Printf("storage.Open failed (driver=%s dsn=%s): %v; falling back to compute-only mode", cfg.Driver, cfg.DSN, err)
		st = nil
		svc = billing.NewService()
	} else {
		log.Printf("billing service using storage backend driver=%s", cfg.Driver)
		svc = billing.NewServiceWithStorage(st)
	}

	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			// Compute-only mode has no backend to wait for.
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		if err := st.Ping(r.Context()); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Billing and tariff APIs.
	registerBillRoutes(mux, svc)
	registerTariffRoutes(mux)

	// Authenticated settings routes need a storage backend.
	if st != nil {
		authSvc, err := auth.NewService(st)
		if err != nil {
			log.Printf("auth service init failed: %v; settings routes disabled", err)
		} else {
			notifSvc := notification.NewService(st)
			registerNotificationRoutes(mux, authSvc, notifSvc)
		}
	}

	// API documentation.
	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))

	return mux
}
