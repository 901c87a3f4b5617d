package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/metrics"
)

func registerBillRoutes(mux *http.ServeMux, svc *billing.Service) {
	mux.HandleFunc("/api/v1/bills", handleBills(svc))
	mux.HandleFunc("/api/v1/bills/", handleBillByID(svc))
}

// handleBills serves POST /api/v1/bills (compute a bill) and
// GET /api/v1/bills (list persisted bills).
func handleBills(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const labelsPath = "/api/v1/bills"
		start := time.Now()

		switch r.Method {
		case http.MethodPost:
			var req billing.Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "400").Inc()
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}

			res, err := svc.Compute(r.Context(), req)
			if err != nil {
				if errors.Is(err, billing.ErrMissingField) ||
					errors.Is(err, billing.ErrNonPositiveDays) ||
					errors.Is(err, billing.ErrNegativeUnits) {
					metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "400").Inc()
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				log.Printf("compute bill failed: %v", err)
				metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "500").Inc()
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			if err := json.NewEncoder(w).Encode(res); err != nil {
				log.Printf("encode response failed: %v", err)
			}
			log.Printf("computed bill category=%s final=%.2f in %s", res.Category, res.Breakdown.FinalAmountDue, time.Since(start))

		case http.MethodGet:
			results, err := svc.List(r.Context())
			if err != nil {
				log.Printf("list bills failed: %v", err)
				metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "500").Inc()
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if results == nil {
				results = []billing.Result{}
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(results); err != nil {
				log.Printf("encode response failed: %v", err)
			}

		default:
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleBillByID serves GET /api/v1/bills/{id}.
func handleBillByID(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const labelsPath = "/api/v1/bills/{id}"

		if r.Method != http.MethodGet {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/api/v1/bills/")
		if id == "" || strings.Contains(id, "/") {
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "404").Inc()
			http.NotFound(w, r)
			return
		}

		res, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, billing.ErrNotFound) {
				metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "404").Inc()
				http.NotFound(w, r)
				return
			}
			log.Printf("get bill %s failed: %v", id, err)
			metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "500").Inc()
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Printf("encode response failed: %v", err)
		}
	}
}
