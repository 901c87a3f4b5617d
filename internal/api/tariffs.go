package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/bher20/billmanager/internal/metrics"
	"github.com/bher20/billmanager/internal/tariff"
)

func registerTariffRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/tariffs", handleTariffs)
	mux.HandleFunc("/api/v1/tariffs/", handleTariffByCategory)
}

type tariffEntry struct {
	Category tariff.Category `json:"category"`
	Config   tariff.Config   `json:"config"`
}

// handleTariffs serves GET /api/v1/tariffs with all known categories
// and their active rates.
func handleTariffs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		metrics.RequestErrorsTotal.WithLabelValues("/api/v1/tariffs", "405").Inc()
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var out []tariffEntry
	for _, c := range tariff.Categories() {
		cfg, _ := tariff.Lookup(c)
		out = append(out, tariffEntry{Category: c, Config: cfg})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Printf("encode response failed: %v", err)
	}
}

// handleTariffByCategory serves GET /api/v1/tariffs/{category}.
func handleTariffByCategory(w http.ResponseWriter, r *http.Request) {
	const labelsPath = "/api/v1/tariffs/{category}"

	if r.Method != http.MethodGet {
		metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "405").Inc()
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/tariffs/")
	cfg, ok := tariff.Lookup(tariff.Category(raw))
	if !ok {
		metrics.RequestErrorsTotal.WithLabelValues(labelsPath, "404").Inc()
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tariffEntry{Category: tariff.Category(raw), Config: cfg}); err != nil {
		log.Printf("encode response failed: %v", err)
	}
}
