package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bher20/billmanager/internal/metrics"
	"github.com/bher20/billmanager/internal/storage"
	"github.com/bher20/billmanager/internal/tariff"
)

// ErrMissingField is returned when a required request field is absent.
var ErrMissingField = errors.New("missing required field")

// ErrNotFound is returned when a bill record does not exist.
var ErrNotFound = errors.New("bill record not found")

// Request is an unvalidated calculation request as it arrives over the
// wire. Pointer fields make absence observable: a nil field is a hard
// error, while a present-but-odd value (unknown category, malformed
// load descriptor) is a soft condition that gets defaulted.
type Request struct {
	Category       string   `json:"category"`
	Units          *float64 `json:"units"`
	Days           *int     `json:"days"`
	LoadDescriptor *string  `json:"load_descriptor"`
	PreviousDue    *float64 `json:"previous_due"`
	CustomerEmail  string   `json:"customer_email,omitempty"`
}

// Result is a computed bill together with the notices produced while
// normalizing the request.
type Result struct {
	ID        string          `json:"id,omitempty"`
	Category  tariff.Category `json:"category"`
	Breakdown Breakdown       `json:"breakdown"`
	// Notices reports soft conditions that were defaulted (unknown
	// category, malformed load descriptor). Never fatal.
	Notices []string `json:"notices,omitempty"`
}

// Service computes bills and optionally persists them.
type Service struct {
	store storage.Storage // may be nil for compute-only mode
}

// NewService returns a compute-only Service with no persistence.
func NewService() *Service {
	return &Service{}
}

// NewServiceWithStorage returns a Service that records every computed
// bill in the provided storage backend.
func NewServiceWithStorage(st storage.Storage) *Service {
	return &Service{store: st}
}

// Compute validates the request, resolves the tariff, calculates the
// bill and, when storage is configured, persists a record of it.
func (s *Service) Compute(ctx context.Context, req Request) (*Result, error) {
	if req.Units == nil {
		return nil, fmt.Errorf("%w: units", ErrMissingField)
	}
	if req.Days == nil {
		return nil, fmt.Errorf("%w: days", ErrMissingField)
	}
	if req.LoadDescriptor == nil {
		return nil, fmt.Errorf("%w: load_descriptor", ErrMissingField)
	}
	if req.PreviousDue == nil {
		return nil, fmt.Errorf("%w: previous_due", ErrMissingField)
	}

	started := time.Now()

	var notices []string
	cat, known := tariff.Resolve(req.Category)
	if !known {
		notices = append(notices, fmt.Sprintf("unknown category %q, defaulting to %s", req.Category, cat))
		metrics.InputDefaultsTotal.WithLabelValues("category").Inc()
	}
	cfg, _ := tariff.Lookup(cat)

	load := ParseLoad(*req.LoadDescriptor)
	if load.Defaulted {
		notices = append(notices, "invalid load descriptor, defaulting total and demanded load to 1")
		metrics.InputDefaultsTotal.WithLabelValues("load").Inc()
	}

	in := Input{
		Units:          *req.Units,
		Days:           *req.Days,
		LoadDescriptor: *req.LoadDescriptor,
		PreviousDue:    *req.PreviousDue,
	}
	breakdown, err := Calculate(in, load, cfg)
	if err != nil {
		return nil, err
	}

	metrics.BillsCalculatedTotal.WithLabelValues(string(cat)).Inc()
	metrics.CalculationDurationSeconds.WithLabelValues(string(cat)).Observe(time.Since(started).Seconds())

	res := &Result{
		Category:  cat,
		Breakdown: breakdown,
		Notices:   notices,
	}

	if s.store != nil {
		res.ID = uuid.New().String()
		payload, err := json.Marshal(breakdown)
		if err != nil {
			return nil, fmt.Errorf("encode breakdown: %w", err)
		}
		rec := storage.BillRecord{
			ID:             res.ID,
			Category:       string(cat),
			Units:          in.Units,
			Days:           in.Days,
			LoadDescriptor: in.LoadDescriptor,
			PreviousDue:    in.PreviousDue,
			FinalAmountDue: breakdown.FinalAmountDue,
			CustomerEmail:  req.CustomerEmail,
			Payload:        payload,
		}
		if err := s.store.SaveBillRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("save bill record: %w", err)
		}
	}

	return res, nil
}

// Get returns a previously computed bill by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}
	rec, err := s.store.GetBillRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return resultFromRecord(rec)
}

// List returns all persisted bills.
func (s *Service) List(ctx context.Context) ([]Result, error) {
	if s.store == nil {
		return nil, nil
	}
	recs, err := s.store.ListBillRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(recs))
	for i := range recs {
		res, err := resultFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func resultFromRecord(rec *storage.BillRecord) (*Result, error) {
	var breakdown Breakdown
	if err := json.Unmarshal(rec.Payload, &breakdown); err != nil {
		return nil, fmt.Errorf("decode bill record %s: %w", rec.ID, err)
	}
	return &Result{
		ID:        rec.ID,
		Category:  tariff.Category(rec.Category),
		Breakdown: breakdown,
	}, nil
}

// ApplyLateSurcharge accrues one delayed-payment surcharge period on an
// outstanding bill and persists the updated record. It returns the
// accrued amount, which is zero when nothing is outstanding.
func (s *Service) ApplyLateSurcharge(ctx context.Context, id string) (float64, error) {
	if s.store == nil {
		return 0, ErrNotFound
	}
	rec, err := s.store.GetBillRecord(ctx, id)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, ErrNotFound
	}

	var breakdown Breakdown
	if err := json.Unmarshal(rec.Payload, &breakdown); err != nil {
		return 0, fmt.Errorf("decode bill record %s: %w", rec.ID, err)
	}

	if breakdown.FinalAmountDue <= 0 {
		return 0, nil
	}
	accrual := breakdown.FinalAmountDue * dpsRate

	breakdown.DelayedPaymentSurcharge += accrual
	breakdown.TotalDue += accrual
	breakdown.FinalAmountDue += accrual

	payload, err := json.Marshal(breakdown)
	if err != nil {
		return 0, fmt.Errorf("encode breakdown: %w", err)
	}
	rec.Payload = payload
	rec.FinalAmountDue = breakdown.FinalAmountDue

	if err := s.store.SaveBillRecord(ctx, *rec); err != nil {
		return 0, fmt.Errorf("save bill record: %w", err)
	}
	return accrual, nil
}
