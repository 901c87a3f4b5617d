package notification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/storage"
)

func TestRenderBreakdownHTML(t *testing.T) {
	b := billing.Breakdown{
		EnergyAmount:        2334,
		SubsidyAmount:       1016,
		NetBillAfterSubsidy: 1318,
		FixedCharges:        6400,
		ElectricityDuty:     140.04,
		TotalDue:            7858.04,
		FinalAmountDue:      7858.04,
	}

	html := RenderBreakdownHTML("DS2D", b)
	for _, want := range []string{
		"DS2D",
		"Energy Consumption Amount",
		"Rs 2334.00",
		"Electricity Duty",
		"Rs 140.04",
		"Final Amount Due",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestSendEmailRequiresConfig(t *testing.T) {
	svc := NewService(storage.NewMemory())
	err := svc.SendEmail(context.Background(), "a@b.c", "subject", "body")
	if err == nil {
		t.Fatal("expected error with no email config")
	}

	st := storage.NewMemory()
	if err := st.SaveEmailConfig(context.Background(), storage.EmailConfig{Provider: "smtp", Enabled: false}); err != nil {
		t.Fatalf("SaveEmailConfig: %v", err)
	}
	svc = NewService(st)
	if err := svc.SendEmail(context.Background(), "a@b.c", "subject", "body"); err == nil {
		t.Fatal("expected error with disabled email config")
	}
}

func TestSendBillReminderDecodesPayload(t *testing.T) {
	payload, err := json.Marshal(billing.Breakdown{FinalAmountDue: 123.45})
	if err != nil {
		t.Fatal(err)
	}
	rec := storage.BillRecord{ID: "b1", Category: "DS1D", Payload: payload}

	// No email config: the reminder fails at send, not at decode.
	svc := NewService(storage.NewMemory())
	err = svc.SendBillReminder(context.Background(), "a@b.c", rec)
	if err == nil {
		t.Fatal("expected send error with no email config")
	}
	if strings.Contains(err.Error(), "decode") {
		t.Errorf("unexpected decode error: %v", err)
	}

	rec.Payload = []byte("not json")
	err = svc.SendBillReminder(context.Background(), "a@b.c", rec)
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("err = %v, want decode error", err)
	}
}
