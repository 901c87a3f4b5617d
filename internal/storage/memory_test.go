package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBillRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := BillRecord{ID: "b1", Category: "DS1D", Units: 100, Days: 30, FinalAmountDue: 500, Payload: []byte(`{}`)}
	if err := m.SaveBillRecord(ctx, rec); err != nil {
		t.Fatalf("SaveBillRecord: %v", err)
	}

	got, err := m.GetBillRecord(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBillRecord: %v", err)
	}
	if got == nil || got.Category != "DS1D" {
		t.Fatalf("GetBillRecord = %+v, want category DS1D", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on save")
	}

	missing, err := m.GetBillRecord(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetBillRecord(missing) = %+v, %v; want nil, nil", missing, err)
	}

	list, err := m.ListBillRecords(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListBillRecords = %d records, %v; want 1, nil", len(list), err)
	}
}

func TestMemoryListOverdueBillRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, rec := range []BillRecord{
		{ID: "due", FinalAmountDue: 100},
		{ID: "paid", FinalAmountDue: 0},
		{ID: "credit", FinalAmountDue: -50},
	} {
		if err := m.SaveBillRecord(ctx, rec); err != nil {
			t.Fatalf("SaveBillRecord(%s): %v", rec.ID, err)
		}
	}

	// Everything was just saved, so nothing is past an earlier cutoff.
	overdue, err := m.ListOverdueBillRecords(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListOverdueBillRecords: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("got %d overdue records before cutoff, want 0", len(overdue))
	}

	// With a future cutoff, only the positive balance qualifies.
	overdue, err = m.ListOverdueBillRecords(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ListOverdueBillRecords: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "due" {
		t.Errorf("overdue = %+v, want only record %q", overdue, "due")
	}
}

func TestMemorySettings(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v, err := m.GetSetting(ctx, "k")
	if err != nil || v != "" {
		t.Errorf("GetSetting(unset) = %q, %v; want empty, nil", v, err)
	}
	if err := m.SetSetting(ctx, "k", "3600"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	v, err = m.GetSetting(ctx, "k")
	if err != nil || v != "3600" {
		t.Errorf("GetSetting = %q, %v; want 3600, nil", v, err)
	}
}

func TestMemoryTokens(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tok := Token{ID: "t1", UserID: "u1", TokenHash: "hash1", Role: "viewer"}
	if err := m.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	got, err := m.GetTokenByHash(ctx, "hash1")
	if err != nil || got == nil || got.ID != "t1" {
		t.Fatalf("GetTokenByHash = %+v, %v; want token t1", got, err)
	}
	if got.LastUsedAt != nil {
		t.Error("new token has LastUsedAt set")
	}

	if err := m.UpdateTokenLastUsed(ctx, "t1"); err != nil {
		t.Fatalf("UpdateTokenLastUsed: %v", err)
	}
	got, _ = m.GetTokenByHash(ctx, "hash1")
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt not set after update")
	}

	if err := m.DeleteToken(ctx, "t1"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	got, _ = m.GetTokenByHash(ctx, "hash1")
	if got != nil {
		t.Error("token still present after delete")
	}
}

func TestMemoryEmailConfig(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	cfg, err := m.GetEmailConfig(ctx)
	if err != nil || cfg != nil {
		t.Errorf("GetEmailConfig(unset) = %+v, %v; want nil, nil", cfg, err)
	}

	if err := m.SaveEmailConfig(ctx, EmailConfig{Provider: "smtp", Host: "mail.example.com", Enabled: true}); err != nil {
		t.Fatalf("SaveEmailConfig: %v", err)
	}
	cfg, err = m.GetEmailConfig(ctx)
	if err != nil || cfg == nil {
		t.Fatalf("GetEmailConfig = %+v, %v", cfg, err)
	}
	if cfg.ID != "default" {
		t.Errorf("config ID = %q, want default", cfg.ID)
	}
	if cfg.Provider != "smtp" || !cfg.Enabled {
		t.Errorf("config = %+v, want enabled smtp", cfg)
	}
}

func TestMemoryScheduledJobs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	started := time.Now()
	if err := m.UpdateScheduledJob(ctx, "overdue_sweep", started, 250*time.Millisecond, false, "boom"); err != nil {
		t.Fatalf("UpdateScheduledJob: %v", err)
	}

	m.mu.RLock()
	job := m.jobs["overdue_sweep"]
	m.mu.RUnlock()
	if job.LastSuccess != 0 || job.LastError != "boom" || job.LastDurationMs != 250 {
		t.Errorf("job = %+v, want failed run with error boom and 250ms", job)
	}
}
