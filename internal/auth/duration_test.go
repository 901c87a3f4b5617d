package auth

import (
	"testing"
	"time"
)

func TestParseExpirationDuration(t *testing.T) {
	for _, raw := range []string{"", "never"} {
		got, err := ParseExpirationDuration(raw)
		if err != nil {
			t.Errorf("ParseExpirationDuration(%q): %v", raw, err)
		}
		if got != nil {
			t.Errorf("ParseExpirationDuration(%q) = %v, want nil", raw, got)
		}
	}

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"30m", 30 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseExpirationDuration(tc.raw)
		if err != nil {
			t.Errorf("ParseExpirationDuration(%q): %v", tc.raw, err)
			continue
		}
		if got == nil {
			t.Errorf("ParseExpirationDuration(%q) = nil, want a time", tc.raw)
			continue
		}
		diff := time.Until(*got) - tc.want
		if diff < -time.Minute || diff > time.Minute {
			t.Errorf("ParseExpirationDuration(%q) off by %v", tc.raw, diff)
		}
	}

	if _, err := ParseExpirationDuration("01/02/2003"); err == nil {
		t.Error("expected error for past date")
	}
	if _, err := ParseExpirationDuration("soonish"); err == nil {
		t.Error("expected error for unparseable input")
	}
}
