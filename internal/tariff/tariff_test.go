package tariff

import "testing"

func TestResolveKnownCategories(t *testing.T) {
	for _, c := range []Category{DS1D, DS2D} {
		got, ok := Resolve(string(c))
		if !ok {
			t.Errorf("Resolve(%q) not ok, want ok", c)
		}
		if got != c {
			t.Errorf("Resolve(%q) = %q, want %q", c, got, c)
		}
	}
}

func TestResolveUnknownFallsBack(t *testing.T) {
	for _, raw := range []string{"", "ds1d", "DS3D", "commercial"} {
		got, ok := Resolve(raw)
		if ok {
			t.Errorf("Resolve(%q) ok, want not ok", raw)
		}
		if got != Fallback {
			t.Errorf("Resolve(%q) = %q, want fallback %q", raw, got, Fallback)
		}
	}
}

func TestLookup(t *testing.T) {
	cfg, ok := Lookup(DS1D)
	if !ok {
		t.Fatal("Lookup(DS1D) not ok")
	}
	if cfg.MonthlyLimit != 50 {
		t.Errorf("DS1D monthly limit = %g, want 50", cfg.MonthlyLimit)
	}
	if cfg.FixedChargePerKW != 40 {
		t.Errorf("DS1D fixed charge = %g, want 40", cfg.FixedChargePerKW)
	}

	cfg, ok = Lookup(DS2D)
	if !ok {
		t.Fatal("Lookup(DS2D) not ok")
	}
	if cfg.RateOverLimit != 7.96 {
		t.Errorf("DS2D over-limit rate = %g, want 7.96", cfg.RateOverLimit)
	}

	if _, ok := Lookup(Category("DS3D")); ok {
		t.Error("Lookup(DS3D) ok, want not ok")
	}
}

func TestCategoriesMatchesTable(t *testing.T) {
	cats := Categories()
	if len(cats) != len(table) {
		t.Fatalf("Categories() returned %d entries, table has %d", len(cats), len(table))
	}
	for _, c := range cats {
		if _, ok := Lookup(c); !ok {
			t.Errorf("Categories() includes %q but Lookup fails", c)
		}
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1] >= cats[i] {
			t.Errorf("Categories() not sorted: %q before %q", cats[i-1], cats[i])
		}
	}
}

func TestOverridesTakePrecedence(t *testing.T) {
	defer SetOverrides(nil)

	SetOverrides(map[Category]Config{
		DS1D: {RateUnderLimit: 9.99, MonthlyLimit: 60},
	})

	cfg, ok := Lookup(DS1D)
	if !ok {
		t.Fatal("Lookup(DS1D) not ok with override")
	}
	if cfg.RateUnderLimit != 9.99 {
		t.Errorf("overridden under-limit rate = %g, want 9.99", cfg.RateUnderLimit)
	}

	// DS2D has no override and keeps built-in rates.
	cfg, _ = Lookup(DS2D)
	if cfg.RateUnderLimit != 7.42 {
		t.Errorf("DS2D under-limit rate = %g, want built-in 7.42", cfg.RateUnderLimit)
	}
}
