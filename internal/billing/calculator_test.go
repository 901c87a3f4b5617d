package billing

import (
	"errors"
	"math"
	"testing"

	"github.com/bher20/billmanager/internal/tariff"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %.6f, want %.6f", name, got, want)
	}
}

func mustConfig(t *testing.T, c tariff.Category) tariff.Config {
	t.Helper()
	cfg, ok := tariff.Lookup(c)
	if !ok {
		t.Fatalf("Lookup(%q) failed", c)
	}
	return cfg
}

func TestCalculateEndToEnd(t *testing.T) {
	cfg := mustConfig(t, tariff.DS2D)
	in := Input{Units: 300, Days: 30, LoadDescriptor: "100,80", PreviousDue: 500}
	load := ParseLoad(in.LoadDescriptor)

	b, err := Calculate(in, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// 100 units at 7.42 plus 200 at 7.96
	approx(t, "energy", b.EnergyAmount, 2334)
	// 100 units at 3.30 plus 200 at 3.43
	approx(t, "subsidy", b.SubsidyAmount, 1016)
	approx(t, "net", b.NetBillAfterSubsidy, 1318)
	// 80 kW demanded at 80/kW
	approx(t, "fixed", b.FixedCharges, 6400)
	// 20 kW excess at double the fixed rate
	approx(t, "excess", b.ExcessLoadSurcharge, 3200)
	approx(t, "dps", b.DelayedPaymentSurcharge, 7.5)
	approx(t, "duty", b.ElectricityDuty, 140.04)
	approx(t, "total", b.TotalDue, 11065.54)
	approx(t, "final", b.FinalAmountDue, 11565.54)
}

func TestCalculateTierBoundary(t *testing.T) {
	cfg := mustConfig(t, tariff.DS1D)
	load := Load{Total: 1, Demanded: 1}

	// At the limit, everything bills at the under-limit rate.
	b, err := Calculate(Input{Units: 50, Days: 30}, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "energy at limit", b.EnergyAmount, 50*7.42)
	approx(t, "subsidy at limit", b.SubsidyAmount, 50*4.97)

	// One unit past the limit bills that unit at the over-limit rate.
	b, err = Calculate(Input{Units: 51, Days: 30}, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "energy past limit", b.EnergyAmount, 50*7.42+1*8.95)
	approx(t, "subsidy past limit", b.SubsidyAmount, 50*4.97+1*5.11)
}

func TestCalculateShortPeriodNormalization(t *testing.T) {
	cfg := mustConfig(t, tariff.DS1D)
	load := Load{Total: 2, Demanded: 2}

	// 25 units over 15 days projects to 50 units per cycle: still
	// under-limit, and every charge is halved for the half period.
	b, err := Calculate(Input{Units: 25, Days: 15}, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "energy", b.EnergyAmount, 50*7.42*0.5)
	approx(t, "subsidy", b.SubsidyAmount, 50*4.97*0.5)
	approx(t, "fixed", b.FixedCharges, 2*40*0.5)
}

func TestCalculateDelayedPaymentSurcharge(t *testing.T) {
	cfg := mustConfig(t, tariff.DS1D)
	load := Load{Total: 1, Demanded: 1}

	// Credit balance accrues no surcharge but still offsets the final amount.
	b, err := Calculate(Input{Units: 10, Days: 30, PreviousDue: -100}, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "dps on credit", b.DelayedPaymentSurcharge, 0)
	approx(t, "final with credit", b.FinalAmountDue, b.TotalDue-100)

	b, err = Calculate(Input{Units: 10, Days: 30, PreviousDue: 100}, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "dps on debt", b.DelayedPaymentSurcharge, 1.5)
}

func TestCalculateExcessLoadSurcharge(t *testing.T) {
	cfg := mustConfig(t, tariff.DS1D)

	b, err := Calculate(Input{Units: 10, Days: 30}, Load{Total: 5, Demanded: 3}, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	// 2 kW over at double the 40/kW fixed rate.
	approx(t, "excess surcharge", b.ExcessLoadSurcharge, 160)

	b, err = Calculate(Input{Units: 10, Days: 30}, Load{Total: 3, Demanded: 3}, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "no excess", b.ExcessLoadSurcharge, 0)
}

func TestCalculateAggregationInvariants(t *testing.T) {
	cfg := mustConfig(t, tariff.DS2D)
	in := Input{Units: 173, Days: 28, PreviousDue: 42}
	load := Load{Total: 6, Demanded: 4}

	b, err := Calculate(in, load, cfg)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	approx(t, "net decomposition", b.NetBillAfterSubsidy, b.EnergyAmount-b.SubsidyAmount)
	approx(t, "total decomposition", b.TotalDue,
		b.NetBillAfterSubsidy+b.FixedCharges+b.ElectricityDuty+b.DelayedPaymentSurcharge+b.ExcessLoadSurcharge)
	approx(t, "final decomposition", b.FinalAmountDue, b.TotalDue+b.PreviousDue)
	approx(t, "duty on gross energy", b.ElectricityDuty, b.EnergyAmount*0.06)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	cfg := mustConfig(t, tariff.DS1D)
	load := Load{Total: 1, Demanded: 1}

	for _, days := range []int{0, -5} {
		if _, err := Calculate(Input{Units: 10, Days: days}, load, cfg); !errors.Is(err, ErrNonPositiveDays) {
			t.Errorf("Calculate(days=%d) err = %v, want ErrNonPositiveDays", days, err)
		}
	}
	if _, err := Calculate(Input{Units: -1, Days: 30}, load, cfg); !errors.Is(err, ErrNegativeUnits) {
		t.Errorf("Calculate(units=-1) err = %v, want ErrNegativeUnits", err)
	}
}
