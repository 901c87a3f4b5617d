package billing

import (
	"errors"
	"fmt"

	"github.com/bher20/billmanager/internal/tariff"
)

const (
	// dpsRate is the delayed payment surcharge applied to a positive
	// previous due.
	dpsRate = 0.015
	// dutyRate is the electricity duty levied on the gross energy
	// charge, before subsidy.
	dutyRate = 0.06
	// cycleDays is the canonical billing cycle length. Consumption is
	// normalized onto this cycle before the tier boundary is evaluated,
	// then each charge is rescaled to the actual period length.
	cycleDays = 30.0
)

var (
	// ErrNonPositiveDays is returned when the billing period length is
	// zero or negative.
	ErrNonPositiveDays = errors.New("billing days must be positive")
	// ErrNegativeUnits is returned when consumed units are negative.
	ErrNegativeUnits = errors.New("units consumed must not be negative")
)

// Input is a fully populated calculation request. Field presence is the
// caller's responsibility (API requests use pointer fields, CLI flags
// are required); by the time an Input exists every field has a value.
type Input struct {
	Units          float64 `json:"units"`
	Days           int     `json:"days"`
	LoadDescriptor string  `json:"load_descriptor"`
	PreviousDue    float64 `json:"previous_due"`
}

// Validate rejects inputs the calculation is undefined for. These are
// hard errors: no breakdown is produced.
func (in Input) Validate() error {
	if in.Days <= 0 {
		return fmt.Errorf("%w (got %d)", ErrNonPositiveDays, in.Days)
	}
	if in.Units < 0 {
		return fmt.Errorf("%w (got %g)", ErrNegativeUnits, in.Units)
	}
	return nil
}

// Breakdown is the itemized result of a bill calculation. All amounts
// are in rupees.
type Breakdown struct {
	EnergyAmount            float64 `json:"energy_amount"`
	SubsidyAmount           float64 `json:"subsidy_amount"`
	NetBillAfterSubsidy     float64 `json:"net_bill_after_subsidy"`
	FixedCharges            float64 `json:"fixed_charges"`
	ExcessLoadSurcharge     float64 `json:"excess_load_surcharge"`
	DelayedPaymentSurcharge float64 `json:"delayed_payment_surcharge"`
	ElectricityDuty         float64 `json:"electricity_duty"`
	TotalDue                float64 `json:"total_due"`
	PreviousDue             float64 `json:"previous_due"`
	FinalAmountDue          float64 `json:"final_amount_due"`
	Load                    Load    `json:"load"`
}

// Calculate produces a Breakdown from a validated input, a parsed load
// and the resolved tariff config. It is a pure function: nothing is
// shared or mutated, and concurrent calls need no coordination.
func Calculate(in Input, load Load, cfg tariff.Config) (Breakdown, error) {
	if err := in.Validate(); err != nil {
		return Breakdown{}, err
	}

	days := float64(in.Days)
	scale := days / cycleDays
	adjustedUnits := (in.Units / days) * cycleDays

	var energy, subsidy float64
	if adjustedUnits <= cfg.MonthlyLimit {
		energy = adjustedUnits * cfg.RateUnderLimit * scale
		subsidy = adjustedUnits * cfg.SubsidyUnderLimit * scale
	} else {
		over := adjustedUnits - cfg.MonthlyLimit
		energy = (cfg.MonthlyLimit*cfg.RateUnderLimit + over*cfg.RateOverLimit) * scale
		subsidy = (cfg.MonthlyLimit*cfg.SubsidyUnderLimit + over*cfg.SubsidyOverLimit) * scale
	}

	fixed := float64(load.Demanded) * cfg.FixedChargePerKW * scale

	var excessSurcharge float64
	if excess := load.Total - load.Demanded; excess > 0 {
		excessSurcharge = cfg.FixedChargePerKW * float64(excess) * 2 * scale
	}

	var dps float64
	if in.PreviousDue > 0 {
		dps = in.PreviousDue * dpsRate
	}

	duty := energy * dutyRate

	net := energy - subsidy
	totalDue := net + fixed + duty + dps + excessSurcharge

	return Breakdown{
		EnergyAmount:            energy,
		SubsidyAmount:           subsidy,
		NetBillAfterSubsidy:     net,
		FixedCharges:            fixed,
		ExcessLoadSurcharge:     excessSurcharge,
		DelayedPaymentSurcharge: dps,
		ElectricityDuty:         duty,
		TotalDue:                totalDue,
		PreviousDue:             in.PreviousDue,
		FinalAmountDue:          totalDue + in.PreviousDue,
		Load:                    load,
	}, nil
}
