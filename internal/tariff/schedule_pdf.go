package tariff

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/ledongthuc/pdf"
)

var (
	overridesMu sync.RWMutex
	overrides   map[Category]Config
)

// SetOverrides replaces the active tariff overrides, typically with the
// result of ParseSchedulePDF. Categories not present in the built-in
// table are ignored; the category set is closed.
func SetOverrides(o map[Category]Config) {
	overridesMu.Lock()
	defer overridesMu.Unlock()
	overrides = o
}

func overrideFor(c Category) (Config, bool) {
	overridesMu.RLock()
	defer overridesMu.RUnlock()
	cfg, ok := overrides[c]
	return cfg, ok
}

var (
	scheduleRe     = regexp.MustCompile(`(?m)^Schedule\s+([A-Z0-9]+)\s*$`)
	energyUnderRe  = regexp.MustCompile(`Energy Charge\s*\((?:up to|first)\s+[0-9]+\s*units\)[:\s]*(?:Rs\.?\s*)?([0-9]+(?:\.[0-9]+)?)\s*per unit`)
	energyOverRe   = regexp.MustCompile(`Energy Charge\s*\((?:above|beyond)\s+[0-9]+\s*units\)[:\s]*(?:Rs\.?\s*)?([0-9]+(?:\.[0-9]+)?)\s*per unit`)
	subsidyUnderRe = regexp.MustCompile(`Subsidy\s*\((?:up to|first)\s+[0-9]+\s*units\)[:\s]*(?:Rs\.?\s*)?([0-9]+(?:\.[0-9]+)?)\s*per unit`)
	subsidyOverRe  = regexp.MustCompile(`Subsidy\s*\((?:above|beyond)\s+[0-9]+\s*units\)[:\s]*(?:Rs\.?\s*)?([0-9]+(?:\.[0-9]+)?)\s*per unit`)
	fixedChargeRe  = regexp.MustCompile(`Fixed Charge[:\s]*(?:Rs\.?\s*)?([0-9]+(?:\.[0-9]+)?)\s*per kW`)
	monthlyLimitRe = regexp.MustCompile(`Monthly Limit[:\s]*([0-9]+(?:\.[0-9]+)?)\s*units`)
)

// ParseSchedulePDF extracts per-category rate configs from a published
// tariff order PDF.
func ParseSchedulePDF(path string) (map[Category]Config, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	return ParseScheduleText(buf.String())
}

// LoadSchedulePDF parses a tariff order PDF and installs its rates as
// the active overrides. It returns the number of categories overridden.
func LoadSchedulePDF(path string) (int, error) {
	parsed, err := ParseSchedulePDF(path)
	if err != nil {
		return 0, err
	}
	SetOverrides(parsed)
	return len(parsed), nil
}

// ParseScheduleText parses extracted tariff order text. The document is
// split into "Schedule <CATEGORY>" sections; each field falls back to
// the built-in value when the section does not mention it. Sections for
// categories outside the built-in table are skipped.
func ParseScheduleText(text string) (map[Category]Config, error) {
	locs := scheduleRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("no tariff schedules found in document")
	}

	out := make(map[Category]Config)
	for i, loc := range locs {
		name := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		section := text[loc[1]:end]

		cat := Category(name)
		base, ok := table[cat]
		if !ok {
			continue
		}

		cfg := base
		if v := parseFirstFloat(energyUnderRe, section); v > 0 {
			cfg.RateUnderLimit = v
		}
		if v := parseFirstFloat(energyOverRe, section); v > 0 {
			cfg.RateOverLimit = v
		}
		if v := parseFirstFloat(subsidyUnderRe, section); v > 0 {
			cfg.SubsidyUnderLimit = v
		}
		if v := parseFirstFloat(subsidyOverRe, section); v > 0 {
			cfg.SubsidyOverLimit = v
		}
		if v := parseFirstFloat(fixedChargeRe, section); v > 0 {
			cfg.FixedChargePerKW = v
		}
		if v := parseFirstFloat(monthlyLimitRe, section); v > 0 {
			cfg.MonthlyLimit = v
		}
		out[cat] = cfg
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no known categories in document")
	}
	return out, nil
}

// parseFirstFloat finds the first float match in the string using the
// provided regex. The regex must have at least one capture group.
func parseFirstFloat(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	var v float64
	fmt.Sscanf(m[1], "%f", &v)
	return v
}
