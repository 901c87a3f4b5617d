package billing

import (
	"regexp"
	"strconv"
)

// Load is the sanctioned and recorded load for a connection, in kW.
type Load struct {
	// Total is the actual peak load recorded for the billing period.
	Total int `json:"total"`
	// Demanded is the contracted (sanctioned) load.
	Demanded int `json:"demanded"`
	// Defaulted reports that the descriptor could not be parsed and both
	// values were substituted with 1.
	Defaulted bool `json:"defaulted,omitempty"`
}

var digitRunRe = regexp.MustCompile(`\d+`)

// ParseLoad extracts the total and demanded load from a free-text
// descriptor such as "TL=120, DL=80". All maximal digit runs in the
// input are collected; exactly two must be present, and the larger is
// taken as the total load. Any other shape (no digits, one number,
// three or more) is a soft condition: both loads default to 1 and
// Defaulted is set. Signs and decimal points are not part of a digit
// run, so "-5.5" contributes two tokens.
func ParseLoad(raw string) Load {
	tokens := digitRunRe.FindAllString(raw, -1)
	if len(tokens) != 2 {
		return Load{Total: 1, Demanded: 1, Defaulted: true}
	}

	a, err1 := strconv.Atoi(tokens[0])
	b, err2 := strconv.Atoi(tokens[1])
	if err1 != nil || err2 != nil {
		// Digit runs long enough to overflow int are treated the same as
		// any other malformed descriptor.
		return Load{Total: 1, Demanded: 1, Defaulted: true}
	}

	if a < b {
		a, b = b, a
	}
	return Load{Total: a, Demanded: b}
}
