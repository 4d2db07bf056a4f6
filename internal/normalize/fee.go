package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// percentPattern matches a fee percentage embedded in a pool display name,
// e.g. "WBTC / USDC 0.3%".
var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// feeTierLiterals are discrete fee tiers some venues embed in pool names as
// basis-point literals, mapped to their percentage values.
var feeTierLiterals = map[string]float64{
	"10000": 1.0,
	"3000":  0.3,
	"500":   0.05,
	"100":   0.01,
}

// NormalizeFee converts an unlabelled fee value into a percentage.
// Values above 100 are basis points, values below 1 are fractional rates,
// anything in between is assumed to already be a percentage.
func NormalizeFee(v float64) float64 {
	switch {
	case v > 100:
		return v / 10000
	case v < 1:
		return v * 100
	default:
		return v
	}
}

// ParseFeeString parses a fee carried as a string. A trailing "%" marker
// means the value is already a percentage and bypasses the heuristic.
// Returns nil when the string is empty or unparsable.
func ParseFeeString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil || v < 0 {
			return nil
		}
		return &v
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	pct := NormalizeFee(v)
	return &pct
}

// FeeFromName extracts a fee percentage from a pool display name, trying an
// explicit percentage pattern first and a discrete fee-tier literal second.
// Returns nil when neither strategy matches.
func FeeFromName(name string) *float64 {
	if m := percentPattern.FindStringSubmatch(name); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}

	for _, token := range strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/'
	}) {
		if pct, ok := feeTierLiterals[token]; ok {
			v := pct
			return &v
		}
	}

	return nil
}
