// Package price turns free-form currency text into a bounded numeric price.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// Min is the smallest accepted price.
	Min = 1.0
	// Max is the largest accepted price; anything above is a misparsed id or phone number.
	Max = 10_000_000.0
)

var (
	numberRe = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)
	// Currency tokens become spaces so adjacent amounts stay separate runs.
	stripper = strings.NewReplacer(",", "", "₹", " ", "Rs.", " ", "Rs", " ", "INR", " ")
)

// Extract returns the first number in text when it lies in [Min, Max].
func Extract(text string) (float64, bool) {
	clean := stripper.Replace(strings.TrimSpace(text))
	m := numberRe.FindString(clean)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v < Min || v > Max {
		return 0, false
	}
	return v, true
}

// Ptr is Extract returning nil on failure.
func Ptr(text string) *float64 {
	v, ok := Extract(text)
	if !ok {
		return nil
	}
	return &v
}

// Format renders v without trailing zeros; Extract reads it back unchanged.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
