package relation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTHB renders a baht amount for display labels and risk factor
// descriptions, e.g. 520000 -> "฿520,000" and 1250.5 -> "฿1,250.50".
func FormatTHB(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	fraction := amount - float64(whole)

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	out := "฿" + b.String()
	if fraction >= 0.005 {
		out += fmt.Sprintf(".%02d", int(fraction*100+0.5))
	}
	if negative {
		out = "-" + out
	}
	return out
}

// FormatCallDuration renders seconds as a compact duration label,
// e.g. 150 -> "2m30s".
func FormatCallDuration(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}

// parseAmount parses a numeric field, tolerating thousands separators
// and currency prefixes. Malformed or missing input yields 0, never an
// error: field-level defects must not abort the run.
func parseAmount(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "฿")
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// parseSeconds parses an integer duration field with the same
// zero-default policy as parseAmount.
func parseSeconds(raw string) int {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0
	}
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return value
}
