// Package ingest loads monetary facts and chart-of-accounts rows from
// uploaded spreadsheets: cell cleaning, period header parsing and the
// backup-then-replace write path.
package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// CleanAmount parses a spreadsheet money cell into an exact decimal. It
// tolerates the formats accounting exports produce: surrounding quotes,
// currency symbols, embedded spaces, parenthesised negatives, thousands
// commas and extra dot separators. The second return is false when no number
// survives cleaning; callers treat that as an absent fact, not a zero.
func CleanAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.Trim(s, `'"`)
	for _, sym := range []string{"$", "€", "£", "¥"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	// Exports that use dots as thousands separators: keep only the last dot
	// as the decimal point.
	if strings.Count(s, ".") > 1 {
		parts := strings.Split(s, ".")
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned != "" {
		if d, err := decimal.NewFromString(cleaned); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

var trailingDecimalZero = regexp.MustCompile(`^(\d+)\.0+$`)

// NormalizeAccountCode trims a raw account-code cell and strips the ".0"
// suffix numeric cells pick up in spreadsheet round-trips.
func NormalizeAccountCode(raw string) string {
	code := strings.TrimSpace(raw)
	if m := trailingDecimalZero.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return code
}
