package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Month is a calendar month in the range 1..12.
// It is stored as a number so that ordering by month is numeric, and rendered
// in JSON as a zero-padded two-digit label ("03").
type Month int

const (
	MinMonth Month = 1
	MaxMonth Month = 12
)

var spanishMonths = map[string]Month{
	"enero":      1,
	"febrero":    2,
	"marzo":      3,
	"abril":      4,
	"mayo":       5,
	"junio":      6,
	"julio":      7,
	"agosto":     8,
	"septiembre": 9,
	"setiembre":  9,
	"octubre":    10,
	"noviembre":  11,
	"diciembre":  12,
}

// ParseMonth accepts "3", "03" or a Spanish month name in any case and with or
// without accents ("Marzo", "SETIÉMBRE").
func ParseMonth(raw string) (Month, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidMonth
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := Month(n)
		if !m.IsValid() {
			return 0, ErrInvalidMonth
		}
		return m, nil
	}
	if m, ok := spanishMonths[foldMonthName(s)]; ok {
		return m, nil
	}
	return 0, ErrInvalidMonth
}

// foldMonthName case-folds s and strips combining marks. Transformers keep
// state, so the chain is built per call.
func foldMonthName(s string) string {
	folded, _, err := transform.String(
		transform.Chain(cases.Fold(), norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		return s
	}
	return folded
}

// IsValid reports whether m is within 1..12
func (m Month) IsValid() bool {
	return m >= MinMonth && m <= MaxMonth
}

// String returns the zero-padded label, e.g. "03"
func (m Month) String() string {
	return fmt.Sprintf("%02d", int(m))
}

// Name returns the Spanish month name, title-cased ("Marzo").
func (m Month) Name() string {
	for name, v := range spanishMonths {
		if v == m && name != "setiembre" {
			return cases.Title(language.Spanish).String(name)
		}
	}
	return ""
}

// MarshalJSON renders the month as its zero-padded label
func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both a JSON string ("03", "marzo") and a JSON number (3)
func (m *Month) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed := Month(n)
		if !parsed.IsValid() {
			return ErrInvalidMonth
		}
		*m = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidMonth
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
