// Package core provides money handling and the month data model.
//
// Amounts are kept as decimals so aggregation is exact. Parsing from user
// text is lenient: anything that cannot be read becomes zero.
package core

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount with decimal precision.
type Money struct {
	d decimal.Decimal
}

var (
	// Zero is the zero amount.
	Zero = Money{}

	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// NewMoneyFromCents builds a Money from an integer number of cents.
func NewMoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// MustMoney parses a plain decimal string ("12.34") and panics on failure.
// Intended for tests and constants.
func MustMoney(s string) Money {
	return Money{d: decimal.RequireFromString(s)}
}

// ParseCurrency converts user text in Brazilian notation to Money.
//
// Dots are thousands separators and are dropped, the comma becomes the
// decimal point, and every character other than digits, points and minus
// signs is removed. The longest numeric prefix that remains is parsed.
// Empty or unreadable input yields zero; it never fails.
//
// Examples:
//
//	ParseCurrency("1.234,56")   -> 1234.56
//	ParseCurrency("R$ 10,5")    -> 10.5
//	ParseCurrency("abc")        -> 0
func ParseCurrency(text string) Money {
	s := strings.ReplaceAll(text, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	num := leadingNumber.FindString(s)
	if num == "" {
		return Zero
	}
	if strings.HasSuffix(num, ".") {
		num = strings.TrimSuffix(num, ".")
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return Zero
	}
	return Money{d: d}
}

// FormatCurrency renders an amount with two decimals and a comma separator,
// without thousands grouping: 1234.5 -> "1234,50".
func FormatCurrency(m Money) string {
	return strings.Replace(m.d.StringFixed(2), ".", ",", 1)
}

// FormatCurrencyGrouped renders an amount the way the input mask displays
// it: 1234.5 -> "1.234,50".
func FormatCurrencyGrouped(m Money) string {
	fixed := m.d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if m.d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Max returns the larger of m and o.
func (m Money) Max(o Money) Money {
	if m.d.GreaterThanOrEqual(o.d) {
		return m
	}
	return o
}

func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }

// Cents returns the amount rounded to whole cents.
func (m Money) Cents() int64 {
	return m.d.Shift(2).Round(0).IntPart()
}

// Float64 returns the amount as a float for display and spreadsheet cells.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) String() string { return FormatCurrency(m) }

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null. Malformed values
// decode to zero so that a damaged document never blocks loading.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = Zero
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		*m = Zero
		return nil
	}
	*m = Money{d: d}
	return nil
}
