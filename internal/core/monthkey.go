package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a month as "YYYY-MM". Keys sort chronologically as
// strings.
type MonthKey string

const dateLayout = "2006-01-02"

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// NewMonthKey formats year and month (1-12) as a key. Out of range months
// are normalised the way time.Date does.
func NewMonthKey(year, month int) MonthKey {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return MonthKeyOf(t)
}

// MonthKeyOf returns the key of the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// ParseMonthKey validates s and returns it as a key.
func ParseMonthKey(s string) (MonthKey, error) {
	k := MonthKey(strings.TrimSpace(s))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return k, nil
}

// Parts splits the key into year and month. ok is false for malformed keys.
func (k MonthKey) Parts() (year, month int, ok bool) {
	y, m, found := strings.Cut(string(k), "-")
	if !found || len(y) != 4 || len(m) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func (k MonthKey) Valid() bool {
	_, _, ok := k.Parts()
	return ok
}

// Year returns the "YYYY" component, or "" for a malformed key.
func (k MonthKey) Year() string {
	if !k.Valid() {
		return ""
	}
	return string(k[:4])
}

// Previous returns the key of the preceding month, handling the January
// rollover. ok is false when k is malformed.
func (k MonthKey) Previous() (MonthKey, bool) {
	return k.shift(-1)
}

// Next returns the key of the following month.
func (k MonthKey) Next() (MonthKey, bool) {
	return k.shift(1)
}

func (k MonthKey) shift(delta int) (MonthKey, bool) {
	y, m, ok := k.Parts()
	if !ok {
		return "", false
	}
	return NewMonthKey(y, m+delta), true
}

// Label returns a human label such as "Março 2026".
func (k MonthKey) Label() string {
	y, m, ok := k.Parts()
	if !ok {
		return string(k)
	}
	return fmt.Sprintf("%s %d", monthNames[m-1], y)
}

func (k MonthKey) String() string { return string(k) }

// ValidateDate checks a "YYYY-MM-DD" calendar date.
func ValidateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDate
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}
