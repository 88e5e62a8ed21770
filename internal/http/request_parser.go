package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sorpes/internal/core"
)

const (
	maxJSONBody   = 1 << 20
	maxBackupBody = 16 << 20
)

// activeMonth is the path alias for whichever month is active.
const activeMonth = "active"

// badRequestError marks malformed input that never reached the domain.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// readBackupBody reads an uploaded backup file, raw or as a multipart
// "file" field.
func readBackupBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, badRequest("missing backup file: %v", err)
		}
		defer file.Close()
		r.Body = io.NopCloser(file)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, badRequest("reading backup: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, badRequest("backup file is empty")
	}
	return data, nil
}

// monthParam reads {month}. The alias "active" resolves to the empty key,
// which the tracker maps to the active month.
func monthParam(r *http.Request) (core.MonthKey, error) {
	raw := r.PathValue("month")
	if raw == activeMonth {
		return "", nil
	}
	return core.ParseMonthKey(raw)
}

func indexParam(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, badRequest("invalid index %q", raw)
	}
	return i, nil
}

func expenseKindParam(r *http.Request) (core.ExpenseKind, error) {
	k := core.ExpenseKind(r.PathValue("kind"))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, k)
	}
	return k, nil
}

func incomeKindParam(r *http.Request) (core.IncomeKind, error) {
	k := core.IncomeKind(r.PathValue("kind"))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, k)
	}
	return k, nil
}

// boolQuery reads a boolean query flag; absent or malformed is false.
func boolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}

// sanitizeInput trims s and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// errNotANumber rejects amounts that carry no number at all.
var errNotANumber = fmt.Errorf("%w: not a number", core.ErrInvalidAmount)

// amount accepts a JSON number, a numeric string, or a display string
// such as "R$ 1.234,56". Anything else is remembered as malformed and
// reported by value, so the caller gets a validation error rather than a
// silent zero.
type amount struct {
	m   core.Money
	set bool
	err error
}

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = amount{set: true}
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if !strings.ContainsAny(s, "0123456789") {
			a.err = errNotANumber
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return json.Unmarshal(data, &a.m)
		}
		a.m = core.ParseCurrency(s)
		return nil
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		return json.Unmarshal(data, &a.m)
	default:
		a.err = errNotANumber
		return nil
	}
}

// value returns the decoded amount. A missing amount is an error only
// when required.
func (a amount) value(field string, required bool) (core.Money, error) {
	switch {
	case !a.set && required:
		return core.Zero, &core.ValidationError{Field: field, Err: fmt.Errorf("%w: missing", core.ErrInvalidAmount)}
	case a.err != nil:
		return core.Zero, &core.ValidationError{Field: field, Err: a.err}
	}
	return a.m, nil
}

type expenseRequest struct {
	DueDate     string       `json:"dueDate"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Amount      amount       `json:"amount"`
	Paid        bool         `json:"paid"`
	Owner       core.OwnerID `json:"owner"`
}

func (req expenseRequest) entry() (core.ExpenseEntry, error) {
	m, err := req.Amount.value("amount", true)
	if err != nil {
		return core.ExpenseEntry{}, err
	}
	return core.ExpenseEntry{
		DueDate:     strings.TrimSpace(req.DueDate),
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		Amount:      m,
		Paid:        req.Paid,
		Owner:       req.Owner,
	}, nil
}

type incomeRequest struct {
	Date     string       `json:"date"`
	Category string       `json:"category"`
	Amount   amount       `json:"amount"`
	Owner    core.OwnerID `json:"owner"`
}

func (req incomeRequest) entry() (core.IncomeEntry, error) {
	m, err := req.Amount.value("amount", true)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	return core.IncomeEntry{
		Date:     strings.TrimSpace(req.Date),
		Category: sanitizeInput(req.Category),
		Amount:   m,
		Owner:    req.Owner,
	}, nil
}

// blockRequest carries an optional limit; leaving it out means no limit.
type blockRequest struct {
	Title string `json:"title"`
	Limit amount `json:"limit"`
}

func (req blockRequest) limit() (core.Money, error) {
	return req.Limit.value("limit", false)
}

type blockItemRequest struct {
	Date        string       `json:"date"`
	Amount      amount       `json:"amount"`
	Description string       `json:"description"`
	Owner       core.OwnerID `json:"owner"`
}

func (req blockItemRequest) item() (core.BlockItem, error) {
	m, err := req.Amount.value("amount", true)
	if err != nil {
		return core.BlockItem{}, err
	}
	return core.BlockItem{
		Date:        strings.TrimSpace(req.Date),
		Amount:      m,
		Description: sanitizeInput(req.Description),
		Owner:       req.Owner,
	}, nil
}

type createMonthRequest struct {
	Month    core.MonthKey `json:"month"`
	CopyFrom core.MonthKey `json:"copyFrom"`
}

type moveBlockRequest struct {
	Before string `json:"before"`
}

type paidRequest struct {
	Paid bool `json:"paid"`
}

type ownerRequest struct {
	Name string `json:"name"`
}
