package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sorpes/internal/core"
)

func TestAmountDecoding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`12.5`, "12.5"},
		{`"12.5"`, "12.5"},
		{`"1.234,56"`, "1234.56"},
		{`"R$ 10,5"`, "10.5"},
		{`0`, "0"},
	}
	for _, tt := range tests {
		var a amount
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		got, err := a.value("amount", true)
		if err != nil {
			t.Fatalf("amount(%s): %v", tt.in, err)
		}
		if !got.Equal(core.MustMoney(tt.want)) {
			t.Errorf("amount(%s) = %s, want %s", tt.in, got.Decimal(), tt.want)
		}
	}
}

func TestAmountRejectsNonNumbers(t *testing.T) {
	for _, in := range []string{`"abc"`, `""`, `true`, `null`, `{}`, `[1]`} {
		var a amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		_, err := a.value("amount", true)
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Field != "amount" {
			t.Errorf("amount(%s): err = %v, want amount validation error", in, err)
		}
	}

	var missing amount
	if _, err := missing.value("amount", true); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("missing required amount: err = %v", err)
	}
	if m, err := missing.value("limit", false); err != nil || !m.IsZero() {
		t.Errorf("missing optional amount = %v, %v", m, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	decodeBody := func(body string) error {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst ownerRequest
		return decodeJSON(httptest.NewRecorder(), r, &dst)
	}

	if err := decodeBody(`{"name":"Ana"}`); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	for _, body := range []string{``, `{`, `{"nome":"Ana"}`, `{"name":"Ana"}{"name":"Bia"}`} {
		err := decodeBody(body)
		var bad *badRequestError
		if !errors.As(err, &bad) {
			t.Errorf("body %q: err = %v, want badRequestError", body, err)
		}
	}

	big := `{"name":"` + strings.Repeat("a", maxJSONBody) + `"}`
	if err := decodeBody(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("oversized body: err = %v", err)
	}
}

func TestMonthParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	r.SetPathValue("month", "active")
	if key, err := monthParam(r); err != nil || key != "" {
		t.Errorf("active alias = %q, %v", key, err)
	}
	r.SetPathValue("month", "2026-03")
	if key, err := monthParam(r); err != nil || key != "2026-03" {
		t.Errorf("month = %q, %v", key, err)
	}
	r.SetPathValue("month", "March")
	if _, err := monthParam(r); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Errorf("invalid month err = %v", err)
	}
}

func TestKindAndIndexParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("kind", "variable")
	if k, err := expenseKindParam(r); err != nil || k != core.Variable {
		t.Errorf("expense kind = %q, %v", k, err)
	}
	if _, err := incomeKindParam(r); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("variable is not an income kind, err = %v", err)
	}

	r.SetPathValue("index", "3")
	if i, err := indexParam(r); err != nil || i != 3 {
		t.Errorf("index = %d, %v", i, err)
	}
	r.SetPathValue("index", "x")
	if _, err := indexParam(r); err == nil {
		t.Error("non-numeric index accepted")
	}
}

func TestReadBackupBodyMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sorpes-backup.json")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(`{"months":{}}`))
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/backup", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	data, err := readBackupBody(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("readBackupBody: %v", err)
	}
	if string(data) != `{"months":{}}` {
		t.Errorf("data = %q", data)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Mer\x00cado\t\n "); got != "Mercado" {
		t.Errorf("sanitizeInput = %q", got)
	}
	if got := sanitizeInput("a\tb"); got != "a\tb" {
		t.Errorf("tab dropped: %q", got)
	}
}

func TestBoolQuery(t *testing.T) {
	for target, want := range map[string]bool{
		"/?confirm=true": true,
		"/?confirm=1":    true,
		"/?confirm=no":   false,
		"/":              false,
	} {
		r := httptest.NewRequest(http.MethodDelete, target, nil)
		if got := boolQuery(r, "confirm"); got != want {
			t.Errorf("%s: got %v, want %v", target, got, want)
		}
	}
}
