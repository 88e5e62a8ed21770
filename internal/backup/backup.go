// Package backup exports and imports whole-state JSON documents.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sorpes/internal/core"
	"sorpes/internal/state"
)

// ErrInvalidBackup is returned when a file is not a state document.
var ErrInvalidBackup = errors.New("invalid file")

const filenameLayout = "2006-01-02-1504"

// Filename returns the export file name for a backup taken at now, e.g.
// "sorpes-backup-2026-03-14-0905.json".
func Filename(now time.Time) string {
	return "sorpes-backup-" + now.Format(filenameLayout) + ".json"
}

// Export serialises doc as an indented JSON backup.
func Export(doc *state.Document, now time.Time) (filename string, data []byte, err error) {
	if doc == nil {
		return "", nil, errors.New("nothing to export")
	}
	data, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return Filename(now), data, nil
}

// Import parses a backup file. The file must be a JSON object whose months
// field ("months", or "meses" in documents written by the browser app) is
// an object. When the file carries no usable owner list the current roster
// is kept. Active month and year are repaired when the document is turned
// into a State.
func Import(data []byte, currentOwners []core.Owner) (*state.Document, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	doc, ok := decodeDocument(raw)
	if !ok {
		return nil, ErrInvalidBackup
	}
	if doc.Owners == nil {
		doc.Owners = append([]core.Owner{}, currentOwners...)
	}
	return doc, nil
}

// Decode reads a stored document leniently, for loading from storage. On
// top of what Import accepts it understands the oldest single-month layout,
// whose lists sit at the top level; that month is filed under seed.
// A document without months decodes to an empty document.
func Decode(data []byte, seed core.MonthKey) (*state.Document, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	if doc, ok := decodeDocument(raw); ok {
		return doc, nil
	}
	if isSingleMonth(raw) {
		var lm legacyMonth
		if err := json.Unmarshal(data, &lm); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		return &state.Document{
			Months:      map[core.MonthKey]*core.MonthData{seed: lm.toMonthData()},
			ActiveMonth: seed,
			ActiveYear:  seed.Year(),
			Owners:      decodeOwners(raw),
		}, nil
	}
	return &state.Document{Owners: decodeOwners(raw)}, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, ErrInvalidBackup
	}
	return raw, nil
}

func isJSONObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func isJSONArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

// decodeDocument handles both the current and the legacy multi-month
// layout. ok is false when neither months field is an object.
func decodeDocument(raw map[string]json.RawMessage) (*state.Document, bool) {
	if v, found := raw["months"]; found && isJSONObject(v) {
		var months map[core.MonthKey]*core.MonthData
		if err := json.Unmarshal(v, &months); err != nil {
			return nil, false
		}
		doc := &state.Document{Months: months, Owners: decodeOwners(raw)}
		unmarshalString(raw["activeMonth"], (*string)(&doc.ActiveMonth))
		unmarshalString(raw["activeYear"], &doc.ActiveYear)
		return doc, true
	}
	if v, found := raw["meses"]; found && isJSONObject(v) {
		var legacy map[core.MonthKey]legacyMonth
		if err := json.Unmarshal(v, &legacy); err != nil {
			return nil, false
		}
		doc := &state.Document{
			Months: make(map[core.MonthKey]*core.MonthData, len(legacy)),
			Owners: decodeOwners(raw),
		}
		for k, lm := range legacy {
			doc.Months[k] = lm.toMonthData()
		}
		unmarshalString(raw["mesAtivo"], (*string)(&doc.ActiveMonth))
		unmarshalString(raw["anoAtivo"], &doc.ActiveYear)
		return doc, true
	}
	return nil, false
}

// decodeOwners returns nil unless the document carries an owner array.
func decodeOwners(raw map[string]json.RawMessage) []core.Owner {
	if v, ok := raw["owners"]; ok && isJSONArray(v) {
		var owners []core.Owner
		if err := json.Unmarshal(v, &owners); err == nil {
			return owners
		}
	}
	if v, ok := raw["usuarios"]; ok && isJSONArray(v) {
		var legacy []legacyOwner
		if err := json.Unmarshal(v, &legacy); err == nil {
			owners := make([]core.Owner, 0, len(legacy))
			for _, o := range legacy {
				owners = append(owners, core.Owner{ID: o.ID, Name: o.Nome})
			}
			return owners
		}
	}
	return nil
}

func unmarshalString(v json.RawMessage, dst *string) {
	if v == nil {
		return
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		*dst = s
	}
}

// Due reports whether a backup should be suggested: none was ever taken,
// or the last one was not taken today.
func Due(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	last = last.In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}
