// Package google writes month summaries to a Google Sheets spreadsheet,
// one tab per year.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sorpes/internal/core"
	"sorpes/internal/log"
	ports "sorpes/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetBase = "Resumo"

var header = []any{
	"Mês", "Chave", "Fixos", "Variáveis", "Mensais", "Limites",
	"Entradas", "Futuras", "Gasto atual", "Saldo", "Saldo previsto",
}

type Config struct {
	SpreadsheetID string
	// SheetBase is the tab name without year; the year is prefixed.
	SheetBase string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets API the client needs.
type valuesAPI interface {
	titles(ctx context.Context) ([]string, error)
	addSheet(ctx context.Context, title string) error
	clear(ctx context.Context, rng string) error
	update(ctx context.Context, rng string, values [][]any) error
}

type Client struct {
	api       valuesAPI
	sheetBase string
	logger    *log.Logger
}

var _ ports.SummaryWriter = (*Client)(nil)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetBase, logger), nil
}

func newClient(api valuesAPI, base string, logger *log.Logger) *Client {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultSheetBase
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{api: api, sheetBase: base, logger: logger}
}

// newSheetsService initializes a Sheets service from service account
// credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteMonthSummaries rewrites each year's tab with its months. Tabs for
// years no longer present are left alone.
func (c *Client) WriteMonthSummaries(ctx context.Context, rows []ports.MonthSummary) error {
	if c.api == nil {
		return errors.New("sheets service not initialized")
	}

	byYear, years := groupByYear(rows)
	if len(years) == 0 {
		return nil
	}

	existing, err := c.api.titles(ctx)
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}

	for _, year := range years {
		name := yearPrefixedName(c.sheetBase, year)
		if indexOf(existing, name) < 0 {
			if err := c.api.addSheet(ctx, name); err != nil {
				return fmt.Errorf("add sheet %s: %w", name, err)
			}
			existing = append(existing, name)
		}

		values := make([][]any, 0, len(byYear[year])+1)
		values = append(values, header)
		for _, r := range byYear[year] {
			values = append(values, rowValues(r))
		}

		if err := c.api.clear(ctx, fmt.Sprintf("%s!A:K", name)); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
		rng := fmt.Sprintf("%s!A1:K%d", name, len(values))
		if err := c.api.update(ctx, rng, values); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Wrote month summaries", "sheet", name, log.FieldMonths, len(values)-1)
	}
	return nil
}

func groupByYear(rows []ports.MonthSummary) (map[int][]ports.MonthSummary, []int) {
	byYear := map[int][]ports.MonthSummary{}
	var years []int
	for _, r := range rows {
		y, _, ok := r.Month.Parts()
		if !ok {
			continue
		}
		if _, seen := byYear[y]; !seen {
			years = append(years, y)
		}
		byYear[y] = append(byYear[y], r)
	}
	return byYear, years
}

func rowValues(r ports.MonthSummary) []any {
	t := r.Totals
	return []any{
		r.Month.Label(),
		r.Month.String(),
		amount(t.TotalFixed),
		amount(t.TotalVariable),
		amount(t.TotalBlocksSpend),
		amount(t.TotalBlockLimits),
		amount(t.TotalIncome),
		amount(t.TotalFutureIncome),
		amount(t.CurrentSpend),
		amount(t.Balance),
		amount(t.ProjectedBalance),
	}
}

func amount(m core.Money) float64 { return m.Float64() }

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) titles(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			out = append(out, sh.Properties.Title)
		}
	}
	return out, nil
}

func (s *serviceValues) addSheet(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *serviceValues) clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s *serviceValues) update(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
