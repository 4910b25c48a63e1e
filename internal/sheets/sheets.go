// Package sheets stores poll rows in a Google Sheets worksheet: header in
// row 1, one row per user, user id in column B.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"availability-bot/internal/tablestore"
	"availability-bot/pkg/logger"
)

const DefaultSheetName = "Sheet1"

var ErrSheetNotFound = errors.New("worksheet not found")

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

type Store struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	log           *zap.Logger

	mu        sync.Mutex
	formatted bool
}

var (
	_ tablestore.Store     = (*Store)(nil)
	_ tablestore.Formatter = (*Store)(nil)
)

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

func NewWithService(svc *gsheets.Service, spreadsheetID, sheetName string, log *zap.Logger) *Store {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log.With(zap.String(logger.FieldBackend, "sheets")),
	}
}

func (s *Store) EnsureHeader(ctx context.Context, columns []string) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("failed to read header: %w", err))
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(columns)}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.a1("A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("failed to write header: %w", err))
	}

	s.log.Info("Header row created", zap.Int("columns", len(columns)))
	return nil
}

// FindRowByUserID returns the 1-based sheet row number of the user's row.
func (s *Store) FindRowByUserID(ctx context.Context, userID string) (int, bool, error) {
	col := columnName(tablestore.UserIDColumn)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1(col+":"+col)).Context(ctx).Do()
	if err != nil {
		return 0, false, classify(fmt.Errorf("failed to scan user ids: %w", err))
	}

	for i, v := range resp.Values {
		if i == 0 || len(v) == 0 {
			continue
		}
		if fmt.Sprint(v[0]) == userID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) WriteRow(ctx context.Context, index int, row []string) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(row)}}

	if index == tablestore.Append {
		_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.a1("A1"), vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return classify(fmt.Errorf("failed to append row: %w", err))
		}
		return nil
	}

	if index < 2 {
		return fmt.Errorf("refusing to overwrite header row %d", index)
	}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.a1(fmt.Sprintf("A%d", index)), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("failed to update row %d: %w", index, err))
	}
	return nil
}

// ApplyFormatting bolds and freezes the header, sizes the columns and
// highlights selected days. It runs once per process.
func (s *Store) ApplyFormatting(ctx context.Context, spec tablestore.FormatSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.formatted {
		return nil
	}

	sheet, err := s.lookupSheet(ctx)
	if err != nil {
		return err
	}
	sheetID := sheet.Properties.SheetId

	header := &gsheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: int64(spec.HeaderRows)}
	days := &gsheets.GridRange{
		SheetId:          sheetID,
		StartRowIndex:    int64(spec.HeaderRows),
		StartColumnIndex: int64(spec.FirstDayCol),
		EndColumnIndex:   int64(spec.Columns),
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{
		{RepeatCell: &gsheets.RepeatCellRequest{
			Range: header,
			Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
				TextFormat: &gsheets.TextFormat{Bold: true},
			}},
			Fields: "userEnteredFormat.textFormat.bold",
		}},
		{UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
			Properties: &gsheets.SheetProperties{
				SheetId:        sheetID,
				GridProperties: &gsheets.GridProperties{FrozenRowCount: int64(spec.HeaderRows)},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
		{AutoResizeDimensions: &gsheets.AutoResizeDimensionsRequest{
			Dimensions: &gsheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: 0,
				EndIndex:   int64(spec.Columns),
			},
		}},
	}}

	// The rule lives in the sheet, so it may exist from an earlier run.
	if !hasHighlightRule(sheet, spec) {
		req.Requests = append(req.Requests, &gsheets.Request{AddConditionalFormatRule: &gsheets.AddConditionalFormatRuleRequest{
			Rule: &gsheets.ConditionalFormatRule{
				Ranges: []*gsheets.GridRange{days},
				BooleanRule: &gsheets.BooleanRule{
					Condition: &gsheets.BooleanCondition{
						Type:   "TEXT_EQ",
						Values: []*gsheets.ConditionValue{{UserEnteredValue: spec.HighlightVal}},
					},
					Format: &gsheets.CellFormat{
						BackgroundColor: &gsheets.Color{Red: 0.72, Green: 0.88, Blue: 0.8},
					},
				},
			},
		}})
	}

	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to format sheet: %w", err)
	}

	s.formatted = true
	return nil
}

func (s *Store) lookupSheet(ctx context.Context) (*gsheets.Sheet, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets(properties(sheetId,title),conditionalFormats)").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheetName {
			return sh, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, s.sheetName)
}

// hasHighlightRule reports whether the sheet already highlights day cells
// equal to spec.HighlightVal.
func hasHighlightRule(sheet *gsheets.Sheet, spec tablestore.FormatSpec) bool {
	for _, rule := range sheet.ConditionalFormats {
		br := rule.BooleanRule
		if br == nil || br.Condition == nil || br.Condition.Type != "TEXT_EQ" {
			continue
		}
		if len(br.Condition.Values) != 1 || br.Condition.Values[0].UserEnteredValue != spec.HighlightVal {
			continue
		}
		for _, r := range rule.Ranges {
			if r.SheetId == sheet.Properties.SheetId && r.StartColumnIndex == int64(spec.FirstDayCol) {
				return true
			}
		}
	}
	return false
}

func (s *Store) a1(r string) string {
	return fmt.Sprintf("'%s'!%s", s.sheetName, r)
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// columnName converts a zero-based column index to its A1 letters.
func columnName(i int) string {
	name := ""
	for i++; i > 0; i = (i - 1) / 26 {
		name = string(rune('A'+(i-1)%26)) + name
	}
	return name
}

// classify maps API failures onto the table store error kinds. Errors such
// as a missing spreadsheet or denied permission are returned unchanged.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", tablestore.ErrQuota, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", tablestore.ErrTransport, err)
		}
		for _, item := range apiErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return fmt.Errorf("%w: %w", tablestore.ErrQuota, err)
			}
		}
		return err
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", tablestore.ErrTransport, err)
	}

	return err
}
