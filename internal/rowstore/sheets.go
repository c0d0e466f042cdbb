package rowstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets talks to the Google Sheets API. The spreadsheet ID is the fixed
// identifier of the backing record store.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheets builds a Sheets store. credentialsFile may be empty, in which
// case application default credentials are used.
func NewSheets(ctx context.Context, spreadsheetID, credentialsFile string) (*Sheets, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("rowstore: sheets client: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// FindRow fetches the used range of tab and matches column col cell-exactly.
func (s *Sheets) FindRow(ctx context.Context, tab string, col int, value string) ([]string, bool, error) {
	rows, err := s.values(ctx, tab)
	if err != nil {
		if isMissingTab(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	for _, row := range rows {
		if col < len(row) && cellString(row[col]) == value {
			return toStrings(row), true, nil
		}
	}
	return nil, false, nil
}

// ReadTail returns up to n of the newest data rows of tab in append order.
func (s *Sheets) ReadTail(ctx context.Context, tab string, n int) ([][]string, error) {
	rows, err := s.values(ctx, tab)
	if err != nil {
		if isMissingTab(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}
	data := rows[1:]
	if len(data) > n {
		data = data[len(data)-n:]
	}
	out := make([][]string, len(data))
	for i, row := range data {
		out[i] = toStrings(row)
	}
	return out, nil
}

// Append writes row below the used range of tab, creating the tab with its
// header first when it does not exist.
func (s *Sheets) Append(ctx context.Context, tab string, header, row []string) error {
	exists, err := s.tabExists(ctx, tab)
	if err != nil {
		return err
	}
	if !exists {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: tab},
				},
			}},
		}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("rowstore: create tab %s: %w", tab, err)
		}
		if err := s.appendRow(ctx, tab, header); err != nil {
			return err
		}
	}
	return s.appendRow(ctx, tab, row)
}

func (s *Sheets) appendRow(ctx context.Context, tab string, row []string) error {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{cells}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rangeFor(tab), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("rowstore: append to %s: %w", tab, err)
	}
	return nil
}

func (s *Sheets) values(ctx context.Context, tab string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rangeFor(tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("rowstore: read %s: %w", tab, err)
	}
	return resp.Values, nil
}

func (s *Sheets) tabExists(ctx context.Context, tab string) (bool, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("rowstore: list tabs: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return true, nil
		}
	}
	return false, nil
}

func rangeFor(tab string) string {
	return fmt.Sprintf("'%s'!A:Z", tab)
}

// isMissingTab reports whether err is the API rejecting a range that names
// a tab the spreadsheet does not have. Other 400s (malformed requests)
// must still surface as store faults.
func isMissingTab(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) &&
		apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range")
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}
