package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Google is a Spreadsheet backed by the Sheets v4 API.
type Google struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewGoogle connects to one spreadsheet. Pass option.WithCredentialsFile for a
// service account key.
func NewGoogle(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Google, error) {
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Google{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *Google) Worksheet(ctx context.Context, index int) (Worksheet, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	if index < 0 || index >= len(ss.Sheets) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrWorksheetNotFound, index, len(ss.Sheets))
	}
	return &googleWorksheet{g: g, title: ss.Sheets[index].Properties.Title}, nil
}

func (g *Google) AddWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error) {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title: title,
					GridProperties: &gsheets.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		title = resp.Replies[0].AddSheet.Properties.Title
	}
	return &googleWorksheet{g: g, title: title}, nil
}

type googleWorksheet struct {
	g     *Google
	title string
}

func (w *googleWorksheet) Title() string {
	return w.title
}

func (w *googleWorksheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := w.g.svc.Spreadsheets.Values.Get(w.g.spreadsheetID, a1(w.title, "")).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return fromCells(resp.Values), nil
}

func (w *googleWorksheet) Update(ctx context.Context, rows [][]string) error {
	vr := &gsheets.ValueRange{Values: toCells(rows)}
	_, err := w.g.svc.Spreadsheets.Values.Update(w.g.spreadsheetID, a1(w.title, "A1"), vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (w *googleWorksheet) AppendRow(ctx context.Context, row []string) error {
	vr := &gsheets.ValueRange{Values: toCells([][]string{row})}
	_, err := w.g.svc.Spreadsheets.Values.Append(w.g.spreadsheetID, a1(w.title, ""), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// a1 quotes a sheet title for A1 notation, optionally followed by a cell.
func a1(title, cell string) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

func toCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func fromCells(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out
}
