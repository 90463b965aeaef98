// Package sheets publishes crawl results to a spreadsheet and reads earlier
// runs back for comparison.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-certs/config"
	"github.com/aluiziolira/go-scrape-certs/models"
)

// ErrWorksheetNotFound is returned for an index past the last worksheet.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// Minimum grid for new worksheets; larger tables grow it.
const (
	minRows = 100
	minCols = 20
)

// Worksheet is one tab of a spreadsheet.
type Worksheet interface {
	Title() string
	Values(ctx context.Context) ([][]string, error)
	Update(ctx context.Context, rows [][]string) error
	AppendRow(ctx context.Context, row []string) error
}

// Spreadsheet resolves and creates worksheets.
type Spreadsheet interface {
	Worksheet(ctx context.Context, index int) (Worksheet, error)
	AddWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error)
}

// Table is a worksheet's content split into header and data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records converts rows written in the crawler's own column layout.
func (t Table) Records() ([]models.ProductRecord, error) {
	records := make([]models.ProductRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec, err := models.RecordFromRow(t.Header, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Sheets wraps a Spreadsheet with an optional default worksheet index.
// Every index-taking call prefers its own argument over the default.
type Sheets struct {
	book         Spreadsheet
	defaultIndex *int
}

// New wraps book. defaultIndex may be nil.
func New(book Spreadsheet, defaultIndex *int) *Sheets {
	return &Sheets{book: book, defaultIndex: defaultIndex}
}

// ReadSheet returns the worksheet's content.
func (s *Sheets) ReadSheet(ctx context.Context, index *int) (Table, error) {
	ws, err := s.worksheet(ctx, index)
	if err != nil {
		return Table{}, err
	}
	values, err := ws.Values(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("read worksheet %q: %w", ws.Title(), err)
	}
	if len(values) == 0 {
		return Table{}, nil
	}
	return Table{Header: values[0], Rows: values[1:]}, nil
}

// CreateWriteSheet adds a worksheet titled title and fills it with records.
func (s *Sheets) CreateWriteSheet(ctx context.Context, title string, records []models.ProductRecord) error {
	rows := tableRows(records)
	ws, err := s.book.AddWorksheet(ctx, title, max(minRows, len(rows)), max(minCols, len(rows[0])))
	if err != nil {
		return fmt.Errorf("add worksheet %q: %w", title, err)
	}
	if err := ws.Update(ctx, rows); err != nil {
		return fmt.Errorf("write worksheet %q: %w", title, err)
	}
	return nil
}

// WriteSheet overwrites an existing worksheet from A1.
func (s *Sheets) WriteSheet(ctx context.Context, records []models.ProductRecord, index *int) error {
	ws, err := s.worksheet(ctx, index)
	if err != nil {
		return err
	}
	if err := ws.Update(ctx, tableRows(records)); err != nil {
		return fmt.Errorf("write worksheet %q: %w", ws.Title(), err)
	}
	return nil
}

// AppendRow adds one row after the worksheet's last data row.
func (s *Sheets) AppendRow(ctx context.Context, row []string, index *int) error {
	ws, err := s.worksheet(ctx, index)
	if err != nil {
		return err
	}
	if err := ws.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append to worksheet %q: %w", ws.Title(), err)
	}
	return nil
}

func (s *Sheets) worksheet(ctx context.Context, index *int) (Worksheet, error) {
	idx, err := s.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	return s.book.Worksheet(ctx, idx)
}

func (s *Sheets) resolveIndex(index *int) (int, error) {
	if index == nil {
		index = s.defaultIndex
	}
	if index == nil {
		return 0, fmt.Errorf("%w: no worksheet index given and no default configured", config.ErrConfiguration)
	}
	if *index < 0 {
		return 0, fmt.Errorf("%w: worksheet index %d is negative", config.ErrConfiguration, *index)
	}
	return *index, nil
}

func tableRows(records []models.ProductRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, models.Columns())
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	return rows
}
