// Package report summarises a crawl for the terminal.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aluiziolira/go-scrape-certs/models"
)

// Summary counts products per certification code.
type Summary struct {
	Rows   int
	Counts map[models.Certification]int
	Total  int
}

// Summarize tallies records. Total is the sum of the per-code counts, so a
// product holding two badges counts twice.
func Summarize(records []models.ProductRecord) Summary {
	s := Summary{Rows: len(records), Counts: make(map[models.Certification]int, len(models.Certifications))}
	for _, c := range models.Certifications {
		s.Counts[c] = 0
	}
	for _, rec := range records {
		for _, c := range models.Certifications {
			if rec.Certifications[c] {
				s.Counts[c]++
				s.Total++
			}
		}
	}
	return s
}

// Render writes the summary table followed by a preview of up to preview
// records.
func Render(w io.Writer, records []models.ProductRecord, preview int) Summary {
	s := Summarize(records)

	if preview > 0 && len(records) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		header := table.Row{}
		for _, col := range models.Columns() {
			header = append(header, col)
		}
		t.AppendHeader(header)
		for _, rec := range records[:min(preview, len(records))] {
			row := table.Row{}
			for _, cell := range rec.Row() {
				row = append(row, cell)
			}
			t.AppendRow(row)
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Certification", "Products"})
	for _, c := range models.Certifications {
		t.AppendRow(table.Row{string(c), s.Counts[c]})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total", s.Total})
	t.AppendFooter(table.Row{"Rows", s.Rows})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return s
}
