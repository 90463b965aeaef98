// Package models defines data structures for the crawler.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Certification is one badge code from the site's closed certification vocabulary.
type Certification string

const (
	FERPA Certification = "FERPA"
	COPPA Certification = "COPPA"
	CSPC  Certification = "CSPC"
	ATLIS Certification = "ATLIS"
)

// Certifications lists every known code in output column order.
var Certifications = []Certification{FERPA, COPPA, CSPC, ATLIS}

// CertificationSet maps every known certification code to its presence flag.
type CertificationSet map[Certification]bool

// NewCertificationSet returns a set with every known code present and false.
func NewCertificationSet() CertificationSet {
	set := make(CertificationSet, len(Certifications))
	for _, c := range Certifications {
		set[c] = false
	}
	return set
}

// Clone returns an independent copy so records never share a map.
func (s CertificationSet) Clone() CertificationSet {
	out := make(CertificationSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Complete reports whether the set holds exactly the known codes.
func (s CertificationSet) Complete() bool {
	if len(s) != len(Certifications) {
		return false
	}
	for _, c := range Certifications {
		if _, ok := s[c]; !ok {
			return false
		}
	}
	return true
}

// ProductRecord is one flattened product or sub-product entry.
type ProductRecord struct {
	ID             *int             `json:"iks_id"`
	Name           string           `json:"product_name"`
	Company        string           `json:"product_company"`
	Website        string           `json:"website"`
	Certifications CertificationSet `json:"certifications"`
}

// IDString renders the identifier, or an empty string when absent.
func (r ProductRecord) IDString() string {
	if r.ID == nil {
		return ""
	}
	return strconv.Itoa(*r.ID)
}

// Clone deep-copies the record.
func (r ProductRecord) Clone() ProductRecord {
	out := r
	if r.ID != nil {
		id := *r.ID
		out.ID = &id
	}
	out.Certifications = r.Certifications.Clone()
	return out
}

// Columns is the persisted table header, one certification column per code.
func Columns() []string {
	cols := []string{"IKS ID", "Product Name", "Product Company", "Website"}
	for _, c := range Certifications {
		cols = append(cols, string(c))
	}
	return cols
}

// Row renders the record in Columns order. Flags are TRUE or FALSE so that
// spreadsheets read them as booleans.
func (r ProductRecord) Row() []string {
	row := []string{r.IDString(), r.Name, r.Company, r.Website}
	for _, c := range Certifications {
		if r.Certifications[c] {
			row = append(row, "TRUE")
		} else {
			row = append(row, "FALSE")
		}
	}
	return row
}

// RecordFromRow is the inverse of Row. Columns are matched by header name, so
// reordered or extra columns are tolerated; missing certification columns are not.
func RecordFromRow(header, row []string) (ProductRecord, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	cell := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return "", ok
		}
		return strings.TrimSpace(row[i]), true
	}

	rec := ProductRecord{Certifications: NewCertificationSet()}
	if v, _ := cell("IKS ID"); v != "" {
		id, err := parseID(v)
		if err != nil {
			return ProductRecord{}, fmt.Errorf("IKS ID %q: %w", v, err)
		}
		rec.ID = &id
	}
	rec.Name, _ = cell("Product Name")
	rec.Company, _ = cell("Product Company")
	rec.Website, _ = cell("Website")

	for _, c := range Certifications {
		v, ok := cell(string(c))
		if !ok {
			return ProductRecord{}, fmt.Errorf("missing column %s", c)
		}
		if v == "" {
			continue
		}
		flag, err := strconv.ParseBool(v)
		if err != nil {
			return ProductRecord{}, fmt.Errorf("%s %q: %w", c, v, err)
		}
		rec.Certifications[c] = flag
	}
	return rec, nil
}

// parseID accepts integers and the "7.0" form spreadsheet exports produce.
func parseID(v string) (int, error) {
	if id, err := strconv.Atoi(v); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}

// CrawlResult holds the overall result of a crawl.
type CrawlResult struct {
	Records           []ProductRecord
	TotalCount        int
	PageCount         int
	SubProductParents []string
	FinalState        string
	StopReason        string
	Partial           bool
	StartTime         time.Time
	EndTime           time.Time
}
