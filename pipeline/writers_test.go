package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-certs/models"
)

func sampleRecords() []*models.ProductRecord {
	id := 42
	certs := models.NewCertificationSet()
	certs[models.COPPA] = true
	certs[models.ATLIS] = true
	return []*models.ProductRecord{
		{ID: &id, Name: "Reading Rocket", Company: "Rocket Co", Website: "https://rocket.test", Certifications: certs},
		{Name: "No ID", Company: "Plain Co", Certifications: models.NewCertificationSet()},
	}
}

func TestDatedFilename(t *testing.T) {
	day := time.Date(2025, 1, 7, 23, 59, 0, 0, time.UTC)
	got := DatedFilename("data", "iKeepSafe_certs", day, "csv")
	want := filepath.Join("data", "iKeepSafe_certs_2025-01-07.csv")
	if got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "certs.csv")

	writer, err := NewCSVWriter(path, false)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d, want 3", len(rows))
	}
	wantHeader := []string{"IKS ID", "Product Name", "Product Company", "Website", "FERPA", "COPPA", "CSPC", "ATLIS"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}
	wantFirst := []string{"42", "Reading Rocket", "Rocket Co", "https://rocket.test", "FALSE", "TRUE", "FALSE", "TRUE"}
	for i, v := range wantFirst {
		if rows[1][i] != v {
			t.Fatalf("row = %v, want %v", rows[1], wantFirst)
		}
	}
	if rows[2][0] != "" {
		t.Fatalf("missing id should be empty, got %q", rows[2][0])
	}
}

func TestCheckAvailable(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "certs.csv")
	jsonPath := filepath.Join(dir, "certs.jsonl")

	if err := CheckAvailable(false, csvPath, jsonPath); err != nil {
		t.Fatalf("fresh paths: %v", err)
	}
	if err := os.WriteFile(jsonPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	err := CheckAvailable(false, csvPath, jsonPath)
	if !errors.Is(err, ErrOutputExists) {
		t.Fatalf("expected ErrOutputExists, got %v", err)
	}
	if !strings.Contains(err.Error(), "certs.jsonl") {
		t.Fatalf("error should name the existing file: %v", err)
	}
	if err := CheckAvailable(true, csvPath, jsonPath); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestCSVWriterRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.csv")
	if err := os.WriteFile(path, []byte("keep me\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := NewCSVWriter(path, false); !errors.Is(err, ErrOutputExists) {
		t.Fatalf("expected ErrOutputExists, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "keep me\n" {
		t.Fatalf("existing file modified: %q (%v)", data, err)
	}

	writer, err := NewCSVWriter(path, true)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	records, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want header only", len(records))
	}
}

func TestReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.csv")
	writer, err := NewCSVWriter(path, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in := sampleRecords()
	if err := writer.Write(in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("records = %d, want %d", len(out), len(in))
	}
	if out[0].ID == nil || *out[0].ID != 42 || out[1].ID != nil {
		t.Fatalf("ids = %v, %v", out[0].ID, out[1].ID)
	}
	if !out[0].Certifications[models.COPPA] || out[0].Certifications[models.FERPA] {
		t.Fatalf("certifications = %v", out[0].Certifications)
	}
	if !out[1].Certifications.Complete() {
		t.Fatalf("certifications incomplete: %v", out[1].Certifications)
	}
}

func TestReadCSVErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadCSV(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.csv")
	content := "IKS ID,Product Name,Product Company,Website,FERPA,COPPA,CSPC\n1,A,B,,TRUE,FALSE,FALSE\n"
	if err := os.WriteFile(bad, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadCSV(bad); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certs.jsonl")

	writer, err := NewJSONWriter(path, false)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.ProductRecord
	for scanner.Scan() {
		var rec models.ProductRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json lines=%d, want 2", len(decoded))
	}
	if decoded[1].ID != nil {
		t.Fatalf("absent id should decode as null")
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "certs.csv")
	jsonPath := filepath.Join(dir, "certs.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath, false)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleRecords()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestDualWriterExistingJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "certs.jsonl")
	if err := os.WriteFile(jsonPath, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := NewDualWriter(filepath.Join(dir, "certs.csv"), jsonPath, false); !errors.Is(err, ErrOutputExists) {
		t.Fatalf("expected ErrOutputExists, got %v", err)
	}
}
