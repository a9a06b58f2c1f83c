package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/depositmatch/internal/model"
)

// CSVReader reads a comma-separated statement export. Rows may have
// different lengths; metadata lines above the table usually do.
type CSVReader struct{}

// Format returns the reader name.
func (c *CSVReader) Format() string { return "csv" }

// Extensions returns the file extensions this reader handles.
func (c *CSVReader) Extensions() []string { return []string{".csv"} }

// Read returns every record as a row.
func (c *CSVReader) Read(r io.Reader) (model.RawSheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return model.RawSheet{}, fmt.Errorf("reading CSV: %w", err)
	}
	return model.RawSheet{Name: "csv", Rows: records}, nil
}
