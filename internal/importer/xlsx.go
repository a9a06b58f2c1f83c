package importer

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/depositmatch/internal/model"
)

// XLSXReader reads the first worksheet of an Excel workbook.
type XLSXReader struct{}

// Format returns the reader name.
func (x *XLSXReader) Format() string { return "xlsx" }

// Extensions returns the file extensions this reader handles.
func (x *XLSXReader) Extensions() []string { return []string{".xlsx", ".xlsm"} }

// Read returns the first sheet's rows. Cells are read as stored; cells
// with a date number format are rendered as DD/MM/YYYY.
func (x *XLSXReader) Read(r io.Reader) (model.RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.RawSheet{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.RawSheet{}, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.RawSheet{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	dates := make(map[int]bool)
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || serial < 1 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			if !isDateCell(f, sheet, cell, dates) {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				continue
			}
			row[c] = t.Format("02/01/2006")
		}
	}
	return model.RawSheet{Name: sheet, Rows: rows}, nil
}

// Built-in number formats that display a date.
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// Quoted literals and bracketed sections such as [Red] or [$-409].
var numFmtNoise = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

// isDateCell reports whether cell's number format displays a date.
// Results are cached per style ID in seen.
func isDateCell(f *excelize.File, sheet, cell string, seen map[int]bool) bool {
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := seen[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := f.GetStyle(styleID); err == nil {
		switch {
		case dateNumFmts[style.NumFmt]:
			isDate = true
		case style.CustomNumFmt != nil:
			code := strings.ToLower(numFmtNoise.ReplaceAllString(*style.CustomNumFmt, ""))
			isDate = strings.ContainsAny(code, "dy")
		}
	}
	seen[styleID] = isDate
	return isDate
}
