package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadGrid loads the first non-empty sheet of a workbook, or a CSV file,
// into a Grid. name is only used to pick the format.
func ReadGrid(name string, r io.Reader) (Grid, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))

	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xlsx" || ext == ".xlsm" || bytes.Equal(head, zipMagic) {
		return readWorkbook(br)
	}
	return readCSV(br)
}

// ReadFile opens path and reads it with ReadGrid.
func ReadFile(ctx context.Context, path string) (Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	g, err := ReadGrid(path, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	slog.DebugContext(ctx, "Read spreadsheet",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", len(g)))
	return g, nil
}

func readWorkbook(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	// Raw values keep dates as serial numbers instead of whatever display
	// format the sheet uses.
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) > 0 {
			return GridFromStrings(rows), nil
		}
	}
	return Grid{}, nil
}

func readCSV(r *bufio.Reader) (Grid, error) {
	if b, _ := r.Peek(len(utf8BOM)); bytes.Equal(b, utf8BOM) {
		_, _ = r.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return GridFromStrings(rows), nil
}
