package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM helps Excel recognize UTF-8 CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus records of equal width.
type Table struct {
	Headers []string
	Records [][]string
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool
}

// WriteCSV writes the table to w.
func WriteCSV(w io.Writer, t Table, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(t.Headers) > 0 {
		if err := writer.Write(t.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range t.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
