// Package exporter turns computed gradebook views into downloadable
// tables.
//
// A Table is built from a view (RosterTable) and written as CSV with an
// optional UTF-8 BOM so Excel detects the encoding, or as an XLSX
// workbook.
//
//	t := exporter.RosterTable(roster)
//	err := exporter.WriteCSV(w, t, exporter.WriteOptions{BOMPrefix: true})
package exporter
