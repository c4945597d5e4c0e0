// Package ingest converts loosely structured spreadsheets into canonical
// import rows.
//
// Input is a Grid: a 2-D array of typed cells (empty, text or number) read
// from an XLSX workbook or a CSV file. Each parser locates its header row by
// matching normalized header text against synonym lists, first by exact match
// and then by substring, and reports which strategy fired through
// ColumnMatch.
//
// # Failure model
//
// A structurally broken file (fewer than two rows, a required column
// missing) produces Errors and no rows. A bad value in one row produces a
// Warning and skips that row only. Rows without a student name are skipped
// silently. Parsers never return a Go error; only ReadGrid and ReadFile do,
// and only when the bytes cannot be read at all.
//
// # Parsers
//
//   - ParseCasas: CASAS results, split into reading and listening by form
//     suffix. Civics forms are dropped.
//   - ParseAttendance: hours attended vs. scheduled, converted to a
//     percentage rounded to one decimal.
//   - ParseUnitTests: either one score per row, or a wide progress tracker
//     with one column per test.
//   - ParseTutoring: a First/Last name grid with month columns whose cells
//     hold Excel dates or M/D tokens.
package ingest
