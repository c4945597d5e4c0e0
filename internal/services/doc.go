// Package services orchestrates the gradebook: it loads records from a
// store.Repository, runs the calculation packages over them and writes
// imported spreadsheets back.
//
//   - GradebookService builds ranked rosters, single-student views and
//     retention reports.
//   - ImportService reads a CSV or XLSX upload, parses it by kind,
//     resolves each name to a student (creating new students on first
//     sight) and saves the rows.
//   - RecordService manages classes, students, drops and restores, unit
//     test column renames and vacation months.
//   - HealthService reports liveness and store readiness.
//
// Failures are returned as *errors.AppError so the HTTP layer can map
// them to problem responses. Each service records OpenTelemetry spans
// under TracerName and, through Metrics, the import and roster counters.
package services
