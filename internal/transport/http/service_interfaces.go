package http

import (
	"context"
	"io"

	"gradebook/internal/retention"
	"gradebook/internal/services"
	"gradebook/pkg/contracts/domain"
)

// RecordService manages classes, students and single records
type RecordService interface {
	Classes(ctx context.Context) ([]domain.Class, error)
	Class(ctx context.Context, id string) (domain.Class, error)
	SaveClass(ctx context.Context, c *domain.Class) error
	Students(ctx context.Context, classID string, includeDropped bool) ([]domain.Student, error)
	Student(ctx context.Context, id string) (domain.Student, error)
	SaveStudent(ctx context.Context, st *domain.Student) error
	DropStudent(ctx context.Context, id, date string) (domain.Student, error)
	RestoreStudent(ctx context.Context, id, classID string) (domain.Student, error)
	RenameUnitTest(ctx context.Context, classID string, from, to services.UnitTestColumn) (int, error)
	SetVacation(ctx context.Context, studentID, month string, vacation bool) (domain.Attendance, error)
	History(ctx context.Context, studentID string) (services.StudentHistory, error)
}

// GradebookService computes derived metrics
type GradebookService interface {
	Roster(ctx context.Context, classID string) (services.Roster, error)
	Student(ctx context.Context, studentID string) (services.RosterEntry, error)
	Retention(ctx context.Context, classID string, year domain.SchoolYear) (retention.Report, error)
}

// ImportService ingests uploaded spreadsheets
type ImportService interface {
	Import(ctx context.Context, req services.ImportRequest, r io.Reader) (services.ImportSummary, error)
}

var (
	_ RecordService    = (*services.RecordService)(nil)
	_ GradebookService = (*services.GradebookService)(nil)
	_ ImportService    = (*services.ImportService)(nil)
)
