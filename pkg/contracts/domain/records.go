package domain

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// TestType distinguishes the two CASAS skill areas.
type TestType string

const (
	TestTypeReading   TestType = "reading"
	TestTypeListening TestType = "listening"
)

// CasasTest is one administration of a CASAS test. An invalid Score means the
// administration was marked invalid on the source sheet; the record still
// exists but is excluded from every average.
type CasasTest struct {
	ID         string       `json:"id" db:"id"`
	StudentID  string       `json:"student_id" db:"student_id" validate:"required"`
	Type       TestType     `json:"type" db:"type" validate:"required,oneof=reading listening"`
	Date       string       `json:"date" db:"date" validate:"required,isodate"`
	FormNumber string       `json:"form_number" db:"form_number"`
	Score      null.Float64 `json:"score" db:"score"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// UnitTest is a classroom test score. TestName and Date together identify
// the test column shared by every student in the class.
type UnitTest struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id" validate:"required"`
	TestName  string    `json:"test_name" db:"test_name" validate:"required"`
	Date      string    `json:"date" db:"date" validate:"required,isodate"`
	Score     float64   `json:"score" db:"score" validate:"min=0,max=100"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Attendance is a student's attendance percentage for one month. Percentage
// may exceed 100 when recorded hours exceed scheduled hours.
type Attendance struct {
	ID         string    `json:"id" db:"id"`
	StudentID  string    `json:"student_id" db:"student_id" validate:"required"`
	Month      string    `json:"month" db:"month" validate:"required,isomonth"`
	Percentage float64   `json:"percentage" db:"percentage" validate:"min=0"`
	IsVacation bool      `json:"is_vacation" db:"is_vacation"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Present reports whether the record shows real attendance: not a vacation
// month and a positive percentage.
func (a Attendance) Present() bool {
	return !a.IsVacation && a.Percentage > 0
}

// TutoringSession records that a student attended tutoring on a day.
type TutoringSession struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id" validate:"required"`
	Date      string    `json:"date" db:"date" validate:"required,isodate"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
