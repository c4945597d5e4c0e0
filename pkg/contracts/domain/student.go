package domain

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Student is a learner enrolled in one class at a time. Records dated before
// EnrollmentDate are kept but do not count toward the current class.
//
// A student who is not dropped always has an invalid DroppedDate.
type Student struct {
	ID             string      `json:"id" db:"id"`
	Name           string      `json:"name" db:"name" validate:"required"`
	ClassID        string      `json:"class_id" db:"class_id" validate:"required"`
	EnrollmentDate string      `json:"enrollment_date" db:"enrollment_date" validate:"required,isodate"`
	IsDropped      bool        `json:"is_dropped" db:"is_dropped"`
	DroppedDate    null.String `json:"dropped_date" db:"dropped_date"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// EnrollmentMonth returns the YYYY-MM prefix of the enrollment date.
func (s Student) EnrollmentMonth() string {
	return MonthOf(s.EnrollmentDate)
}

// Drop marks the student as dropped on the given ISO day.
func (s *Student) Drop(date string) {
	s.IsDropped = true
	s.DroppedDate = null.StringFrom(date)
}

// Restore clears the dropped state. A non-empty classID moves the student.
func (s *Student) Restore(classID string) {
	s.IsDropped = false
	s.DroppedDate = null.String{}
	if classID != "" {
		s.ClassID = classID
	}
}

// MonthOf truncates an ISO day (YYYY-MM-DD) to its month (YYYY-MM).
func MonthOf(isoDate string) string {
	if len(isoDate) < 7 {
		return isoDate
	}
	return isoDate[:7]
}
