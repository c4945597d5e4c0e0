package store

import (
	"fmt"
	"slices"
	"strings"
)

// The schema is portable between SQLite and PostgreSQL. Timestamps are
// stored as Unix microseconds.
const schema = `
CREATE TABLE IF NOT EXISTS classes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  casas_reading_level_start DOUBLE PRECISION NOT NULL DEFAULT 0,
  casas_reading_target DOUBLE PRECISION NOT NULL DEFAULT 0,
  casas_listening_level_start DOUBLE PRECISION NOT NULL DEFAULT 0,
  casas_listening_target DOUBLE PRECISION NOT NULL DEFAULT 0,
  weight_casas_reading DOUBLE PRECISION NOT NULL DEFAULT 25,
  weight_casas_listening DOUBLE PRECISION NOT NULL DEFAULT 25,
  weight_tests DOUBLE PRECISION NOT NULL DEFAULT 25,
  weight_attendance DOUBLE PRECISION NOT NULL DEFAULT 25,
  threshold_good DOUBLE PRECISION NOT NULL DEFAULT 80,
  threshold_warning DOUBLE PRECISION NOT NULL DEFAULT 60,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  class_id TEXT NOT NULL,
  enrollment_date TEXT NOT NULL,
  is_dropped BOOLEAN NOT NULL DEFAULT FALSE,
  dropped_date TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS students_class ON students (class_id);

CREATE TABLE IF NOT EXISTS casas_tests (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  type TEXT NOT NULL,
  date TEXT NOT NULL,
  form_number TEXT NOT NULL DEFAULT '',
  score DOUBLE PRECISION,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, type, date, form_number)
);

CREATE TABLE IF NOT EXISTS unit_tests (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  test_name TEXT NOT NULL,
  date TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, test_name, date)
);

CREATE TABLE IF NOT EXISTS attendance (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  month TEXT NOT NULL,
  percentage DOUBLE PRECISION NOT NULL,
  is_vacation BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, month)
);

CREATE TABLE IF NOT EXISTS tutoring_sessions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  date TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (student_id, date)
);
`

// table describes one record table. Columns are always id, then fields,
// then created_at and updated_at.
type table struct {
	name    string
	fields  []string
	natural []string
}

var (
	classTable = table{name: "classes", fields: []string{
		"name",
		"casas_reading_level_start", "casas_reading_target",
		"casas_listening_level_start", "casas_listening_target",
		"weight_casas_reading", "weight_casas_listening", "weight_tests", "weight_attendance",
		"threshold_good", "threshold_warning",
	}}
	studentTable = table{name: "students", fields: []string{
		"name", "class_id", "enrollment_date", "is_dropped", "dropped_date",
	}}
	casasTable = table{
		name:    "casas_tests",
		fields:  []string{"student_id", "type", "date", "form_number", "score"},
		natural: []string{"student_id", "type", "date", "form_number"},
	}
	unitTestTable = table{
		name:    "unit_tests",
		fields:  []string{"student_id", "test_name", "date", "score"},
		natural: []string{"student_id", "test_name", "date"},
	}
	attendanceTable = table{
		name:    "attendance",
		fields:  []string{"student_id", "month", "percentage", "is_vacation"},
		natural: []string{"student_id", "month"},
	}
	tutoringTable = table{
		name:    "tutoring_sessions",
		fields:  []string{"student_id", "date"},
		natural: []string{"student_id", "date"},
	}
)

func (t table) columns() []string {
	cols := append([]string{"id"}, t.fields...)
	return append(cols, "created_at", "updated_at")
}

func (t table) selectFrom() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns(), ", "), t.name)
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

func (t table) insert(conflict, update []string) string {
	set := make([]string, len(update))
	for i, c := range update {
		set[i] = c + " = excluded." + c
	}
	cols := t.columns()
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING id, created_at",
		t.name, strings.Join(cols, ", "), placeholders(len(cols)),
		strings.Join(conflict, ", "), strings.Join(set, ", "))
}

// save inserts or, on a natural key collision, updates the existing row.
// Tables without a natural key collide on id.
func (t table) save() string {
	conflict := t.natural
	if len(conflict) == 0 {
		conflict = []string{"id"}
	}
	var update []string
	for _, f := range t.fields {
		if !slices.Contains(conflict, f) {
			update = append(update, f)
		}
	}
	return t.insert(conflict, append(update, "updated_at"))
}

// restore writes a row exactly as given, keyed by id.
func (t table) restore() string {
	return t.insert([]string{"id"}, append(append([]string(nil), t.fields...), "created_at", "updated_at"))
}

// updateByID takes the row arguments minus created_at.
func (t table) updateByID() string {
	set := make([]string, 0, len(t.fields)+1)
	for i, f := range append(append([]string(nil), t.fields...), "updated_at") {
		set = append(set, fmt.Sprintf("%s = $%d", f, i+2))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING created_at", t.name, strings.Join(set, ", "))
}
