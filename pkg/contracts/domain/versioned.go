package domain

import "time"

// Versioned is implemented by every stored record. Key is the record id and
// LastModified the timestamp used when two copies of a record disagree.
type Versioned interface {
	Key() string
	Created() time.Time
	LastModified() time.Time
}

// lastModified falls back to the creation time for records never updated.
func lastModified(created, updated time.Time) time.Time {
	if updated.IsZero() {
		return created
	}
	return updated
}

func (c Class) Key() string { return c.ID }

func (c Class) Created() time.Time { return c.CreatedAt }

func (c Class) LastModified() time.Time { return lastModified(c.CreatedAt, c.UpdatedAt) }

func (s Student) Key() string { return s.ID }

func (s Student) Created() time.Time { return s.CreatedAt }

func (s Student) LastModified() time.Time { return lastModified(s.CreatedAt, s.UpdatedAt) }

func (t CasasTest) Key() string { return t.ID }

func (t CasasTest) Created() time.Time { return t.CreatedAt }

func (t CasasTest) LastModified() time.Time { return lastModified(t.CreatedAt, t.UpdatedAt) }

func (t UnitTest) Key() string { return t.ID }

func (t UnitTest) Created() time.Time { return t.CreatedAt }

func (t UnitTest) LastModified() time.Time { return lastModified(t.CreatedAt, t.UpdatedAt) }

func (a Attendance) Key() string { return a.ID }

func (a Attendance) Created() time.Time { return a.CreatedAt }

func (a Attendance) LastModified() time.Time { return lastModified(a.CreatedAt, a.UpdatedAt) }

func (t TutoringSession) Key() string { return t.ID }

func (t TutoringSession) Created() time.Time { return t.CreatedAt }

func (t TutoringSession) LastModified() time.Time { return lastModified(t.CreatedAt, t.UpdatedAt) }
