package aggregates

import "strings"

// Contract documents what an aggregate owns. Implementations expose it so
// wiring and tests can check which tables a write boundary may touch.
type Contract struct {
	Name string
	// Tables the aggregate writes. No other code path writes them.
	Tables []string
	// Derived lists cached columns the aggregate recomputes, never accepts.
	Derived []string
	// LockScope is the advisory lock pattern writes serialize on.
	// {student_id} and {course_id} are substituted by LockKey.
	LockScope string
	Notes     string
}

type Aggregate interface {
	Contract() Contract
}

// LockKey renders LockScope for key.
func (c Contract) LockKey(key EnrollmentKey) string {
	return strings.NewReplacer(
		"{student_id}", key.StudentID.String(),
		"{course_id}", key.CourseID.String(),
	).Replace(c.LockScope)
}

func (c Contract) OwnsTable(name string) bool {
	for _, t := range c.Tables {
		if t == name {
			return true
		}
	}
	return false
}
