package models

import (
	"strings"
)

// Student is identified by Name inside its partition and by the
// (name, stage, department) triple across the whole system.
type Student struct {
	Name       string `json:"name"`
	Stage      string `json:"stage"`
	Department string `json:"department"`
}

func (s Student) Partition() Partition {
	return Partition{Stage: s.Stage, Department: s.Department}
}

// Key is the attendance key for the student's current identity.
func (s Student) Key() StudentKey {
	return NewStudentKey(s.Name, s.Stage, s.Department)
}

// Partition is the (stage, department) pair sharding roster and attendance storage.
type Partition struct {
	Stage      string `json:"stage"`
	Department string `json:"department"`
}

func (p Partition) String() string { return p.Stage + " - " + p.Department }

func (p Partition) Valid() bool {
	return strings.TrimSpace(p.Stage) != "" && strings.TrimSpace(p.Department) != ""
}

// StudentKey is "name|stage|department" as recorded at event time. It is
// never rewritten when the student later moves.
type StudentKey string

func NewStudentKey(name, stage, department string) StudentKey {
	return StudentKey(name + "|" + stage + "|" + department)
}

// Student splits the key back into the identity it was recorded with.
func (k StudentKey) Student() (Student, bool) {
	parts := strings.Split(string(k), "|")
	if len(parts) != 3 {
		return Student{}, false
	}
	return Student{Name: parts[0], Stage: parts[1], Department: parts[2]}, true
}

// NormalizeName trims and collapses inner whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
