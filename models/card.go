package models

import "sort"

// CardBindings maps a normalized card identifier to the student snapshot it
// was bound to. Several cards may point at the same student.
type CardBindings map[string]Student

// Catalog maps a stage to its ordered departments.
type Catalog map[string][]string

// Partitions lists every (stage, department) pair, stages in lexical order.
func (c Catalog) Partitions() []Partition {
	stages := make([]string, 0, len(c))
	for st := range c {
		stages = append(stages, st)
	}
	sort.Strings(stages)

	var out []Partition
	for _, st := range stages {
		for _, dep := range c[st] {
			out = append(out, Partition{Stage: st, Department: dep})
		}
	}
	return out
}

func (c Catalog) Has(p Partition) bool {
	for _, dep := range c[p.Stage] {
		if dep == p.Department {
			return true
		}
	}
	return false
}

func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for st, deps := range c {
		out[st] = append([]string(nil), deps...)
	}
	return out
}
