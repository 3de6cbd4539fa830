// Package roster owns the per-partition student lists: uniqueness of names
// inside a partition, sorted listing, search, and moving students between
// partitions.
package roster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

type Store struct {
	st storage.Store
}

func New(st storage.Store) *Store { return &Store{st: st} }

func sortByName(students []models.Student) {
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })
}

// List returns the partition's students sorted by name. An absent partition is empty.
func (r *Store) List(ctx context.Context, p models.Partition) ([]models.Student, error) {
	students, err := r.st.LoadRoster(ctx, p)
	if err != nil {
		return nil, err
	}
	sortByName(students)
	return students, nil
}

// Find looks a name up by exact match.
func (r *Store) Find(ctx context.Context, p models.Partition, name string) (models.Student, bool, error) {
	students, err := r.st.LoadRoster(ctx, p)
	if err != nil {
		return models.Student{}, false, err
	}
	for _, s := range students {
		if s.Name == name {
			return s, true, nil
		}
	}
	return models.Student{}, false, nil
}

// Add appends a student and keeps the stored list sorted.
func (r *Store) Add(ctx context.Context, p models.Partition, name string) (models.Student, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return models.Student{}, apperr.New(apperr.CodeInvalid, "student name is required")
	}
	if !p.Valid() {
		return models.Student{}, apperr.New(apperr.CodeInvalid, "stage and department are required")
	}

	students, err := r.st.LoadRoster(ctx, p)
	if err != nil {
		return models.Student{}, err
	}
	for _, s := range students {
		if s.Name == name {
			return models.Student{}, apperr.New(apperr.CodeAlreadyExists,
				fmt.Sprintf("%s already exists in %s", name, p))
		}
	}

	st := models.Student{Name: name, Stage: p.Stage, Department: p.Department}
	students = append(students, st)
	sortByName(students)
	if err := r.st.SaveRoster(ctx, p, students); err != nil {
		return models.Student{}, err
	}
	return st, nil
}

// Search matches text as a case-insensitive substring of the name. Empty
// text returns the whole sorted partition.
func (r *Store) Search(ctx context.Context, p models.Partition, text string) ([]models.Student, error) {
	students, err := r.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return filter(students, text), nil
}

// SearchAll runs Search over every given partition, computed on demand.
func (r *Store) SearchAll(ctx context.Context, partitions []models.Partition, text string) ([]models.Student, error) {
	var out []models.Student
	for _, p := range partitions {
		found, err := r.Search(ctx, p, text)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func filter(students []models.Student, text string) []models.Student {
	text = strings.TrimSpace(text)
	if text == "" {
		return students
	}
	fold := cases.Fold()
	needle := fold.String(text)
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		if strings.Contains(fold.String(s.Name), needle) {
			out = append(out, s)
		}
	}
	return out
}

// Duplicates reports names present in more than one of the given partitions.
func (r *Store) Duplicates(ctx context.Context, partitions []models.Partition) (map[string][]models.Partition, error) {
	seen := map[string][]models.Partition{}
	for _, p := range partitions {
		students, err := r.st.LoadRoster(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, s := range students {
			seen[s.Name] = append(seen[s.Name], p)
		}
	}
	out := map[string][]models.Partition{}
	for name, parts := range seen {
		if len(parts) > 1 {
			out[name] = parts
		}
	}
	return out, nil
}
