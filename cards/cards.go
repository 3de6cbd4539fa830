// Package cards is the card registry: normalized card identifier to the
// student snapshot it was bound to.
package cards

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

// Normalize trims, uppercases and drops inner spaces: " ab 12 cd " -> "AB12CD".
func Normalize(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

type Registry struct {
	st storage.Store
}

func New(st storage.Store) *Registry { return &Registry{st: st} }

func (r *Registry) Lookup(ctx context.Context, cardID string) (models.Student, error) {
	id := Normalize(cardID)
	bindings, err := r.st.LoadCards(ctx)
	if err != nil {
		return models.Student{}, err
	}
	s, ok := bindings[id]
	if !ok {
		return models.Student{}, apperr.New(apperr.CodeNotFound, fmt.Sprintf("card %s is not enrolled", id))
	}
	return s, nil
}

// Bind overwrites any earlier binding of the card.
func (r *Registry) Bind(ctx context.Context, cardID string, s models.Student) error {
	id := Normalize(cardID)
	if id == "" {
		return apperr.New(apperr.CodeInvalid, "card id is required")
	}
	bindings, err := r.st.LoadCards(ctx)
	if err != nil {
		return err
	}
	bindings[id] = s
	return r.st.SaveCards(ctx, bindings)
}

// RebindOnMove points every binding whose snapshot equals old at the same
// name in partition to. It returns how many bindings changed.
func RebindOnMove(bindings models.CardBindings, old models.Student, to models.Partition) int {
	n := 0
	for id, s := range bindings {
		if s == old {
			bindings[id] = models.Student{Name: old.Name, Stage: to.Stage, Department: to.Department}
			n++
		}
	}
	return n
}

// RebindMoved rebinds every moved name in one registry load and one save.
func (r *Registry) RebindMoved(ctx context.Context, from, to models.Partition, names []string) (int, error) {
	bindings, err := r.st.LoadCards(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, name := range names {
		total += RebindOnMove(bindings, models.Student{Name: name, Stage: from.Stage, Department: from.Department}, to)
	}
	if total == 0 {
		return 0, nil
	}
	if err := r.st.SaveCards(ctx, bindings); err != nil {
		return 0, err
	}
	return total, nil
}

// Binding is one registry entry.
type Binding struct {
	CardID  string         `json:"card_id"`
	Student models.Student `json:"student"`
}

// List returns every binding ordered by card id.
func (r *Registry) List(ctx context.Context) ([]Binding, error) {
	bindings, err := r.st.LoadCards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Binding, 0, len(bindings))
	for id, s := range bindings {
		out = append(out, Binding{CardID: id, Student: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out, nil
}
