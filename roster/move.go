package roster

import (
	"context"
	"fmt"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type MoveResult string

const (
	ResultMoved          MoveResult = "moved"
	ResultAllDuplicates  MoveResult = "all_duplicates"
	ResultNothingMatched MoveResult = "nothing_matched"
)

// MoveReport is always returned for a valid move request; only a no-op
// move or a storage failure is an error.
type MoveReport struct {
	From              models.Partition `json:"from"`
	To                models.Partition `json:"to"`
	Moved             []string         `json:"moved"`
	SkippedDuplicates []string         `json:"skipped_duplicates"`
	NotInSource       []string         `json:"not_in_source"`
	Result            MoveResult       `json:"result"`
}

// Err turns an unsuccessful outcome into its coded error for presentation.
func (r MoveReport) Err() error {
	switch r.Result {
	case ResultAllDuplicates:
		return apperr.ErrAllDuplicates
	case ResultNothingMatched:
		return apperr.ErrNothingMatched
	}
	return nil
}

// MoveHooks let the caller attach writes to the move's ordered protocol.
// Planned runs before any roster write; TargetSaved runs after the target
// roster is written and before the source roster is. A hook error stops
// the move at that point.
type MoveHooks struct {
	Planned     func(ctx context.Context, moved []string) error
	TargetSaved func(ctx context.Context, moved []string) error
}

// Move relocates names from one partition to another. A name already in
// the target is skipped as a duplicate; a name missing from the source is
// ignored. Writes go target first and source last, so an interruption
// leaves the student duplicated rather than lost.
func (r *Store) Move(ctx context.Context, from, to models.Partition, names []string, hooks MoveHooks) (MoveReport, error) {
	report := MoveReport{From: from, To: to, Moved: []string{}, SkippedDuplicates: []string{}, NotInSource: []string{}}
	if from == to {
		return report, apperr.New(apperr.CodeNoOpMove, fmt.Sprintf("cannot move within %s", from))
	}
	if !from.Valid() || !to.Valid() {
		return report, apperr.New(apperr.CodeInvalid, "source and target partitions are required")
	}

	source, err := r.st.LoadRoster(ctx, from)
	if err != nil {
		return report, err
	}
	target, err := r.st.LoadRoster(ctx, to)
	if err != nil {
		return report, err
	}

	inSource := make(map[string]bool, len(source))
	for _, s := range source {
		inSource[s.Name] = true
	}
	inTarget := make(map[string]bool, len(target))
	for _, s := range target {
		inTarget[s.Name] = true
	}

	requested := map[string]bool{}
	moving := map[string]bool{}
	for _, name := range names {
		if requested[name] {
			continue
		}
		requested[name] = true

		switch {
		case !inSource[name]:
			report.NotInSource = append(report.NotInSource, name)
		case inTarget[name]:
			report.SkippedDuplicates = append(report.SkippedDuplicates, name)
		default:
			report.Moved = append(report.Moved, name)
			moving[name] = true
			inTarget[name] = true
			target = append(target, models.Student{Name: name, Stage: to.Stage, Department: to.Department})
		}
	}

	if len(report.Moved) == 0 {
		if len(report.SkippedDuplicates) > 0 {
			report.Result = ResultAllDuplicates
		} else {
			report.Result = ResultNothingMatched
		}
		return report, nil
	}
	report.Result = ResultMoved

	if hooks.Planned != nil {
		if err := hooks.Planned(ctx, report.Moved); err != nil {
			return report, err
		}
	}

	sortByName(target)
	if err := r.st.SaveRoster(ctx, to, target); err != nil {
		return report, err
	}

	if hooks.TargetSaved != nil {
		if err := hooks.TargetSaved(ctx, report.Moved); err != nil {
			return report, err
		}
	}

	remaining := source[:0:0]
	for _, s := range source {
		if !moving[s.Name] {
			remaining = append(remaining, s)
		}
	}
	if err := r.st.SaveRoster(ctx, from, remaining); err != nil {
		return report, err
	}
	return report, nil
}

// Remove deletes a name from a partition. It is used only to finish an
// interrupted move; there is no user-facing delete.
func (r *Store) Remove(ctx context.Context, p models.Partition, name string) (bool, error) {
	students, err := r.st.LoadRoster(ctx, p)
	if err != nil {
		return false, err
	}
	kept := students[:0:0]
	removed := false
	for _, s := range students {
		if s.Name == name {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return false, nil
	}
	return true, r.st.SaveRoster(ctx, p, kept)
}
