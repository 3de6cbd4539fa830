package engine

import (
	"context"
	"errors"
	"log"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/cards"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/roster"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

// ReconcileReport lists what a reconciliation pass fixed and what it only
// found.
type ReconcileReport struct {
	Repaired      []models.StudentMove          `json:"repaired"`
	Completed     []models.StudentMove          `json:"completed"`
	Abandoned     []models.StudentMove          `json:"abandoned"`
	Duplicates    map[string][]models.Partition `json:"duplicates"`
	StaleBindings []cards.Binding               `json:"stale_bindings"`
}

// Reconcile finishes moves the journal still shows as pending, then scans
// for names on more than one roster and cards bound to an identity that
// no roster holds. Run it before the reader starts.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var out ReconcileReport
	err := e.do(ctx, func(ctx context.Context) error {
		pending, err := e.st.PendingMoves(ctx)
		if err != nil {
			return err
		}
		for _, m := range pending {
			if err := e.st.Tx(ctx, func(tx storage.Store) error {
				return e.finishMove(ctx, tx, &m)
			}); err != nil {
				return err
			}
			switch m.Status {
			case models.MoveStatusRepaired:
				out.Repaired = append(out.Repaired, m)
			case models.MoveStatusDone:
				out.Completed = append(out.Completed, m)
			case models.MoveStatusAbandoned:
				out.Abandoned = append(out.Abandoned, m)
			}
		}

		cat, err := e.loadCatalog(ctx, e.st)
		if err != nil {
			return err
		}
		rs := roster.New(e.st)
		if out.Duplicates, err = rs.Duplicates(ctx, cat.Partitions()); err != nil {
			return err
		}

		bindings, err := cards.New(e.st).List(ctx)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			_, ok, err := rs.Find(ctx, b.Student.Partition(), b.Student.Name)
			if err != nil {
				return err
			}
			if !ok {
				out.StaleBindings = append(out.StaleBindings, b)
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	if n := len(out.Repaired) + len(out.Completed) + len(out.Abandoned); n > 0 {
		log.Printf("[reconcile] %d interrupted moves: %d repaired, %d completed, %d abandoned",
			n, len(out.Repaired), len(out.Completed), len(out.Abandoned))
	}
	if len(out.Duplicates) > 0 || len(out.StaleBindings) > 0 {
		log.Printf("[reconcile] %d names on several rosters, %d stale card bindings",
			len(out.Duplicates), len(out.StaleBindings))
	}
	return out, nil
}

// finishMove settles one pending journal record:
//
//	in source and target  -> drop from source, repaired
//	in neither            -> re-add to target, repaired
//	only in target        -> done
//	only in source        -> abandoned, the target was never written
func (e *Engine) finishMove(ctx context.Context, tx storage.Store, m *models.StudentMove) error {
	rs := roster.New(tx)
	_, inSource, err := rs.Find(ctx, m.From(), m.Name)
	if err != nil {
		return err
	}
	_, inTarget, err := rs.Find(ctx, m.To(), m.Name)
	if err != nil {
		return err
	}

	switch {
	case inSource && inTarget:
		if _, err := rs.Remove(ctx, m.From(), m.Name); err != nil {
			return err
		}
		m.Status = models.MoveStatusRepaired
	case !inSource && !inTarget:
		if _, err := rs.Add(ctx, m.To(), m.Name); err != nil && !errors.Is(err, apperr.ErrAlreadyExists) {
			return err
		}
		m.Status = models.MoveStatusRepaired
	case inTarget:
		m.Status = models.MoveStatusDone
	default:
		m.Status = models.MoveStatusAbandoned
	}

	if m.Status != models.MoveStatusAbandoned {
		if _, err := cards.New(tx).RebindMoved(ctx, m.From(), m.To(), []string{m.Name}); err != nil {
			return err
		}
	}
	return tx.UpdateMove(ctx, m)
}

// ArchivePartition hands one partition's day to archive and resets its log
// once archive succeeds.
func (e *Engine) ArchivePartition(ctx context.Context, p models.Partition, date string, archive attendance.Archiver) (attendance.Snapshot, error) {
	var out attendance.Snapshot
	err := e.do(ctx, func(ctx context.Context) error {
		list, err := roster.New(e.st).List(ctx, p)
		if err != nil {
			return err
		}
		out, err = e.attendance(e.st).ArchiveAndReset(ctx, p, date, list, archive)
		return err
	})
	return out, err
}
