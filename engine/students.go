package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/cards"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/roster"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

func (e *Engine) AddStudent(ctx context.Context, p models.Partition, name string) (models.Student, error) {
	var out models.Student
	err := e.do(ctx, func(ctx context.Context) error {
		if err := e.requirePartition(ctx, e.st, p); err != nil {
			return err
		}
		s, err := roster.New(e.st).Add(ctx, p, name)
		out = s
		return err
	})
	return out, err
}

func (e *Engine) ListStudents(ctx context.Context, p models.Partition) ([]models.Student, error) {
	var out []models.Student
	err := e.do(ctx, func(ctx context.Context) error {
		list, err := roster.New(e.st).List(ctx, p)
		out = list
		return err
	})
	return out, err
}

func (e *Engine) Search(ctx context.Context, p models.Partition, text string) ([]models.Student, error) {
	var out []models.Student
	err := e.do(ctx, func(ctx context.Context) error {
		list, err := roster.New(e.st).Search(ctx, p, text)
		out = list
		return err
	})
	return out, err
}

// AllStudents searches every catalog partition, read through on each call.
func (e *Engine) AllStudents(ctx context.Context, text string) ([]models.Student, error) {
	var out []models.Student
	err := e.do(ctx, func(ctx context.Context) error {
		cat, err := e.loadCatalog(ctx, e.st)
		if err != nil {
			return err
		}
		list, err := roster.New(e.st).SearchAll(ctx, cat.Partitions(), text)
		out = list
		return err
	})
	return out, err
}

// RecordManual records an event for a roster student chosen by exact name.
// An empty kind toggles.
func (e *Engine) RecordManual(ctx context.Context, p models.Partition, name string, kind models.EventKind) (attendance.Recorded, error) {
	var out attendance.Recorded
	err := e.do(ctx, func(ctx context.Context) error {
		s, ok, err := roster.New(e.st).Find(ctx, p, models.NormalizeName(name))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CodeNotFound, fmt.Sprintf("%s is not in %s", name, p))
		}
		out, err = e.attendance(e.st).RecordEvent(ctx, s, kind)
		return err
	})
	if err == nil {
		e.hub.Publish(notify.AttendanceRecorded, out)
	}
	return out, err
}

func (e *Engine) DailySummary(ctx context.Context, p models.Partition, date string) (map[models.StudentKey]attendance.DaySummary, error) {
	if date == "" {
		date = e.Today()
	}
	var out map[models.StudentKey]attendance.DaySummary
	err := e.do(ctx, func(ctx context.Context) error {
		sum, err := e.attendance(e.st).DailySummary(ctx, p, date)
		out = sum
		return err
	})
	return out, err
}

// Snapshot is the day's summary together with the roster, for display.
func (e *Engine) Snapshot(ctx context.Context, p models.Partition, date string) (attendance.Snapshot, error) {
	if date == "" {
		date = e.Today()
	}
	var out attendance.Snapshot
	err := e.do(ctx, func(ctx context.Context) error {
		list, err := roster.New(e.st).List(ctx, p)
		if err != nil {
			return err
		}
		out, err = e.attendance(e.st).Snapshot(ctx, p, date, list)
		return err
	})
	return out, err
}

// MoveOutcome is the roster report plus what the engine did around it.
type MoveOutcome struct {
	roster.MoveReport
	BatchID string `json:"batch_id,omitempty"`
	Rebound int    `json:"rebound"`
}

// MoveStudents moves names between partitions and rebinds their cards.
// Writes are ordered journal, target roster, card registry, source
// roster, journal done; on the SQL backend they also commit together.
// Past attendance stays under the key it was recorded with.
func (e *Engine) MoveStudents(ctx context.Context, from, to models.Partition, names []string) (MoveOutcome, error) {
	var out MoveOutcome
	err := e.do(ctx, func(ctx context.Context) error {
		if from != to {
			if err := e.requirePartition(ctx, e.st, to); err != nil {
				return err
			}
		}
		return e.st.Tx(ctx, func(tx storage.Store) error {
			batch := uuid.NewString()
			var journal []*models.StudentMove

			hooks := roster.MoveHooks{
				Planned: func(ctx context.Context, moved []string) error {
					for _, name := range moved {
						m := &models.StudentMove{
							BatchID:        batch,
							Name:           name,
							FromStage:      from.Stage,
							FromDepartment: from.Department,
							ToStage:        to.Stage,
							ToDepartment:   to.Department,
							Status:         models.MoveStatusPending,
							MoveDate:       e.now(),
						}
						if err := tx.AppendMove(ctx, m); err != nil {
							return err
						}
						journal = append(journal, m)
					}
					return nil
				},
				TargetSaved: func(ctx context.Context, moved []string) error {
					n, err := cards.New(tx).RebindMoved(ctx, from, to, moved)
					out.Rebound = n
					return err
				},
			}

			report, err := roster.New(tx).Move(ctx, from, to, names, hooks)
			out.MoveReport = report
			if err != nil {
				return err
			}
			if report.Result != roster.ResultMoved {
				return nil
			}
			out.BatchID = batch
			for _, m := range journal {
				m.Status = models.MoveStatusDone
				if err := tx.UpdateMove(ctx, m); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return out, err
	}
	if out.Result == roster.ResultMoved {
		log.Printf("[engine] moved %d from %s to %s, rebound %d cards", len(out.Moved), from, to, out.Rebound)
		e.hub.Publish(notify.StudentsMoved, out)
	}
	return out, nil
}

func (e *Engine) ListMoves(ctx context.Context, limit int) ([]models.StudentMove, error) {
	var out []models.StudentMove
	err := e.do(ctx, func(ctx context.Context) error {
		moves, err := e.st.ListMoves(ctx, limit)
		out = moves
		return err
	})
	return out, err
}

func (e *Engine) Bindings(ctx context.Context) ([]cards.Binding, error) {
	var out []cards.Binding
	err := e.do(ctx, func(ctx context.Context) error {
		list, err := cards.New(e.st).List(ctx)
		out = list
		return err
	})
	return out, err
}
