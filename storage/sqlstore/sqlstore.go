// Package sqlstore serves the storage contract from a gorm database. Saves
// replace a partition's rows inside one transaction, and Tx lets a move
// commit both rosters, the card registry and the journal together.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *gorm.DB) *Store { return &Store{db: db} }

func readErr(what string, err error) error {
	return apperr.Wrap(apperr.CodeStorageFailure, "read "+what, err)
}

func writeErr(what string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.CodeStorageFailure, "write "+what, err)
}

func (s *Store) LoadRoster(ctx context.Context, p models.Partition) ([]models.Student, error) {
	var rows []models.StudentRow
	err := s.db.WithContext(ctx).
		Where("stage = ? AND department = ?", p.Stage, p.Department).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, readErr("roster", err)
	}
	out := make([]models.Student, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Student{Name: r.Name, Stage: r.Stage, Department: r.Department})
	}
	return out, nil
}

func (s *Store) SaveRoster(ctx context.Context, p models.Partition, students []models.Student) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stage = ? AND department = ?", p.Stage, p.Department).
			Delete(&models.StudentRow{}).Error; err != nil {
			return err
		}
		if len(students) == 0 {
			return nil
		}
		rows := make([]models.StudentRow, 0, len(students))
		for _, st := range students {
			rows = append(rows, models.StudentRow{Stage: p.Stage, Department: p.Department, Name: st.Name})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return writeErr("roster", err)
	}
	return nil
}

func (s *Store) LoadAttendance(ctx context.Context, p models.Partition) (models.AttendanceLog, error) {
	var rows []models.EventRow
	err := s.db.WithContext(ctx).
		Where("stage = ? AND department = ?", p.Stage, p.Department).
		Order("student_key ASC, date ASC, seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, readErr("attendance", err)
	}
	out := models.AttendanceLog{}
	for _, r := range rows {
		out.Append(models.StudentKey(r.StudentKey), r.Date, models.AttendanceEvent{
			Kind: models.EventKind(r.Kind),
			Time: r.Time,
		})
	}
	return out, nil
}

func (s *Store) SaveAttendance(ctx context.Context, p models.Partition, l models.AttendanceLog) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stage = ? AND department = ?", p.Stage, p.Department).
			Delete(&models.EventRow{}).Error; err != nil {
			return err
		}
		var rows []models.EventRow
		for key, days := range l {
			for date, events := range days {
				for i, ev := range events {
					rows = append(rows, models.EventRow{
						Stage:      p.Stage,
						Department: p.Department,
						StudentKey: string(key),
						Date:       date,
						Seq:        i,
						Kind:       string(ev.Kind),
						Time:       ev.Time,
					})
				}
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return writeErr("attendance", err)
	}
	return nil
}

func (s *Store) LoadCards(ctx context.Context) (models.CardBindings, error) {
	var rows []models.CardRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, readErr("cards", err)
	}
	out := make(models.CardBindings, len(rows))
	for _, r := range rows {
		out[r.CardID] = models.Student{Name: r.Name, Stage: r.Stage, Department: r.Department}
	}
	return out, nil
}

func (s *Store) SaveCards(ctx context.Context, cards models.CardBindings) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CardRow{}).Error; err != nil {
			return err
		}
		if len(cards) == 0 {
			return nil
		}
		rows := make([]models.CardRow, 0, len(cards))
		for id, st := range cards {
			rows = append(rows, models.CardRow{CardID: id, Name: st.Name, Stage: st.Stage, Department: st.Department})
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return writeErr("cards", err)
	}
	return nil
}

func (s *Store) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	var rows []models.CatalogRow
	if err := s.db.WithContext(ctx).Order("stage ASC, position ASC").Find(&rows).Error; err != nil {
		return nil, readErr("catalog", err)
	}
	out := models.Catalog{}
	for _, r := range rows {
		out[r.Stage] = append(out[r.Stage], r.Department)
	}
	return out, nil
}

func (s *Store) SaveCatalog(ctx context.Context, cat models.Catalog) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CatalogRow{}).Error; err != nil {
			return err
		}
		var rows []models.CatalogRow
		for st, deps := range cat {
			for i, dep := range deps {
				rows = append(rows, models.CatalogRow{Stage: st, Department: dep, Position: i})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return writeErr("catalog", err)
	}
	return nil
}

func (s *Store) AppendMove(ctx context.Context, m *models.StudentMove) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return writeErr("move journal", err)
	}
	return nil
}

func (s *Store) UpdateMove(ctx context.Context, m *models.StudentMove) error {
	res := s.db.WithContext(ctx).Model(&models.StudentMove{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{"status": m.Status})
	if res.Error != nil {
		return writeErr("move journal", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("move %d not found", m.ID))
	}
	return nil
}

func (s *Store) PendingMoves(ctx context.Context) ([]models.StudentMove, error) {
	var out []models.StudentMove
	err := s.db.WithContext(ctx).
		Where("status = ?", models.MoveStatusPending).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, readErr("move journal", err)
	}
	return out, nil
}

func (s *Store) ListMoves(ctx context.Context, limit int) ([]models.StudentMove, error) {
	tx := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var out []models.StudentMove
	if err := tx.Find(&out).Error; err != nil {
		return nil, readErr("move journal", err)
	}
	return out, nil
}

func (s *Store) Tx(ctx context.Context, fn func(storage.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
