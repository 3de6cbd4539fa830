// Package storage defines the partition-keyed persistence contract shared by
// the JSON file backend and the SQL backend.
package storage

import (
	"context"

	"github.com/patiponrmutl/ScanAttendance/models"
)

// Store persists each partition's roster and attendance log as an
// independent unit, plus the global card registry, partition catalog and
// move journal.
//
// Load methods on a missing unit return an empty value and no error.
// Save methods replace the whole unit.
type Store interface {
	LoadRoster(ctx context.Context, p models.Partition) ([]models.Student, error)
	SaveRoster(ctx context.Context, p models.Partition, students []models.Student) error

	LoadAttendance(ctx context.Context, p models.Partition) (models.AttendanceLog, error)
	SaveAttendance(ctx context.Context, p models.Partition, log models.AttendanceLog) error

	LoadCards(ctx context.Context) (models.CardBindings, error)
	SaveCards(ctx context.Context, cards models.CardBindings) error

	LoadCatalog(ctx context.Context) (models.Catalog, error)
	SaveCatalog(ctx context.Context, cat models.Catalog) error

	AppendMove(ctx context.Context, m *models.StudentMove) error
	UpdateMove(ctx context.Context, m *models.StudentMove) error
	PendingMoves(ctx context.Context) ([]models.StudentMove, error)
	ListMoves(ctx context.Context, limit int) ([]models.StudentMove, error)

	// Tx runs fn against a store whose writes commit together when the
	// backend supports it. The JSON backend runs fn directly; its callers
	// rely on write ordering plus the move journal instead.
	Tx(ctx context.Context, fn func(Store) error) error
}
