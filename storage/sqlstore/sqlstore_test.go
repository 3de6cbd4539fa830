package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/patiponrmutl/ScanAttendance/database"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

var (
	partA = models.Partition{Stage: "س1", Department: "أ"}
	partB = models.Partition{Stage: "س1", Department: "ب"}
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db)
}

func TestRosterRoundTripIsPartitioned(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.SaveRoster(ctx, partA, []models.Student{
		{Name: "خالد", Stage: partA.Stage, Department: partA.Department},
		{Name: "سامر", Stage: partA.Stage, Department: partA.Department},
	}); err != nil {
		t.Fatalf("save A: %v", err)
	}
	if err := s.SaveRoster(ctx, partB, []models.Student{
		{Name: "خالد", Stage: partB.Stage, Department: partB.Department},
	}); err != nil {
		t.Fatalf("save B: %v", err)
	}

	a, err := s.LoadRoster(ctx, partA)
	if err != nil {
		t.Fatalf("load A: %v", err)
	}
	if len(a) != 2 || a[0].Name != "خالد" || a[1].Name != "سامر" {
		t.Fatalf("unexpected roster A %v", a)
	}

	// a second save replaces, it does not append
	if err := s.SaveRoster(ctx, partA, []models.Student{{Name: "سامر", Stage: partA.Stage, Department: partA.Department}}); err != nil {
		t.Fatalf("resave A: %v", err)
	}
	a, _ = s.LoadRoster(ctx, partA)
	b, _ := s.LoadRoster(ctx, partB)
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected 1 and 1 students, got %d and %d", len(a), len(b))
	}
}

func TestAttendanceRoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	key := models.NewStudentKey("خالد", partA.Stage, partA.Department)
	in := models.AttendanceLog{}
	in.Append(key, "2024-03-10", models.AttendanceEvent{Kind: models.KindArrival, Time: "08:00 AM"})
	in.Append(key, "2024-03-10", models.AttendanceEvent{Kind: models.KindDeparture, Time: "02:00 PM"})
	in.Append(key, "2024-03-11", models.AttendanceEvent{Kind: models.KindArrival, Time: "07:55 AM"})

	if err := s.SaveAttendance(ctx, partA, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := s.LoadAttendance(ctx, partA)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	day := out.Day(key, "2024-03-10")
	if len(day) != 2 || day[0].Kind != models.KindArrival || day[1].Kind != models.KindDeparture {
		t.Fatalf("unexpected day %v", day)
	}
	if len(out.Day(key, "2024-03-11")) != 1 {
		t.Fatalf("expected second day to survive")
	}

	if err := s.SaveAttendance(ctx, partA, models.AttendanceLog{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, _ = s.LoadAttendance(ctx, partA)
	if len(out) != 0 {
		t.Fatalf("expected empty log after reset, got %v", out)
	}
}

func TestCardsAndCatalog(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	cards := models.CardBindings{
		"AB12CD": {Name: "سامر", Stage: "س1", Department: "أ"},
		"FF00":   {Name: "سامر", Stage: "س1", Department: "أ"},
	}
	if err := s.SaveCards(ctx, cards); err != nil {
		t.Fatalf("save cards: %v", err)
	}
	got, err := s.LoadCards(ctx)
	if err != nil {
		t.Fatalf("load cards: %v", err)
	}
	if len(got) != 2 || got["AB12CD"].Name != "سامر" {
		t.Fatalf("unexpected cards %v", got)
	}

	cat := models.Catalog{"س1": {"ب", "أ"}}
	if err := s.SaveCatalog(ctx, cat); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	gotCat, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if deps := gotCat["س1"]; len(deps) != 2 || deps[0] != "ب" || deps[1] != "أ" {
		t.Fatalf("catalog order not kept: %v", deps)
	}
}

func TestTxRollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	boom := errors.New("boom")

	err := s.Tx(ctx, func(tx storage.Store) error {
		if err := tx.SaveRoster(ctx, partB, []models.Student{{Name: "خالد", Stage: partB.Stage, Department: partB.Department}}); err != nil {
			return err
		}
		if err := tx.SaveCards(ctx, models.CardBindings{"AA": {Name: "خالد", Stage: partB.Stage, Department: partB.Department}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	roster, _ := s.LoadRoster(ctx, partB)
	cards, _ := s.LoadCards(ctx)
	if len(roster) != 0 || len(cards) != 0 {
		t.Fatalf("expected rollback, got roster %v cards %v", roster, cards)
	}
}

func TestMoveJournal(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	m := &models.StudentMove{BatchID: "b1", Name: "خالد", FromStage: "س1", FromDepartment: "أ", ToStage: "س1", ToDepartment: "ب", Status: models.MoveStatusPending}
	if err := s.AppendMove(ctx, m); err != nil {
		t.Fatalf("append: %v", err)
	}
	pending, err := s.PendingMoves(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %v, %v", pending, err)
	}

	m.Status = models.MoveStatusDone
	if err := s.UpdateMove(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = s.PendingMoves(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected no pending moves, got %v", pending)
	}
	all, _ := s.ListMoves(ctx, 10)
	if len(all) != 1 || all[0].Status != models.MoveStatusDone {
		t.Fatalf("unexpected journal %v", all)
	}
}
