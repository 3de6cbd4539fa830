package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patiponrmutl/ScanAttendance/models"
)

var part = models.Partition{Stage: "مرحلة أولى", Department: "تجميع"}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestRosterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	in := []models.Student{
		{Name: "علي", Stage: part.Stage, Department: part.Department},
		{Name: "أحمد", Stage: part.Stage, Department: part.Department},
	}
	if err := s.SaveRoster(ctx, part, in); err != nil {
		t.Fatalf("save roster: %v", err)
	}
	out, err := s.LoadRoster(ctx, part)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %v", out)
	}

	want := filepath.Join(s.Dir(), "students", "مرحلة أولى_تجميع.json")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected partition file %s: %v", want, err)
	}
}

func TestAttendanceRoundTripKeepsEventOrderAndTokens(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	key := models.NewStudentKey("أحمد", part.Stage, part.Department)
	in := models.AttendanceLog{}
	in.Append(key, "2024-03-10", models.AttendanceEvent{Kind: models.KindArrival, Time: "08:00 AM"})
	in.Append(key, "2024-03-10", models.AttendanceEvent{Kind: models.KindDeparture, Time: "02:00 PM"})
	in.Append(key, "2024-03-10", models.AttendanceEvent{Kind: models.KindArrival, Time: "03:15 PM"})

	if err := s.SaveAttendance(ctx, part, in); err != nil {
		t.Fatalf("save attendance: %v", err)
	}
	out, err := s.LoadAttendance(ctx, part)
	if err != nil {
		t.Fatalf("load attendance: %v", err)
	}
	got := out.Day(key, "2024-03-10")
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, ev := range in.Day(key, "2024-03-10") {
		if got[i] != ev {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], ev)
		}
	}

	raw, err := os.ReadFile(s.attendancePath(part))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, want := range []string{`"type": "حضور"`, `"type": "انصراف"`, `"time": "08:00 AM"`, `"أحمد|مرحلة أولى|تجميع"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("file missing %s:\n%s", want, raw)
		}
	}
}

func TestMissingFilesLoadEmpty(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	roster, err := s.LoadRoster(ctx, part)
	if err != nil || roster == nil || len(roster) != 0 {
		t.Fatalf("expected empty roster, got %v, %v", roster, err)
	}
	log, err := s.LoadAttendance(ctx, part)
	if err != nil || log == nil || len(log) != 0 {
		t.Fatalf("expected empty log, got %v, %v", log, err)
	}
	cards, err := s.LoadCards(ctx)
	if err != nil || cards == nil || len(cards) != 0 {
		t.Fatalf("expected empty cards, got %v, %v", cards, err)
	}
}

func TestCorruptFileIsMovedAside(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	path := s.rosterPath(part)
	if err := os.WriteFile(path, []byte(`[{"name": "علي"`), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	out, err := s.LoadRoster(ctx, part)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty roster, got %v", out)
	}
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected one corrupt copy, got %v", matches)
	}
}

func TestMoveJournal(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a := &models.StudentMove{BatchID: "b1", Name: "خالد", Status: models.MoveStatusPending}
	b := &models.StudentMove{BatchID: "b1", Name: "سامر", Status: models.MoveStatusPending}
	for _, m := range []*models.StudentMove{a, b} {
		if err := s.AppendMove(ctx, m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("unexpected ids %d %d", a.ID, b.ID)
	}

	a.Status = models.MoveStatusDone
	if err := s.UpdateMove(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err := s.PendingMoves(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "سامر" {
		t.Fatalf("unexpected pending %v", pending)
	}

	all, err := s.ListMoves(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != 2 {
		t.Fatalf("expected newest move first, got %v", all)
	}

	if err := s.UpdateMove(ctx, &models.StudentMove{ID: 99}); err == nil {
		t.Fatal("expected not found for unknown move")
	}
}

func TestPartitionFileCannotEscapeFolder(t *testing.T) {
	got := partitionFile(models.Partition{Stage: "../x", Department: "a/b"})
	if strings.ContainsAny(got, `/\`) {
		t.Fatalf("partition file contains separator: %q", got)
	}
}
