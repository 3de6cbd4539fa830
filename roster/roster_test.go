package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage/jsonfile"
)

var (
	s1a = models.Partition{Stage: "س1", Department: "أ"}
	s1b = models.Partition{Stage: "س1", Department: "ب"}
)

func newRoster(t *testing.T) (*Store, *jsonfile.Store) {
	t.Helper()
	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return New(st), st
}

func mustAdd(t *testing.T, r *Store, p models.Partition, names ...string) {
	t.Helper()
	for _, n := range names {
		if _, err := r.Add(context.Background(), p, n); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
}

func names(students []models.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.Name)
	}
	return out
}

func TestListIsSortedAndAbsentPartitionIsEmpty(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)

	empty, err := r.List(ctx, s1a)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty partition, got %v, %v", empty, err)
	}

	mustAdd(t, r, s1a, "علي", "أحمد", "باسل")
	got := names(mustList(t, r, s1a))
	want := []string{"أحمد", "باسل", "علي"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list = %v, want %v", got, want)
		}
	}
}

func mustList(t *testing.T, r *Store, p models.Partition) []models.Student {
	t.Helper()
	out, err := r.List(context.Background(), p)
	if err != nil {
		t.Fatalf("list %s: %v", p, err)
	}
	return out
}

func TestAddRejectsDuplicateInPartition(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "خالد")

	_, err := r.Add(ctx, s1a, "  خالد ")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	// same name in another partition is a different student
	if _, err := r.Add(ctx, s1b, "خالد"); err != nil {
		t.Fatalf("add in other partition: %v", err)
	}
	if _, err := r.Add(ctx, s1a, "   "); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid for blank name, got %v", err)
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "Omar Ali", "omar said", "Zaid")

	got, err := r.Search(ctx, s1a, "OMAR")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", names(got))
	}

	all, _ := r.Search(ctx, s1a, "")
	if len(all) != 3 {
		t.Fatalf("empty search should list all, got %v", names(all))
	}
}

func TestMoveAllDuplicates(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "خالد")
	mustAdd(t, r, s1b, "خالد")

	report, err := r.Move(ctx, s1a, s1b, []string{"خالد"}, MoveHooks{})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if report.Result != ResultAllDuplicates {
		t.Fatalf("result = %s, want %s", report.Result, ResultAllDuplicates)
	}
	if len(report.Moved) != 0 || len(report.SkippedDuplicates) != 1 || report.SkippedDuplicates[0] != "خالد" {
		t.Fatalf("unexpected report %+v", report)
	}
	if !errors.Is(report.Err(), apperr.ErrAllDuplicates) {
		t.Fatalf("report.Err() = %v", report.Err())
	}
	if len(mustList(t, r, s1a)) != 1 || len(mustList(t, r, s1b)) != 1 {
		t.Fatal("duplicate skip must not change either roster")
	}
}

func TestMoveNothingMatched(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "علي")

	report, err := r.Move(ctx, s1a, s1b, []string{"مجهول"}, MoveHooks{})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if report.Result != ResultNothingMatched {
		t.Fatalf("result = %s, want %s", report.Result, ResultNothingMatched)
	}
}

func TestMoveSamePartitionFails(t *testing.T) {
	r, _ := newRoster(t)
	_, err := r.Move(context.Background(), s1a, s1a, []string{"علي"}, MoveHooks{})
	if !errors.Is(err, apperr.ErrNoOpMove) {
		t.Fatalf("expected no-op move, got %v", err)
	}
}

func TestMoveMixedBatch(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "خالد", "سامر", "علي")
	mustAdd(t, r, s1b, "خالد")

	var order []string
	hooks := MoveHooks{
		Planned:     func(context.Context, []string) error { order = append(order, "planned"); return nil },
		TargetSaved: func(context.Context, []string) error { order = append(order, "target"); return nil },
	}
	report, err := r.Move(ctx, s1a, s1b, []string{"سامر", "خالد", "سامر", "مجهول"}, hooks)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if report.Result != ResultMoved || len(report.Moved) != 1 || report.Moved[0] != "سامر" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.SkippedDuplicates) != 1 || len(report.NotInSource) != 1 {
		t.Fatalf("unexpected skips %+v", report)
	}
	if len(order) != 2 || order[0] != "planned" || order[1] != "target" {
		t.Fatalf("hook order = %v", order)
	}

	src := names(mustList(t, r, s1a))
	if len(src) != 2 || src[0] != "خالد" || src[1] != "علي" {
		t.Fatalf("source after move = %v", src)
	}
	tgt := mustList(t, r, s1b)
	if len(tgt) != 2 {
		t.Fatalf("target after move = %v", names(tgt))
	}
	for _, s := range tgt {
		if s.Stage != s1b.Stage || s.Department != s1b.Department {
			t.Fatalf("moved student keeps old partition: %+v", s)
		}
	}
}

func TestMoveHookFailureLeavesSourceIntact(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "سامر")

	boom := errors.New("registry write failed")
	_, err := r.Move(ctx, s1a, s1b, []string{"سامر"}, MoveHooks{
		TargetSaved: func(context.Context, []string) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	// interrupted after the target write: duplicated, never lost
	if len(mustList(t, r, s1a)) != 1 || len(mustList(t, r, s1b)) != 1 {
		t.Fatal("expected student present in both partitions")
	}
}

func TestDuplicatesAcrossPartitions(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "خالد", "علي")
	mustAdd(t, r, s1b, "خالد")

	dups, err := r.Duplicates(ctx, []models.Partition{s1a, s1b})
	if err != nil {
		t.Fatalf("duplicates: %v", err)
	}
	if len(dups) != 1 || len(dups["خالد"]) != 2 {
		t.Fatalf("unexpected duplicates %v", dups)
	}
}

func TestSearchAll(t *testing.T) {
	ctx := context.Background()
	r, _ := newRoster(t)
	mustAdd(t, r, s1a, "سامر")
	mustAdd(t, r, s1b, "سامي", "علي")

	got, err := r.SearchAll(ctx, []models.Partition{s1a, s1b}, "سام")
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches across partitions, got %v", names(got))
	}
}
