package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/models"
)

var part = models.Partition{Stage: "مرحلة أولى", Department: "تجميع"}

func student(name string) models.Student {
	return models.Student{Name: name, Stage: part.Stage, Department: part.Department}
}

func snapshot(date string, present map[string]attendance.DaySummary, names ...string) attendance.Snapshot {
	snap := attendance.Snapshot{Partition: part, Date: date, Summary: map[models.StudentKey]attendance.DaySummary{}}
	for _, n := range names {
		snap.Roster = append(snap.Roster, student(n))
		if sum, ok := present[n]; ok {
			snap.Summary[student(n).Key()] = sum
		}
	}
	return snap
}

func TestBuildSheetSortsAndLabels(t *testing.T) {
	snap := snapshot("2024-03-10", map[string]attendance.DaySummary{
		"أحمد": {InTimes: []string{"08:00 AM"}, OutTimes: []string{"02:00 PM"}},
		"باسل": {InTimes: []string{"08:05 AM"}},
	}, "علي", "باسل", "أحمد")

	sheet := BuildSheet(snap)
	if len(sheet.Rows) != 3 {
		t.Fatalf("rows = %d", len(sheet.Rows))
	}
	want := []struct{ name, arrival, departure string }{
		{"أحمد", "08:00 AM", "02:00 PM"},
		{"باسل", "08:05 AM", attendance.LabelNotDeparted},
		{"علي", attendance.LabelAbsent, attendance.LabelAbsent},
	}
	for i, w := range want {
		r := sheet.Rows[i]
		if r.Number != i+1 || r.Name != w.name || r.Arrival != w.arrival || r.Departure != w.departure {
			t.Fatalf("row %d = %+v, want %+v", i, r, w)
		}
		if r.Date != "2024-03-10" || r.Stage != part.Stage {
			t.Fatalf("row %d missing date or stage: %+v", i, r)
		}
	}
}

func TestRenderThenCountAbsences(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	r := NewXLSXRenderer(root)

	days := []attendance.Snapshot{
		snapshot("2024-03-10", map[string]attendance.DaySummary{"أحمد": {InTimes: []string{"08:00 AM"}}}, "أحمد", "علي"),
		snapshot("2024-03-11", nil, "أحمد", "علي"),
		snapshot("2024-03-12", map[string]attendance.DaySummary{"علي": {InTimes: []string{"08:00 AM"}}}, "أحمد", "علي"),
	}
	for _, d := range days {
		path, err := r.Render(ctx, BuildSheet(d))
		if err != nil {
			t.Fatalf("render %s: %v", d.Date, err)
		}
		if filepath.Base(path) != d.Date+".xlsx" {
			t.Fatalf("path = %s", path)
		}
	}

	got, err := CountAbsences(ctx, root, part, "علي")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got.TotalDays != 3 || got.Absent != 2 {
		t.Fatalf("absences = %+v", got)
	}
	if got.Dates[0] != "2024-03-10" || got.Dates[1] != "2024-03-11" {
		t.Fatalf("dates = %v", got.Dates)
	}

	ahmad, _ := CountAbsences(ctx, root, part, "أحمد")
	if ahmad.Absent != 2 {
		t.Fatalf("ahmad absences = %+v", ahmad)
	}
}

func TestCountAbsencesMissingFolderAndBadFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	got, err := CountAbsences(ctx, root, part, "علي")
	if err != nil || got.TotalDays != 0 {
		t.Fatalf("missing folder = %+v, %v", got, err)
	}

	dir := PartitionDir(root, part)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2024-01-01.xlsx"), []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = CountAbsences(ctx, root, part, "علي")
	if err != nil || got.TotalDays != 1 || got.Absent != 0 {
		t.Fatalf("bad file = %+v, %v", got, err)
	}
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []Sheet
	failFor  models.Partition
}

func (f *fakeRenderer) Render(_ context.Context, s Sheet) (string, error) {
	if s.Partition == f.failFor {
		return "", errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, s)
	return s.Date + ".xlsx", nil
}

// fakeEngine keeps per-partition rosters and whether each log was reset.
type fakeEngine struct {
	rosters map[models.Partition][]models.Student
	reset   map[models.Partition]bool
}

func (f *fakeEngine) Partitions(context.Context) ([]models.Partition, error) {
	return []models.Partition{
		{Stage: "س1", Department: "أ"},
		{Stage: "س1", Department: "ب"},
		{Stage: "س2", Department: "أ"},
	}, nil
}

func (f *fakeEngine) ArchivePartition(ctx context.Context, p models.Partition, date string, archive attendance.Archiver) (attendance.Snapshot, error) {
	snap := attendance.Snapshot{Partition: p, Date: date, Roster: f.rosters[p]}
	if err := archive(ctx, snap); err != nil {
		return snap, err
	}
	f.reset[p] = true
	return snap, nil
}

func TestExporterContinuesPastFailures(t *testing.T) {
	a := models.Partition{Stage: "س1", Department: "أ"}
	b := models.Partition{Stage: "س1", Department: "ب"}
	c := models.Partition{Stage: "س2", Department: "أ"}
	eng := &fakeEngine{
		rosters: map[models.Partition][]models.Student{
			a: {{Name: "علي", Stage: a.Stage, Department: a.Department}},
			b: {{Name: "سامر", Stage: b.Stage, Department: b.Department}},
		},
		reset: map[models.Partition]bool{},
	}
	r := &fakeRenderer{failFor: b}
	stopped := false
	x := NewExporter(eng, r, WithAfterExport(func() { stopped = true }))

	var seen []Progress
	rep, err := x.Run(context.Background(), "2024-03-10", func(p Progress) { seen = append(seen, p) })
	if err == nil {
		t.Fatal("expected joined error")
	}
	if rep.Archived != 2 || len(rep.Failed) != 1 || rep.Failed[0].Partition != b {
		t.Fatalf("report = %+v", rep)
	}
	if len(seen) != 3 || seen[2].Index != 3 || seen[2].Total != 3 {
		t.Fatalf("progress = %+v", seen)
	}
	if !eng.reset[a] || eng.reset[b] || !eng.reset[c] {
		t.Fatalf("reset = %v", eng.reset)
	}
	// empty roster: nothing rendered, still reset
	if len(r.rendered) != 1 {
		t.Fatalf("rendered = %d sheets", len(r.rendered))
	}
	if stopped {
		t.Fatal("after-export hook must not run when a partition failed")
	}
	if st := x.Status(); st.Running || st.Last == nil || st.Last.Date != "2024-03-10" {
		t.Fatalf("status = %+v", st)
	}
}

func TestExporterAfterHookAndBusy(t *testing.T) {
	eng := &fakeEngine{rosters: map[models.Partition][]models.Student{}, reset: map[models.Partition]bool{}}
	stopped := false
	x := NewExporter(eng, &fakeRenderer{}, WithAfterExport(func() { stopped = true }))

	if _, err := x.Run(context.Background(), "2024-03-10", nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !stopped {
		t.Fatal("after-export hook did not run")
	}

	x.mu.Lock()
	x.running = true
	x.mu.Unlock()
	if _, err := x.Run(context.Background(), "", nil); !errors.Is(err, ErrExportRunning) {
		t.Fatalf("expected running error, got %v", err)
	}
	if err := x.Start(context.Background(), ""); !errors.Is(err, ErrExportRunning) {
		t.Fatalf("expected running error from Start, got %v", err)
	}
}

func TestNewSchedulerRejectsBadExpression(t *testing.T) {
	x := NewExporter(&fakeEngine{}, &fakeRenderer{})
	if _, err := NewScheduler("not a cron", x); err == nil {
		t.Fatal("expected error for bad cron expression")
	}
	s, err := NewScheduler("0 18 * * *", x)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.Start()
	s.Stop()
}
