package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/notify"
)

var ErrExportRunning = apperr.New(apperr.CodeBusy, "export already running")

// Partitioner is the slice of the engine the exporter drives.
type Partitioner interface {
	Partitions(ctx context.Context) ([]models.Partition, error)
	ArchivePartition(ctx context.Context, p models.Partition, date string, archive attendance.Archiver) (attendance.Snapshot, error)
}

type Progress struct {
	Partition models.Partition `json:"partition"`
	Index     int              `json:"index"`
	Total     int              `json:"total"`
	Students  int              `json:"students"`
	Err       string           `json:"error,omitempty"`
}

type Report struct {
	Date       string     `json:"date"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Archived   int        `json:"archived"`
	Failed     []Progress `json:"failed"`
}

type ExportStatus struct {
	Running bool      `json:"running"`
	Current *Progress `json:"current,omitempty"`
	Last    *Report   `json:"last,omitempty"`
}

type Exporter struct {
	parts    Partitioner
	renderer Renderer
	hub      *notify.Hub
	after    func()
	now      func() time.Time

	mu      sync.Mutex
	running bool
	current *Progress
	last    *Report
}

type ExporterOption func(*Exporter)

func WithExportHub(h *notify.Hub) ExporterOption { return func(x *Exporter) { x.hub = h } }

// WithAfterExport runs fn after an export where every partition succeeded.
func WithAfterExport(fn func()) ExporterOption { return func(x *Exporter) { x.after = fn } }

func WithExportClock(now func() time.Time) ExporterOption { return func(x *Exporter) { x.now = now } }

func NewExporter(parts Partitioner, r Renderer, opts ...ExporterOption) *Exporter {
	x := &Exporter{parts: parts, renderer: r, now: time.Now}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Today is the date an export started now would archive.
func (x *Exporter) Today() string { return x.now().Format(models.DateLayout) }

// Run archives date for every partition, one engine job per partition.
// A partition whose render fails keeps its log; the others still go
// through. The returned error joins every partition failure.
func (x *Exporter) Run(ctx context.Context, date string, progress func(Progress)) (Report, error) {
	x.mu.Lock()
	if x.running {
		x.mu.Unlock()
		return Report{}, ErrExportRunning
	}
	x.running = true
	x.mu.Unlock()

	rep, err := x.run(ctx, date, progress)

	x.mu.Lock()
	x.running = false
	x.current = nil
	x.last = &rep
	x.mu.Unlock()

	x.hub.Publish(notify.ExportDone, rep)
	if err == nil && x.after != nil {
		x.after()
	}
	return rep, err
}

func (x *Exporter) run(ctx context.Context, date string, progress func(Progress)) (Report, error) {
	if date == "" {
		date = x.Today()
	}
	rep := Report{Date: date, StartedAt: x.now(), Failed: []Progress{}}

	parts, err := x.parts.Partitions(ctx)
	if err != nil {
		rep.FinishedAt = x.now()
		return rep, err
	}
	log.Printf("[export] %s: %d partitions", date, len(parts))

	archiver := Archiver(x.renderer)
	var errs []error
	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		snap, err := x.parts.ArchivePartition(ctx, p, date, archiver)
		pr := Progress{Partition: p, Index: i + 1, Total: len(parts), Students: len(snap.Roster)}
		if err != nil {
			pr.Err = err.Error()
			rep.Failed = append(rep.Failed, pr)
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			log.Printf("[export] %s failed: %v", p, err)
		} else {
			rep.Archived++
		}

		x.mu.Lock()
		cur := pr
		x.current = &cur
		x.mu.Unlock()

		if progress != nil {
			progress(pr)
		}
		x.hub.Publish(notify.ExportProgress, pr)
	}

	rep.FinishedAt = x.now()
	log.Printf("[export] %s: %d archived, %d failed", date, rep.Archived, len(rep.Failed))
	return rep, errors.Join(errs...)
}

// Start runs an export in the background.
func (x *Exporter) Start(ctx context.Context, date string) error {
	x.mu.Lock()
	busy := x.running
	x.mu.Unlock()
	if busy {
		return ErrExportRunning
	}
	go func() {
		if _, err := x.Run(ctx, date, nil); err != nil && !errors.Is(err, ErrExportRunning) {
			log.Printf("[export] %v", err)
		}
	}()
	return nil
}

func (x *Exporter) Status() ExportStatus {
	x.mu.Lock()
	defer x.mu.Unlock()
	return ExportStatus{Running: x.running, Current: x.current, Last: x.last}
}
