// Package engine is the single mutation path. Every roster, attendance and
// card registry read or write runs as a job on one consumer goroutine, so
// scans from the reader, manual registrations, moves and archive resets
// never interleave.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

// ErrStopped is returned for work submitted after Run has returned.
var ErrStopped = errors.New("engine stopped")

const (
	queueSize      = 64
	maxPendingCard = 50
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error // nil for fire-and-forget jobs
}

type Engine struct {
	st       storage.Store
	hub      *notify.Hub
	now      func() time.Time
	defaults models.Catalog

	jobs    chan job
	stopped chan struct{}

	// owned by the consumer goroutine
	pending []PendingCard
}

type Option func(*Engine)

func WithHub(h *notify.Hub) Option { return func(e *Engine) { e.hub = h } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithDefaultCatalog seeds the stage/department catalog when the store has none.
func WithDefaultCatalog(cat models.Catalog) Option {
	return func(e *Engine) { e.defaults = cat.Clone() }
}

func New(st storage.Store, opts ...Option) *Engine {
	e := &Engine{
		st:      st,
		now:     time.Now,
		jobs:    make(chan job, queueSize),
		stopped: make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run drains jobs until ctx is done, then finishes whatever is already
// queued before returning.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	log.Printf("[engine] started")
	for {
		select {
		case j := <-e.jobs:
			e.exec(j)
		case <-ctx.Done():
			for {
				select {
				case j := <-e.jobs:
					e.exec(j)
				default:
					log.Printf("[engine] stopped")
					return nil
				}
			}
		}
	}
}

func (e *Engine) exec(j job) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[engine] job panic: %v", r)
				err = fmt.Errorf("engine job panic: %v", r)
			}
		}()
		return j.fn(j.ctx)
	}()
	if j.done != nil {
		j.done <- err
		return
	}
	if err != nil {
		log.Printf("[engine] background job: %v", err)
	}
}

// do runs fn on the consumer and waits for it. A job that was handed over
// runs to completion even when ctx is cancelled meanwhile.
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{ctx: context.WithoutCancel(ctx), fn: fn, done: make(chan error, 1)}
	select {
	case e.jobs <- j:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-e.stopped:
		select {
		case err := <-j.done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue hands fn to the consumer without waiting for its result.
func (e *Engine) enqueue(fn func(ctx context.Context) error) error {
	select {
	case e.jobs <- job{ctx: context.Background(), fn: fn}:
		return nil
	case <-e.stopped:
		return ErrStopped
	}
}

func (e *Engine) attendance(st storage.Store) *attendance.Log {
	return attendance.New(st, attendance.WithClock(e.now))
}

// Today is the date key used for events recorded now.
func (e *Engine) Today() string {
	return e.now().Format(models.DateLayout)
}
