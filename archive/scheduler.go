package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the export on a cron schedule, skipping a tick while the
// previous run is still going.
type Scheduler struct {
	c *cron.Cron
}

func NewScheduler(expr string, x *Exporter) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := x.Run(ctx, x.Today(), nil); err != nil {
			log.Printf("[export] scheduled run: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("archive schedule %q: %w", expr, err)
	}
	return &Scheduler{c: c}, nil
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop waits for a running export to finish.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }
