// Package attendance owns each partition's daily event log: the arrival /
// departure toggle, the per-day summary, and the archive-then-reset step.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

type Log struct {
	st  storage.Store
	now func() time.Time
}

type Option func(*Log)

// WithClock replaces the wall clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

func New(st storage.Store, opts ...Option) *Log {
	l := &Log{st: st, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// NextKind applies the toggle: nothing today or last departure -> arrival,
// last arrival -> departure.
func NextKind(day []models.AttendanceEvent) models.EventKind {
	if len(day) == 0 {
		return models.KindArrival
	}
	if day[len(day)-1].Kind == models.KindArrival {
		return models.KindDeparture
	}
	return models.KindArrival
}

// Recorded is the result of one appended event.
type Recorded struct {
	Student models.Student         `json:"student"`
	Key     models.StudentKey      `json:"key"`
	Date    string                 `json:"date"`
	Event   models.AttendanceEvent `json:"event"`
	At      time.Time              `json:"at"`
}

// RecordEvent appends one event for the student's current identity. An
// empty explicit kind toggles; a valid one is appended as given. The event
// counts as recorded only when the partition log was saved.
func (l *Log) RecordEvent(ctx context.Context, s models.Student, explicit models.EventKind) (Recorded, error) {
	if explicit != "" && !explicit.Valid() {
		return Recorded{}, apperr.New(apperr.CodeInvalid, fmt.Sprintf("unknown event kind %q", explicit))
	}
	p := s.Partition()
	if s.Name == "" || !p.Valid() {
		return Recorded{}, apperr.New(apperr.CodeInvalid, "student identity is incomplete")
	}

	log, err := l.st.LoadAttendance(ctx, p)
	if err != nil {
		return Recorded{}, err
	}

	at := l.now()
	key := s.Key()
	date := at.Format(models.DateLayout)

	kind := explicit
	if kind == "" {
		kind = NextKind(log.Day(key, date))
	}
	ev := models.AttendanceEvent{Kind: kind, Time: at.Format(models.TimeLayout)}
	log.Append(key, date, ev)

	if err := l.st.SaveAttendance(ctx, p, log); err != nil {
		return Recorded{}, err
	}
	return Recorded{Student: s, Key: key, Date: date, Event: ev, At: at}, nil
}

// DaySummary splits one student's day by kind.
type DaySummary struct {
	InTimes  []string `json:"in_times"`
	OutTimes []string `json:"out_times"`
}

// DailySummary returns the day's events per student key. Students with no
// events that day are not in the map.
func (l *Log) DailySummary(ctx context.Context, p models.Partition, date string) (map[models.StudentKey]DaySummary, error) {
	log, err := l.st.LoadAttendance(ctx, p)
	if err != nil {
		return nil, err
	}
	return summarize(log, date), nil
}

func summarize(log models.AttendanceLog, date string) map[models.StudentKey]DaySummary {
	out := map[models.StudentKey]DaySummary{}
	for key, days := range log {
		events, ok := days[date]
		if !ok || len(events) == 0 {
			continue
		}
		var sum DaySummary
		for _, ev := range events {
			switch ev.Kind {
			case models.KindArrival:
				sum.InTimes = append(sum.InTimes, ev.Time)
			case models.KindDeparture:
				sum.OutTimes = append(sum.OutTimes, ev.Time)
			}
		}
		out[key] = sum
	}
	return out
}

// Today is the date key events recorded now would use.
func (l *Log) Today() string {
	return l.now().Format(models.DateLayout)
}
