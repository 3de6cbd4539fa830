package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/patiponrmutl/ScanAttendance/models"
)

const (
	LabelAbsent      = "غياب"
	LabelNotDeparted = "لم ينصرف"
)

// Snapshot is everything an archive renderer gets for one partition and
// day: the full roster, so students with no events can be shown absent,
// and the day's summary.
type Snapshot struct {
	Partition models.Partition                 `json:"partition"`
	Date      string                           `json:"date"`
	Roster    []models.Student                 `json:"roster"`
	Summary   map[models.StudentKey]DaySummary `json:"summary"`
}

// Archiver durably writes a snapshot. A nil error confirms the write.
type Archiver func(ctx context.Context, snap Snapshot) error

// Snapshot builds the handoff for one partition and day.
func (l *Log) Snapshot(ctx context.Context, p models.Partition, date string, roster []models.Student) (Snapshot, error) {
	sum, err := l.DailySummary(ctx, p, date)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Partition: p, Date: date, Roster: roster, Summary: sum}, nil
}

// ArchiveAndReset hands the snapshot to archive and, only once it returns
// nil, replaces the partition's whole log with an empty one. A failed
// archive leaves the log untouched.
func (l *Log) ArchiveAndReset(ctx context.Context, p models.Partition, date string, roster []models.Student, archive Archiver) (Snapshot, error) {
	snap, err := l.Snapshot(ctx, p, date, roster)
	if err != nil {
		return Snapshot{}, err
	}
	if err := archive(ctx, snap); err != nil {
		return snap, fmt.Errorf("archive %s %s: %w", p, date, err)
	}
	if err := l.st.SaveAttendance(ctx, p, models.AttendanceLog{}); err != nil {
		return snap, err
	}
	return snap, nil
}

// Labels renders a student's arrival and departure cells. No arrival is
// absent for the arrival column; an arrival without a departure is not
// departed yet; no events at all is absent for both.
func Labels(sum DaySummary, found bool) (arrival, departure string) {
	if !found || (len(sum.InTimes) == 0 && len(sum.OutTimes) == 0) {
		return LabelAbsent, LabelAbsent
	}

	if len(sum.InTimes) == 0 {
		arrival = LabelAbsent
	} else {
		arrival = strings.Join(sum.InTimes, "\n")
	}

	switch {
	case len(sum.OutTimes) > 0:
		departure = strings.Join(sum.OutTimes, "\n")
	case len(sum.InTimes) > 0:
		departure = LabelNotDeparted
	default:
		departure = LabelAbsent
	}
	return arrival, departure
}

// LabelsFor looks a roster student up in the snapshot and labels them.
func (s Snapshot) LabelsFor(st models.Student) (arrival, departure string) {
	sum, ok := s.Summary[st.Key()]
	return Labels(sum, ok)
}
