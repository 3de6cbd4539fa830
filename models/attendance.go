package models

import (
	"fmt"
	"strings"

	"github.com/patiponrmutl/ScanAttendance/apperr"
)

// EventKind values are the literal tokens stored in attendance files.
type EventKind string

const (
	KindArrival   EventKind = "حضور"
	KindDeparture EventKind = "انصراف"
)

const (
	DateLayout = "2006-01-02" // ISO date keys inside a student's log
	TimeLayout = "03:04 PM"   // 12-hour clock string stored per event
)

func (k EventKind) Valid() bool {
	return k == KindArrival || k == KindDeparture
}

// ParseEventKind accepts the stored tokens and their English aliases.
// An empty string yields the zero kind, meaning "toggle automatically".
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "in", "arrival", string(KindArrival):
		return KindArrival, nil
	case "out", "departure", string(KindDeparture):
		return KindDeparture, nil
	}
	return "", apperr.New(apperr.CodeInvalid, fmt.Sprintf("unknown event kind %q", s))
}

// AttendanceEvent is immutable once appended.
type AttendanceEvent struct {
	Kind EventKind `json:"type"`
	Time string    `json:"time"`
}

// AttendanceLog is one partition's log: student key -> ISO date -> events in insertion order.
type AttendanceLog map[StudentKey]map[string][]AttendanceEvent

func (l AttendanceLog) Day(key StudentKey, date string) []AttendanceEvent {
	days, ok := l[key]
	if !ok {
		return nil
	}
	return days[date]
}

func (l AttendanceLog) Append(key StudentKey, date string, ev AttendanceEvent) {
	days, ok := l[key]
	if !ok {
		days = map[string][]AttendanceEvent{}
		l[key] = days
	}
	days[date] = append(days[date], ev)
}
