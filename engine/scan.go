package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/cards"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/roster"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

// ScanOutcome is Known with the recorded event, or Unknown and waiting
// for enrollment.
type ScanOutcome struct {
	CardID   string               `json:"card_id"`
	Known    bool                 `json:"known"`
	Student  *models.Student      `json:"student,omitempty"`
	Recorded *attendance.Recorded `json:"recorded,omitempty"`
}

// PendingCard is an unknown card scanned but not enrolled yet.
type PendingCard struct {
	CardID    string    `json:"card_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Scans     int       `json:"scans"`
}

// RegisterScan records an automatic toggle event for a known card. An
// unknown card only lands on the pending list.
func (e *Engine) RegisterScan(ctx context.Context, cardID string) (ScanOutcome, error) {
	id := cards.Normalize(cardID)
	if id == "" {
		return ScanOutcome{}, apperr.New(apperr.CodeInvalid, "card id is required")
	}
	var out ScanOutcome
	err := e.do(ctx, func(ctx context.Context) error {
		o, err := e.registerScan(ctx, id)
		out = o
		return err
	})
	return out, err
}

func (e *Engine) registerScan(ctx context.Context, id string) (ScanOutcome, error) {
	out := ScanOutcome{CardID: id}
	s, err := cards.New(e.st).Lookup(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		e.addPending(id)
		e.hub.Publish(notify.CardUnknown, out)
		return out, nil
	case err != nil:
		return out, err
	}

	rec, err := e.attendance(e.st).RecordEvent(ctx, s, "")
	if err != nil {
		return out, err
	}
	out.Known = true
	out.Student = &s
	out.Recorded = &rec
	e.hub.Publish(notify.AttendanceRecorded, rec)
	return out, nil
}

// SubmitScan is the card reader's consumer. It queues the scan behind any
// earlier work and returns without waiting for it.
func (e *Engine) SubmitScan(cardID string) {
	id := cards.Normalize(cardID)
	if id == "" {
		return
	}
	err := e.enqueue(func(ctx context.Context) error {
		out, err := e.registerScan(ctx, id)
		if err != nil {
			return fmt.Errorf("scan %s: %w", id, err)
		}
		if out.Known {
			log.Printf("[engine] %s %s %s", out.Recorded.Key, out.Recorded.Event.Kind, out.Recorded.Event.Time)
		} else {
			log.Printf("[engine] unknown card %s", id)
		}
		return nil
	})
	if err != nil {
		log.Printf("[engine] drop scan %s: %v", id, err)
	}
}

func (e *Engine) addPending(id string) {
	now := e.now()
	for i := range e.pending {
		if e.pending[i].CardID == id {
			e.pending[i].LastSeen = now
			e.pending[i].Scans++
			return
		}
	}
	if len(e.pending) >= maxPendingCard {
		e.pending = e.pending[1:]
	}
	e.pending = append(e.pending, PendingCard{CardID: id, FirstSeen: now, LastSeen: now, Scans: 1})
}

func (e *Engine) removePending(id string) bool {
	for i := range e.pending {
		if e.pending[i].CardID == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) PendingCards(ctx context.Context) ([]PendingCard, error) {
	var out []PendingCard
	err := e.do(ctx, func(context.Context) error {
		out = append([]PendingCard{}, e.pending...)
		return nil
	})
	return out, err
}

// DismissPending abandons enrollment for a card. Nothing is written.
func (e *Engine) DismissPending(ctx context.Context, cardID string) error {
	id := cards.Normalize(cardID)
	return e.do(ctx, func(context.Context) error {
		if !e.removePending(id) {
			return apperr.New(apperr.CodeNotFound, fmt.Sprintf("card %s is not pending", id))
		}
		return nil
	})
}

// EnrollRequest is the identity the operator picked for an unknown card.
// Existing means the student must already be on the roster.
type EnrollRequest struct {
	CardID     string `json:"card_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Stage      string `json:"stage" validate:"required"`
	Department string `json:"department" validate:"required"`
	Existing   bool   `json:"existing"`
}

type EnrollOutcome struct {
	CardID   string              `json:"card_id"`
	Student  models.Student      `json:"student"`
	Added    bool                `json:"added"`
	Recorded attendance.Recorded `json:"recorded"`
}

// Enroll binds the card, adds the student when absent, and records the
// first toggle event. It runs only once the identity is complete, so an
// abandoned enrollment writes nothing.
func (e *Engine) Enroll(ctx context.Context, req EnrollRequest) (EnrollOutcome, error) {
	id := cards.Normalize(req.CardID)
	name := models.NormalizeName(req.Name)
	p := models.Partition{Stage: req.Stage, Department: req.Department}
	if id == "" || name == "" || !p.Valid() {
		return EnrollOutcome{}, apperr.New(apperr.CodeInvalid, "card id, name, stage and department are required")
	}

	var out EnrollOutcome
	err := e.do(ctx, func(ctx context.Context) error {
		err := e.st.Tx(ctx, func(tx storage.Store) error {
			rs := roster.New(tx)
			s, found, err := rs.Find(ctx, p, name)
			if err != nil {
				return err
			}
			if !found {
				if req.Existing {
					return apperr.New(apperr.CodeNotFound, fmt.Sprintf("%s is not in %s", name, p))
				}
				if err := e.requirePartition(ctx, tx, p); err != nil {
					return err
				}
				if s, err = rs.Add(ctx, p, name); err != nil {
					return err
				}
				out.Added = true
			}
			if err := cards.New(tx).Bind(ctx, id, s); err != nil {
				return err
			}
			rec, err := e.attendance(tx).RecordEvent(ctx, s, "")
			if err != nil {
				return err
			}
			out.CardID, out.Student, out.Recorded = id, s, rec
			return nil
		})
		if err != nil {
			return err
		}
		e.removePending(id)
		return nil
	})
	if err != nil {
		return EnrollOutcome{}, err
	}
	log.Printf("[engine] enrolled card %s to %s", id, out.Student.Key())
	e.hub.Publish(notify.CardEnrolled, out)
	e.hub.Publish(notify.AttendanceRecorded, out.Recorded)
	return out, nil
}
