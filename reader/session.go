// Package reader runs the card reader session: one goroutine reading
// newline terminated card ids from a serial port and handing each one,
// normalized, to a single consumer.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/cards"
)

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateFailed   State = "failed"
)

const maxLine = 256

type Status struct {
	State State  `json:"state"`
	Port  string `json:"port,omitempty"`
	Error string `json:"error,omitempty"`
	Scans int    `json:"scans"`
}

type Session struct {
	consume  func(cardID string)
	open     Opener
	detect   func() (string, error)
	baud     int
	timeout  time.Duration
	onChange func(Status)

	mu      sync.Mutex
	state   State
	port    string
	lastErr error
	scans   int
	gen     uint64
	stop    chan struct{}
	closer  *portCloser

	// held while the consumer runs so two generations never overlap
	consumeMu sync.Mutex
}

type Option func(*Session)

func WithOpener(o Opener) Option { return func(s *Session) { s.open = o } }

func WithBaudRate(baud int) Option { return func(s *Session) { s.baud = baud } }

// WithReadTimeout bounds each blocking read so Stop is observed promptly.
func WithReadTimeout(d time.Duration) Option { return func(s *Session) { s.timeout = d } }

// WithDetector picks the port when Start is called without one.
func WithDetector(fn func() (string, error)) Option { return func(s *Session) { s.detect = fn } }

// WithStateHook is called after every state change, outside the lock.
func WithStateHook(fn func(Status)) Option { return func(s *Session) { s.onChange = fn } }

// NewSession creates a stopped session feeding consume.
func NewSession(consume func(cardID string), opts ...Option) *Session {
	s := &Session{
		consume: consume,
		open:    SerialOpener,
		baud:    9600,
		timeout: time.Second,
		state:   StateStopped,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// portCloser closes the port exactly once, whoever gets there first.
type portCloser struct {
	once sync.Once
	p    Port
}

func (c *portCloser) Close() {
	c.once.Do(func() {
		if err := c.p.Close(); err != nil {
			log.Printf("[reader] close port: %v", err)
		}
	})
}

func (s *Session) statusLocked() Status {
	st := Status{State: s.state, Port: s.port, Scans: s.scans}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) changed(st Status) {
	log.Printf("[reader] %s %s %s", st.State, st.Port, st.Error)
	if s.onChange != nil {
		s.onChange(st)
	}
}

// Start opens port, or an auto-detected one when port is empty, and
// starts reading. It fails with Busy while a session is starting or
// running; after a failure the caller starts again.
func (s *Session) Start(port string) error {
	s.mu.Lock()
	if s.state == StateStarting || s.state == StateRunning {
		s.mu.Unlock()
		return apperr.New(apperr.CodeBusy, "card reader already running")
	}
	s.gen++
	gen := s.gen
	s.state = StateStarting
	s.port = port
	s.lastErr = nil
	s.scans = 0
	st := s.statusLocked()
	s.mu.Unlock()
	s.changed(st)

	if port == "" {
		if s.detect == nil {
			return s.fail(gen, apperr.New(apperr.CodePeripheralUnavailable, "no port given and no detector configured"))
		}
		detected, err := s.detect()
		if err != nil {
			return s.fail(gen, err)
		}
		port = detected
		s.mu.Lock()
		if s.gen == gen {
			s.port = port
		}
		s.mu.Unlock()
	}

	p, err := s.open(port, s.baud)
	if err != nil {
		if !errors.Is(err, apperr.ErrPeripheralUnavailable) {
			err = apperr.Wrap(apperr.CodePeripheralUnavailable, fmt.Sprintf("open %s", port), err)
		}
		return s.fail(gen, err)
	}
	if err := p.SetReadTimeout(s.timeout); err != nil {
		p.Close()
		return s.fail(gen, apperr.Wrap(apperr.CodePeripheralUnavailable, "set read timeout", err))
	}

	s.mu.Lock()
	if s.gen != gen {
		// stopped while opening
		s.mu.Unlock()
		p.Close()
		return nil
	}
	closer := &portCloser{p: p}
	stop := make(chan struct{})
	s.closer = closer
	s.stop = stop
	s.state = StateRunning
	st = s.statusLocked()
	s.mu.Unlock()
	s.changed(st)

	go s.loop(gen, p, closer, stop)
	return nil
}

// Stop is valid in any state. It ends the loop, closes the port if open
// and leaves the session Stopped. A scan already handed to the consumer
// is not interrupted.
func (s *Session) Stop() {
	s.mu.Lock()
	s.gen++
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	closer := s.closer
	s.closer = nil
	wasStopped := s.state == StateStopped
	s.state = StateStopped
	st := s.statusLocked()
	s.mu.Unlock()

	if closer != nil {
		closer.Close()
	}
	if !wasStopped {
		s.changed(st)
	}
}

func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return err
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	closer := s.closer
	s.closer = nil
	s.state = StateFailed
	s.lastErr = err
	st := s.statusLocked()
	s.mu.Unlock()

	if closer != nil {
		closer.Close()
	}
	s.changed(st)
	return err
}

func (s *Session) loop(gen uint64, p Port, closer *portCloser, stop <-chan struct{}) {
	defer closer.Close()

	buf := make([]byte, 128)
	var line []byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := p.Read(buf)
		select {
		case <-stop:
			return
		default:
		}
		if err != nil {
			s.fail(gen, apperr.Wrap(apperr.CodePeripheralUnavailable, "read card reader", err))
			return
		}
		if n == 0 {
			continue
		}

		line = append(line, buf[:n]...)
		for {
			i := bytes.IndexByte(line, '\n')
			if i < 0 {
				break
			}
			raw := line[:i]
			if !utf8.Valid(raw) {
				s.fail(gen, apperr.New(apperr.CodeDecodeFailure, fmt.Sprintf("card line is not valid UTF-8: %q", raw)))
				return
			}
			id := cards.Normalize(string(raw))
			line = line[i+1:]
			if id == "" {
				continue
			}
			if !s.forward(gen, id) {
				return
			}
		}
		if len(line) > maxLine {
			s.fail(gen, apperr.New(apperr.CodeDecodeFailure, "card line too long"))
			return
		}
	}
}

// forward hands id to the consumer unless the session moved on.
func (s *Session) forward(gen uint64, id string) bool {
	s.consumeMu.Lock()
	defer s.consumeMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.scans++
	s.mu.Unlock()

	s.consume(id)
	return true
}
