// Package jsonfile keeps one JSON document per partition roster, one per
// partition attendance log, and single documents for cards, the catalog
// and the move journal. The layout and document shapes are the ones the
// station has always written, so existing data folders load unchanged:
//
//	<dir>/students/<stage>_<department>.json
//	<dir>/attendance/<stage>_<department>.json
//	<dir>/cards.json
//	<dir>/stages.json
//	<dir>/moves.json
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

const (
	studentsDir   = "students"
	attendanceDir = "attendance"
	cardsFile     = "cards.json"
	catalogFile   = "stages.json"
	movesFile     = "moves.json"
)

type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open creates the folder layout under dir if needed.
func Open(dir string) (*Store, error) {
	for _, sub := range []string{dir, filepath.Join(dir, studentsDir), filepath.Join(dir, attendanceDir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, apperr.Wrap(apperr.CodeStorageFailure, "create data folder", err)
		}
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// partitionFile mirrors the "<stage>_<department>.json" naming. Path
// separators are replaced so a department name cannot escape the folder.
func partitionFile(p models.Partition) string {
	clean := strings.NewReplacer("/", "-", `\`, "-").Replace(p.Stage + "_" + p.Department)
	return clean + ".json"
}

func (s *Store) rosterPath(p models.Partition) string {
	return filepath.Join(s.dir, studentsDir, partitionFile(p))
}

func (s *Store) attendancePath(p models.Partition) string {
	return filepath.Join(s.dir, attendanceDir, partitionFile(p))
}

func (s *Store) LoadRoster(_ context.Context, p models.Partition) ([]models.Student, error) {
	var out []models.Student
	s.read(s.rosterPath(p), &out)
	if out == nil {
		out = []models.Student{}
	}
	return out, nil
}

func (s *Store) SaveRoster(_ context.Context, p models.Partition, students []models.Student) error {
	if students == nil {
		students = []models.Student{}
	}
	return s.write(s.rosterPath(p), students)
}

func (s *Store) LoadAttendance(_ context.Context, p models.Partition) (models.AttendanceLog, error) {
	out := models.AttendanceLog{}
	s.read(s.attendancePath(p), &out)
	if out == nil {
		out = models.AttendanceLog{}
	}
	return out, nil
}

func (s *Store) SaveAttendance(_ context.Context, p models.Partition, l models.AttendanceLog) error {
	if l == nil {
		l = models.AttendanceLog{}
	}
	return s.write(s.attendancePath(p), l)
}

func (s *Store) LoadCards(_ context.Context) (models.CardBindings, error) {
	out := models.CardBindings{}
	s.read(filepath.Join(s.dir, cardsFile), &out)
	if out == nil {
		out = models.CardBindings{}
	}
	return out, nil
}

func (s *Store) SaveCards(_ context.Context, cards models.CardBindings) error {
	if cards == nil {
		cards = models.CardBindings{}
	}
	return s.write(filepath.Join(s.dir, cardsFile), cards)
}

func (s *Store) LoadCatalog(_ context.Context) (models.Catalog, error) {
	out := models.Catalog{}
	s.read(filepath.Join(s.dir, catalogFile), &out)
	if out == nil {
		out = models.Catalog{}
	}
	return out, nil
}

func (s *Store) SaveCatalog(_ context.Context, cat models.Catalog) error {
	if cat == nil {
		cat = models.Catalog{}
	}
	return s.write(filepath.Join(s.dir, catalogFile), cat)
}

func (s *Store) loadMoves() []models.StudentMove {
	var out []models.StudentMove
	s.read(filepath.Join(s.dir, movesFile), &out)
	return out
}

func (s *Store) AppendMove(_ context.Context, m *models.StudentMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	moves := s.loadMoves()
	var maxID uint
	for _, mv := range moves {
		if mv.ID > maxID {
			maxID = mv.ID
		}
	}
	now := s.now()
	m.ID = maxID + 1
	m.CreatedAt = now
	m.UpdatedAt = now
	moves = append(moves, *m)
	return s.write(filepath.Join(s.dir, movesFile), moves)
}

func (s *Store) UpdateMove(_ context.Context, m *models.StudentMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	moves := s.loadMoves()
	for i := range moves {
		if moves[i].ID == m.ID {
			m.UpdatedAt = s.now()
			moves[i] = *m
			return s.write(filepath.Join(s.dir, movesFile), moves)
		}
	}
	return apperr.New(apperr.CodeNotFound, fmt.Sprintf("move %d not found", m.ID))
}

func (s *Store) PendingMoves(_ context.Context) ([]models.StudentMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.StudentMove
	for _, mv := range s.loadMoves() {
		if mv.Status == models.MoveStatusPending {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (s *Store) ListMoves(_ context.Context, limit int) ([]models.StudentMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moves := s.loadMoves()
	sort.Slice(moves, func(i, j int) bool { return moves[i].ID > moves[j].ID })
	if limit > 0 && len(moves) > limit {
		moves = moves[:limit]
	}
	return moves, nil
}

func (s *Store) Tx(_ context.Context, fn func(storage.Store) error) error {
	return fn(s)
}

// read decodes path into dst. A missing file is a first-use condition; a
// file that cannot be decoded is renamed aside and treated the same way.
func (s *Store) read(path string, dst any) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[jsonfile] read %s failed, using empty default: %v", path, err)
		}
		return
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// null resets a partially decoded map or slice to nil
		_ = json.Unmarshal([]byte("null"), dst)
		aside := fmt.Sprintf("%s.corrupt-%d", path, s.now().Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			log.Printf("[jsonfile] decode %s failed (%v), could not move aside: %v", path, err, rerr)
		} else {
			log.Printf("[jsonfile] decode %s failed, moved to %s: %v", path, aside, err)
		}
	}
}

// write replaces path atomically: encode to a temp file in the same
// folder, sync, then rename over the old file.
func (s *Store) write(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return apperr.Wrap(apperr.CodeStorageFailure, "encode "+filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.CodeStorageFailure, "create "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apperr.Wrap(apperr.CodeStorageFailure, "write "+filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Wrap(apperr.CodeStorageFailure, "write "+filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Wrap(apperr.CodeStorageFailure, "sync "+filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperr.Wrap(apperr.CodeStorageFailure, "close "+filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return apperr.Wrap(apperr.CodeStorageFailure, "replace "+filepath.Base(path), err)
	}
	return nil
}
