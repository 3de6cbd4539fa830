package archive

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/models"
)

// Absences is one student's record over a partition's archived days.
type Absences struct {
	Student   models.Student `json:"student"`
	TotalDays int            `json:"total_days"`
	Absent    int            `json:"absent"`
	Dates     []string       `json:"absent_dates"`
}

// CountAbsences reads every archived day of the partition. A day counts
// as absent when the student's arrival cell says absent. Files that cannot
// be read still count towards the total, as days with no verdict.
func CountAbsences(ctx context.Context, root string, p models.Partition, name string) (Absences, error) {
	out := Absences{
		Student: models.Student{Name: name, Stage: p.Stage, Department: p.Department},
		Dates:   []string{},
	}
	dir := PartitionDir(root, p)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	out.TotalDays = len(files)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		arrival, ok, err := arrivalCell(filepath.Join(dir, file), name)
		if err != nil {
			log.Printf("[absence] skip %s: %v", file, err)
			continue
		}
		if ok && arrival == attendance.LabelAbsent {
			out.Absent++
			out.Dates = append(out.Dates, strings.TrimSuffix(file, ".xlsx"))
		}
	}
	return out, nil
}

// arrivalCell finds the student's row by the name column and returns the
// arrival column of the first match.
func arrivalCell(path, name string) (string, bool, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", false, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	nameCol, arrivalCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case ColName:
			nameCol = i
		case ColArrival:
			arrivalCol = i
		}
	}
	if nameCol < 0 || arrivalCol < 0 {
		return "", false, errors.New("missing name or arrival column")
	}

	for _, row := range rows[1:] {
		if nameCol < len(row) && row[nameCol] == name {
			if arrivalCol < len(row) {
				return row[arrivalCol], true, nil
			}
			return "", true, nil
		}
	}
	return "", false, nil
}
