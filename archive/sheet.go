// Package archive turns a partition's day into a spreadsheet on disk,
// runs the export over every partition, and counts absences by reading
// those spreadsheets back.
package archive

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/patiponrmutl/ScanAttendance/attendance"
	"github.com/patiponrmutl/ScanAttendance/models"
)

const (
	ColNumber     = "ت"
	ColName       = "اسم"
	ColStage      = "المرحلة"
	ColDepartment = "القسم"
	ColDate       = "تاريخ"
	ColArrival    = "الحضور"
	ColDeparture  = "الانصراف"
	ColNotes      = "ملاحظات"
)

// Columns is the header row, in order.
var Columns = []string{ColNumber, ColName, ColStage, ColDepartment, ColDate, ColArrival, ColDeparture, ColNotes}

type Row struct {
	Number     int
	Name       string
	Stage      string
	Department string
	Date       string
	Arrival    string
	Departure  string
	Notes      string
}

func (r Row) Values() []any {
	return []any{r.Number, r.Name, r.Stage, r.Department, r.Date, r.Arrival, r.Departure, r.Notes}
}

// Sheet is one partition's rendered day.
type Sheet struct {
	Partition models.Partition
	Date      string
	Rows      []Row
}

// BuildSheet labels every roster student, sorts by name and numbers the
// rows from 1.
func BuildSheet(snap attendance.Snapshot) Sheet {
	rows := make([]Row, 0, len(snap.Roster))
	for _, st := range snap.Roster {
		arrival, departure := snap.LabelsFor(st)
		rows = append(rows, Row{
			Name:       st.Name,
			Stage:      snap.Partition.Stage,
			Department: snap.Partition.Department,
			Date:       snap.Date,
			Arrival:    arrival,
			Departure:  departure,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	for i := range rows {
		rows[i].Number = i + 1
	}
	return Sheet{Partition: snap.Partition, Date: snap.Date, Rows: rows}
}

// PartitionDir is records/<stage>/<department>.
func PartitionDir(root string, p models.Partition) string {
	return filepath.Join(root, safe(p.Stage), safe(p.Department))
}

func safe(s string) string {
	return strings.NewReplacer("/", "-", `\`, "-", "..", "-").Replace(s)
}
