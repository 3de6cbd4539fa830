package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/patiponrmutl/ScanAttendance/attendance"
)

const sheetName = "Sheet1"

// Renderer durably writes a sheet and returns where it went.
type Renderer interface {
	Render(ctx context.Context, sheet Sheet) (string, error)
}

// XLSXRenderer writes records/<stage>/<department>/<date>.xlsx.
type XLSXRenderer struct {
	Root string
}

func NewXLSXRenderer(root string) *XLSXRenderer { return &XLSXRenderer{Root: root} }

func (r *XLSXRenderer) Path(sheet Sheet) string {
	return filepath.Join(PartitionDir(r.Root, sheet.Partition), sheet.Date+".xlsx")
}

func (r *XLSXRenderer) Render(ctx context.Context, sheet Sheet) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := r.Path(sheet)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := fill(f, sheet); err != nil {
		return "", fmt.Errorf("render %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.xlsx")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func fill(f *excelize.File, sheet Sheet) error {
	rtl := true
	if err := f.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	header := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: center,
			Border:    border,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
	}

	fills := map[string]string{
		ColNumber:    "FFFF00",
		ColArrival:   "9BBB59",
		ColDeparture: "87CEEB",
	}
	for i, col := range Columns {
		color, ok := fills[col]
		if !ok {
			color = "D3D3D3"
		}
		style, err := header(color)
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}

	data, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 12},
		Alignment: center,
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F8FF"}},
	})
	if err != nil {
		return err
	}
	for i, row := range sheet.Rows {
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row.Values()
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(len(Columns), i+2)
		if err := f.SetCellStyle(sheetName, start, end, data); err != nil {
			return err
		}
	}

	widths := []float64{5, 25, 15, 15, 12, 12, 12, 25}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return err
		}
	}

	var (
		a4        = 9
		landscape = "landscape"
		fitWidth  = 1
		fitHeight = 0
	)
	if err := f.SetPageLayout(sheetName, &excelize.PageLayoutOptions{
		Size:        &a4,
		Orientation: &landscape,
		FitToWidth:  &fitWidth,
		FitToHeight: &fitHeight,
	}); err != nil {
		return err
	}
	side, edge, hf := 0.3, 0.4, 0.3
	return f.SetPageMargins(sheetName, &excelize.PageLayoutMarginsOptions{
		Left: &side, Right: &side, Top: &edge, Bottom: &edge, Header: &hf, Footer: &hf,
	})
}

// Archiver adapts a renderer to the attendance archive contract. A
// partition with an empty roster renders nothing and still counts as
// archived.
func Archiver(r Renderer) attendance.Archiver {
	return func(ctx context.Context, snap attendance.Snapshot) error {
		if len(snap.Roster) == 0 {
			return nil
		}
		_, err := r.Render(ctx, BuildSheet(snap))
		return err
	}
}
