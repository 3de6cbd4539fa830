package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type DashboardHandler struct {
	eng *engine.Engine
}

func NewDashboardHandler(eng *engine.Engine) *DashboardHandler { return &DashboardHandler{eng: eng} }

type partitionCount struct {
	Partition models.Partition `json:"partition"`
	Total     int              `json:"total"`
	Present   int              `json:"present"`  // มีเวลาเข้าอย่างน้อย 1 ครั้ง
	Departed  int              `json:"departed"` // มีเวลาออกแล้ว
	Absent    int              `json:"absent"`
}

// GET /dashboard/daily?date=YYYY-MM-DD
// สรุปยอดมา/ขาด/กลับแล้ว ของทุกสาขาในแคตตาล็อก
func (h *DashboardHandler) Daily(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		date = h.eng.Today()
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"error":  "VALIDATION_ERROR",
			"fields": map[string]string{"date": "datetime"},
		})
	}

	ctx := c.Request().Context()
	parts, err := h.eng.Partitions(ctx)
	if err != nil {
		return appError(err)
	}

	rows := make([]partitionCount, 0, len(parts))
	var total partitionCount
	for _, p := range parts {
		snap, err := h.eng.Snapshot(ctx, p, date)
		if err != nil {
			return appError(err)
		}
		pc := partitionCount{Partition: p, Total: len(snap.Roster)}
		for _, st := range snap.Roster {
			sum := snap.Summary[st.Key()]
			switch {
			case len(sum.InTimes) == 0:
				pc.Absent++
			case len(sum.OutTimes) > 0:
				pc.Present++
				pc.Departed++
			default:
				pc.Present++
			}
		}
		total.Total += pc.Total
		total.Present += pc.Present
		total.Departed += pc.Departed
		total.Absent += pc.Absent
		rows = append(rows, pc)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"date":  date,
		"rows":  rows,
		"total": total,
	})
}
