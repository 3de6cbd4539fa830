package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/archive"
	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type AttendanceHandler struct {
	eng        *engine.Engine
	recordsDir string
}

func NewAttendanceHandler(eng *engine.Engine, recordsDir string) *AttendanceHandler {
	return &AttendanceHandler{eng: eng, recordsDir: recordsDir}
}

type markPayload struct {
	Name       string `json:"name" validate:"required"`
	Stage      string `json:"stage" validate:"required"`
	Department string `json:"department" validate:"required"`
	Kind       string `json:"kind"` // ว่าง = สลับเข้า/ออกอัตโนมัติ
}

// POST /attendance บันทึกด้วยมือ (ไม่ผ่านบัตร)
func (h *AttendanceHandler) Mark(c echo.Context) error {
	var req markPayload
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	kind, err := models.ParseEventKind(req.Kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"error":  "VALIDATION_ERROR",
			"fields": map[string]string{"kind": "oneof"},
		})
	}
	p := models.Partition{Stage: strings.TrimSpace(req.Stage), Department: strings.TrimSpace(req.Department)}
	rec, err := h.eng.RecordManual(c.Request().Context(), p, req.Name, kind)
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

type summaryRow struct {
	Name      string   `json:"name"`
	Arrival   string   `json:"arrival"`
	Departure string   `json:"departure"`
	InTimes   []string `json:"in_times"`
	OutTimes  []string `json:"out_times"`
}

// GET /attendance/summary?stage=&department=&date=YYYY-MM-DD
func (h *AttendanceHandler) Summary(c echo.Context) error {
	p, err := partitionQuery(c)
	if err != nil {
		return err
	}
	date := strings.TrimSpace(c.QueryParam("date"))
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
				"error":  "VALIDATION_ERROR",
				"fields": map[string]string{"date": "datetime"},
			})
		}
	}

	snap, err := h.eng.Snapshot(c.Request().Context(), p, date)
	if err != nil {
		return appError(err)
	}
	rows := make([]summaryRow, 0, len(snap.Roster))
	for _, st := range snap.Roster {
		sum := snap.Summary[st.Key()]
		arrival, departure := snap.LabelsFor(st)
		rows = append(rows, summaryRow{
			Name:      st.Name,
			Arrival:   arrival,
			Departure: departure,
			InTimes:   nonNil(sum.InTimes),
			OutTimes:  nonNil(sum.OutTimes),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"partition": snap.Partition,
		"date":      snap.Date,
		"items":     rows,
	})
}

// GET /absences?stage=&department=&name=
func (h *AttendanceHandler) Absences(c echo.Context) error {
	p, err := partitionQuery(c)
	if err != nil {
		return err
	}
	name := models.NormalizeName(c.QueryParam("name"))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"error":  "VALIDATION_ERROR",
			"fields": map[string]string{"name": "required"},
		})
	}
	out, err := archive.CountAbsences(c.Request().Context(), h.recordsDir, p, name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]any{"error": "RECORDS_READ_FAILED", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
