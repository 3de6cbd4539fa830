package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/archive"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type ExportHandler struct {
	x *archive.Exporter
	// base outlives the request; the export keeps running after we answer
	base context.Context
}

func NewExportHandler(base context.Context, x *archive.Exporter) *ExportHandler {
	return &ExportHandler{x: x, base: base}
}

type exportPayload struct {
	Date string `json:"date"` // YYYY-MM-DD, ว่าง = วันนี้
}

// POST /export เริ่มส่งออกทุกสาขาเป็นไฟล์ Excel แล้วล้างบันทึกของวัน
func (h *ExportHandler) Start(c echo.Context) error {
	var req exportPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}
	date := strings.TrimSpace(req.Date)
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
				"error":  "VALIDATION_ERROR",
				"fields": map[string]string{"date": "datetime"},
			})
		}
	} else {
		date = h.x.Today()
	}
	if err := h.x.Start(h.base, date); err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{"date": date, "status": "started"})
}

// GET /export
func (h *ExportHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.x.Status())
}
