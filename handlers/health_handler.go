package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/reader"
)

type HealthHandler struct {
	eng     *engine.Engine
	session *reader.Session
}

func NewHealthHandler(eng *engine.Engine, s *reader.Session) *HealthHandler {
	return &HealthHandler{eng: eng, session: s}
}

// Health ใช้สำหรับ /health
func (h *HealthHandler) Health(c echo.Context) error {
	out := map[string]any{
		"status": "ok",
		"date":   h.eng.Today(),
	}
	if h.session != nil {
		out["reader"] = h.session.Status().State
	}
	return c.JSON(http.StatusOK, out)
}
