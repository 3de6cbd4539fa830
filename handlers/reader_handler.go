package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/reader"
)

// ReaderHandler คุมเครื่องอ่านบัตรผ่านพอร์ตอนุกรม
type ReaderHandler struct {
	session   *reader.Session
	listPorts func() ([]reader.PortInfo, error)
	keywords  []string
}

func NewReaderHandler(s *reader.Session, keywords []string) *ReaderHandler {
	return &ReaderHandler{session: s, listPorts: reader.ListPorts, keywords: keywords}
}

type readerStartPayload struct {
	Port string `json:"port"` // ว่าง = ค้นหาอัตโนมัติ
}

// GET /reader
func (h *ReaderHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.session.Status())
}

// GET /reader/ports
func (h *ReaderHandler) Ports(c echo.Context) error {
	ports, err := h.listPorts()
	if err != nil {
		return appError(err)
	}
	out := map[string]any{"items": ports}
	if suggested, err := reader.DetectPort(ports, h.keywords); err == nil {
		out["suggested"] = suggested
	}
	return c.JSON(http.StatusOK, out)
}

// POST /reader/start
func (h *ReaderHandler) Start(c echo.Context) error {
	var req readerStartPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}
	if err := h.session.Start(strings.TrimSpace(req.Port)); err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, h.session.Status())
}

// POST /reader/stop
func (h *ReaderHandler) Stop(c echo.Context) error {
	h.session.Stop()
	return c.JSON(http.StatusOK, h.session.Status())
}
