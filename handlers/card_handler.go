package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/engine"
)

// CardHandler รับการสแกนบัตรและขั้นตอนลงทะเบียนบัตรใหม่
type CardHandler struct {
	eng *engine.Engine
}

func NewCardHandler(eng *engine.Engine) *CardHandler { return &CardHandler{eng: eng} }

type scanPayload struct {
	CardID string `json:"card_id" validate:"required"`
}

// POST /scans สแกนจากคีย์บอร์ด (wedge) หรือกรอกเลขบัตรเอง
func (h *CardHandler) Scan(c echo.Context) error {
	var req scanPayload
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.eng.RegisterScan(c.Request().Context(), req.CardID)
	if err != nil {
		return appError(err)
	}
	if !out.Known {
		// บัตรยังไม่ผูกกับนักเรียน รอให้ผู้ดูแลลงทะเบียน
		return c.JSON(http.StatusAccepted, out)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /cards/pending
func (h *CardHandler) Pending(c echo.Context) error {
	list, err := h.eng.PendingCards(c.Request().Context())
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// DELETE /cards/pending/:id ยกเลิกการลงทะเบียน ไม่มีการเขียนข้อมูล
func (h *CardHandler) Dismiss(c echo.Context) error {
	if err := h.eng.DismissPending(c.Request().Context(), c.Param("id")); err != nil {
		return appError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /cards/enroll
func (h *CardHandler) Enroll(c echo.Context) error {
	var req engine.EnrollRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.eng.Enroll(c.Request().Context(), req)
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /cards
func (h *CardHandler) List(c echo.Context) error {
	list, err := h.eng.Bindings(c.Request().Context())
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list, "total": len(list)})
}
