package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/middlewares"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type StudentMoveHandler struct {
	eng *engine.Engine
}

func NewStudentMoveHandler(eng *engine.Engine) *StudentMoveHandler {
	return &StudentMoveHandler{eng: eng}
}

/* -------------------- Payload structs -------------------- */

type movePayload struct {
	FromStage      string   `json:"from_stage" validate:"required"`
	FromDepartment string   `json:"from_department" validate:"required"`
	ToStage        string   `json:"to_stage" validate:"required"`
	ToDepartment   string   `json:"to_department" validate:"required"`
	Names          []string `json:"names" validate:"required,min=1,dive,required"`
}

func (p movePayload) partitions() (from, to models.Partition) {
	from = models.Partition{Stage: strings.TrimSpace(p.FromStage), Department: strings.TrimSpace(p.FromDepartment)}
	to = models.Partition{Stage: strings.TrimSpace(p.ToStage), Department: strings.TrimSpace(p.ToDepartment)}
	return from, to
}

/* -------------------- Handlers -------------------- */

// POST /moves ย้ายนักเรียนหลายคนข้ามสาขา บัตรจะถูกผูกกับสาขาใหม่ด้วย
func (h *StudentMoveHandler) Create(c echo.Context) error {
	var req movePayload
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	from, to := req.partitions()
	out, err := h.eng.MoveStudents(c.Request().Context(), from, to, req.Names)
	if err != nil {
		return appError(err)
	}
	// ไม่มีใครถูกย้าย: แจ้งเหตุผลพร้อมรายงาน
	if err := out.Err(); err != nil {
		code := apperr.CodeOf(err)
		return c.JSON(apperr.HTTPStatus(code), map[string]any{
			"error":   string(code),
			"message": err.Error(),
			"report":  out,
		})
	}
	log.Printf("[moves] %s moved %v from %s to %s", middlewares.Actor(c), out.Moved, from, to)
	return c.JSON(http.StatusOK, out)
}

// GET /moves?limit=50
func (h *StudentMoveHandler) List(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	list, err := h.eng.ListMoves(c.Request().Context(), limit)
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// POST /reconcile เก็บงานย้ายที่ค้าง และรายงานชื่อซ้ำ/บัตรที่ไม่มีเจ้าของ
func (h *StudentMoveHandler) Reconcile(c echo.Context) error {
	rep, err := h.eng.Reconcile(c.Request().Context())
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, rep)
}
