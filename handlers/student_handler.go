package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/models"
)

type StudentHandler struct {
	eng *engine.Engine
}

func NewStudentHandler(eng *engine.Engine) *StudentHandler { return &StudentHandler{eng: eng} }

type studentPayload struct {
	Name       string `json:"name" validate:"required"`
	Stage      string `json:"stage" validate:"required"`
	Department string `json:"department" validate:"required"`
}

func (p *studentPayload) normalize() {
	p.Name = models.NormalizeName(p.Name)
	p.Stage = strings.TrimSpace(p.Stage)
	p.Department = strings.TrimSpace(p.Department)
}

func (p studentPayload) partition() models.Partition {
	return models.Partition{Stage: p.Stage, Department: p.Department}
}

// GET /students?stage=&department=&q=
func (h *StudentHandler) List(c echo.Context) error {
	p, err := partitionQuery(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	var list []models.Student
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		list, err = h.eng.Search(ctx, p, q)
	} else {
		list, err = h.eng.ListStudents(ctx, p)
	}
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// GET /students/all?q= ใช้ตอนเลือกนักเรียนที่มีอยู่แล้วให้บัตรใหม่
func (h *StudentHandler) All(c echo.Context) error {
	list, err := h.eng.AllStudents(c.Request().Context(), strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return appError(err)
	}
	if list == nil {
		list = []models.Student{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// POST /students
func (h *StudentHandler) Create(c echo.Context) error {
	var req studentPayload
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	req.normalize()
	s, err := h.eng.AddStudent(c.Request().Context(), req.partition(), req.Name)
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusCreated, s)
}
