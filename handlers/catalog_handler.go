package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/engine"
)

type CatalogHandler struct {
	eng *engine.Engine
}

func NewCatalogHandler(eng *engine.Engine) *CatalogHandler { return &CatalogHandler{eng: eng} }

type departmentPayload struct {
	Stage      string `json:"stage" validate:"required"`
	Department string `json:"department" validate:"required"`
}

// GET /catalog
func (h *CatalogHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	cat, err := h.eng.Catalog(ctx)
	if err != nil {
		return appError(err)
	}
	parts, err := h.eng.Partitions(ctx)
	if err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"stages": cat, "partitions": parts})
}

// POST /catalog/departments
func (h *CatalogHandler) AddDepartment(c echo.Context) error {
	var req departmentPayload
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	stage, dept := strings.TrimSpace(req.Stage), strings.TrimSpace(req.Department)
	if err := h.eng.AddDepartment(c.Request().Context(), stage, dept); err != nil {
		return appError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"stage": stage, "department": dept})
}

// DELETE /catalog/departments?stage=&department=
// ลบเฉพาะรายการในแคตตาล็อก ไม่แตะข้อมูลรายชื่อหรือการเข้าเรียน
func (h *CatalogHandler) RemoveDepartment(c echo.Context) error {
	p, err := partitionQuery(c)
	if err != nil {
		return err
	}
	if err := h.eng.RemoveDepartment(c.Request().Context(), p.Stage, p.Department); err != nil {
		return appError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
