package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
)

var validate = newValidator()

// newValidator รายงานชื่อ field ตาม json tag ให้ตรงกับที่ FE ส่งมา
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// แปลง string -> int; ถ้าแปลงไม่ได้ให้คืนค่าเริ่มต้น
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// appError แปลง error ของ engine เป็น HTTP error ตาม code
func appError(err error) error {
	code := apperr.CodeOf(err)
	body := map[string]any{"error": string(code), "message": err.Error()}
	if code == apperr.CodeUnknown {
		body["error"] = "INTERNAL_ERROR"
	}
	return echo.NewHTTPError(apperr.HTTPStatus(code), body)
}

// bindAndValidate อ่าน body แล้วตรวจ tag `validate`
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": fields})
	}
	return nil
}

// partitionQuery อ่าน stage/department จาก query string
func partitionQuery(c echo.Context) (models.Partition, error) {
	p := models.Partition{
		Stage:      strings.TrimSpace(c.QueryParam("stage")),
		Department: strings.TrimSpace(c.QueryParam("department")),
	}
	if !p.Valid() {
		fields := map[string]string{}
		if p.Stage == "" {
			fields["stage"] = "required"
		}
		if p.Department == "" {
			fields["department"] = "required"
		}
		return p, echo.NewHTTPError(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": fields})
	}
	return p, nil
}
