package middlewares

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole("operator") → ผ่านถ้า role ของผู้ใช้ตรงอย่างน้อย 1 ค่า
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string) // set ไว้โดย RequireAuth
			if _, ok := allowed[strings.ToLower(role)]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, map[string]any{"error": "FORBIDDEN"})
			}
			return next(c)
		}
	}
}

// AssumeRole แนบ role ให้ทุกคำขอโดยไม่ตรวจ token
// ใช้เฉพาะเครื่อง dev ที่ยังไม่ได้ตั้งรหัสผู้ดูแล
func AssumeRole(role string) echo.MiddlewareFunc {
	log.Printf("[auth] no operator password configured, %s routes are open", role)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setActor(c, 0, role, "dev")
			return next(c)
		}
	}
}
