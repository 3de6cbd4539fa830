package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims ที่เราคาดหวัง (ตามที่เซ็นใน handlers.AuthHandler.Login)
type Claims struct {
	Sub  uint   `json:"sub"`
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// ดึง token จาก Authorization header หรือ ?token= (websocket ส่ง header เองไม่ได้)
func extractBearer(c echo.Context) (string, error) {
	h := c.Request().Header.Get("Authorization")
	if h == "" {
		if tok := c.QueryParam("token"); tok != "" && c.IsWebSocket() {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "MISSING_AUTH_HEADER"})
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_AUTH_HEADER"})
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireAuth ตรวจ JWT (HS256) และแนบ claims ไว้ใน context
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, err := extractBearer(c)
			if err != nil {
				return err
			}
			token, err := jwt.ParseWithClaims(tok, &Claims{}, func(t *jwt.Token) (any, error) {
				// ป้องกัน alg โดนสลับ
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN_METHOD"})
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_TOKEN"})
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_CLAIMS"})
			}
			if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "TOKEN_EXPIRED"})
			}
			setActor(c, claims.Sub, claims.Role, claims.Name)
			return next(c)
		}
	}
}

func setActor(c echo.Context, id uint, role, name string) {
	c.Set("user_id", id)
	c.Set("role", role)
	c.Set("name", name)
}

// Actor คืนชื่อผู้ดูแลที่ล็อกอินอยู่ (ว่างถ้าไม่มี)
func Actor(c echo.Context) string {
	name, _ := c.Get("name").(string)
	return name
}
