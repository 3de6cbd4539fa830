package handlers

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// RoleOperator is the only role; it guards roster moves, enrollment,
// the reader and export.
const RoleOperator = "operator"

/* ====================== Config & Helpers ====================== */

type AuthHandler struct {
	JWTSecret    string
	PasswordHash string // bcrypt ของรหัสผู้ดูแลสถานี
	TTL          time.Duration
}

func NewAuthHandler(secret, passwordHash string, ttl time.Duration) *AuthHandler {
	if secret == "" {
		secret = "dev-secret" // กันล่มในเครื่อง dev (โปรดตั้งใน .env จริง)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthHandler{JWTSecret: secret, PasswordHash: passwordHash, TTL: ttl}
}

func (h *AuthHandler) signJWT(sub uint, role, name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"name": name,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tk.SignedString([]byte(h.JWTSecret))
}

/* ====================== DTOs ====================== */

type OperatorLoginReq struct {
	Name     string `json:"name"` // ชื่อผู้ดูแลไว้แสดงผลและบันทึก
	Password string `json:"password" validate:"required"`
}

/* ====================== Handlers ====================== */

// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req OperatorLoginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if h.PasswordHash == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, map[string]any{"error": "AUTH_NOT_CONFIGURED"})
	}
	if bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_CREDENTIALS"})
	}

	name := req.Name
	if name == "" {
		name = RoleOperator
	}
	token, err := h.signJWT(1, RoleOperator, name, h.TTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]any{"error": "TOKEN_GEN_FAILED"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.TTL.Seconds()),
		"user":       map[string]any{"role": RoleOperator, "name": name},
	})
}
