package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/patiponrmutl/ScanAttendance/archive"
	"github.com/patiponrmutl/ScanAttendance/config"
	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/middlewares"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/reader"
	"github.com/patiponrmutl/ScanAttendance/storage/jsonfile"
)

const secret = "test-secret"

func newEcho(t *testing.T, passwordHash string) *echo.Echo {
	t.Helper()
	st, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	hub := notify.NewHub()
	eng := engine.New(st, engine.WithHub(hub), engine.WithDefaultCatalog(models.Catalog{"س1": {"أ"}}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cfg := &config.Config{
		RecordsDir:           t.TempDir(),
		JWTSecret:            secret,
		OperatorPasswordHash: passwordHash,
		TokenTTL:             time.Hour,
	}
	session := reader.NewSession(eng.SubmitScan)
	e := echo.New()
	e.Use(middlewares.RequestID())
	Register(e, Deps{
		Base:     ctx,
		Config:   cfg,
		Engine:   eng,
		Session:  session,
		Exporter: archive.NewExporter(eng, archive.NewXLSXRenderer(cfg.RecordsDir)),
		Hub:      hub,
	})
	return e
}

func call(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	code, _ := body["error"].(string)
	return code
}

func signed(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  1,
		"role": role,
		"name": "tester",
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestOperatorRoutesOpenWithoutPassword(t *testing.T) {
	e := newEcho(t, "")

	rec := call(e, http.MethodGet, "/moves", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = call(e, http.MethodPost, "/auth/login", `{"password":"x"}`, "")
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "AUTH_NOT_CONFIGURED" {
		t.Fatalf("login without hash = %d %s", rec.Code, rec.Body.String())
	}
}

func TestOperatorLoginAndGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	e := newEcho(t, string(hash))

	rec := call(e, http.MethodGet, "/moves", "", "")
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "MISSING_AUTH_HEADER" {
		t.Fatalf("no token = %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodPost, "/auth/login", `{"password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_CREDENTIALS" {
		t.Fatalf("wrong password = %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodPost, "/auth/login", `{"name":"Ali","password":"s3cret"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login body %s: %v", rec.Body.String(), err)
	}

	if rec = call(e, http.MethodGet, "/moves", "", login.Token); rec.Code != http.StatusOK {
		t.Fatalf("with token = %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/moves", "", signed(t, "viewer", time.Now().Add(time.Hour)))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "FORBIDDEN" {
		t.Fatalf("wrong role = %d %s", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/moves", "", signed(t, "operator", time.Now().Add(-time.Hour)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired = %d %s", rec.Code, rec.Body.String())
	}

	// public routes stay public
	if rec = call(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if rec = call(e, http.MethodGet, "/catalog", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("catalog = %d", rec.Code)
	}
	if rec = call(e, http.MethodGet, "/no-such-route", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newEcho(t, "")

	rec := call(e, http.MethodGet, "/health", "", "")
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
