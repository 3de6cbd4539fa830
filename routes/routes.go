package routes

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/archive"
	"github.com/patiponrmutl/ScanAttendance/config"
	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/handlers"
	"github.com/patiponrmutl/ScanAttendance/middlewares"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/reader"
)

// Deps is everything the routes hand to handlers. Base is the process
// context; background work started over HTTP hangs off it.
type Deps struct {
	Base     context.Context
	Config   *config.Config
	Engine   *engine.Engine
	Session  *reader.Session
	Exporter *archive.Exporter
	Hub      *notify.Hub
}

// Register wires all HTTP routes.
func Register(e *echo.Echo, d Deps) {
	cfg := d.Config

	// ===== Handlers (shared singletons) =====
	auth := handlers.NewAuthHandler(cfg.JWTSecret, cfg.OperatorPasswordHash, cfg.TokenTTL)
	health := handlers.NewHealthHandler(d.Engine, d.Session)
	std := handlers.NewStudentHandler(d.Engine)
	att := handlers.NewAttendanceHandler(d.Engine, cfg.RecordsDir)
	card := handlers.NewCardHandler(d.Engine)
	mv := handlers.NewStudentMoveHandler(d.Engine)
	cat := handlers.NewCatalogHandler(d.Engine)
	rd := handlers.NewReaderHandler(d.Session, cfg.AdapterKeywords)
	exp := handlers.NewExportHandler(d.Base, d.Exporter)
	feed := handlers.NewFeedHandler(d.Hub)
	dash := handlers.NewDashboardHandler(d.Engine)

	// ===== Public (station screen) =====
	e.GET("/health", health.Health)
	e.POST("/auth/login", auth.Login)

	e.GET("/catalog", cat.Get)

	e.GET("/students", std.List)
	e.GET("/students/all", std.All)
	e.POST("/students", std.Create)

	e.POST("/attendance", att.Mark)
	e.GET("/attendance/summary", att.Summary)
	e.GET("/absences", att.Absences)
	e.GET("/dashboard/daily", dash.Daily)

	e.POST("/scans", card.Scan)
	e.GET("/cards/pending", card.Pending)

	e.GET("/reader", rd.Status)
	e.GET("/ws", feed.Serve)

	// ===== Operator routes =====
	// แนบ guard ทีละ route
	var guard []echo.MiddlewareFunc
	if cfg.OperatorPasswordHash == "" {
		guard = []echo.MiddlewareFunc{middlewares.AssumeRole(handlers.RoleOperator)}
	} else {
		guard = []echo.MiddlewareFunc{middlewares.RequireAuth(auth.JWTSecret), middlewares.RequireRole(handlers.RoleOperator)}
	}
	op := operator{e: e, guard: guard}

	// ย้ายนักเรียน + ซ่อมงานย้ายที่ค้าง
	op.GET("/moves", mv.List)
	op.POST("/moves", mv.Create)
	op.POST("/reconcile", mv.Reconcile)

	// ลงทะเบียนบัตร
	op.GET("/cards", card.List)
	op.POST("/cards/enroll", card.Enroll)
	op.DELETE("/cards/pending/:id", card.Dismiss)

	// แคตตาล็อกระดับชั้น/สาขา
	op.POST("/catalog/departments", cat.AddDepartment)
	op.DELETE("/catalog/departments", cat.RemoveDepartment)

	// เครื่องอ่านบัตร
	op.GET("/reader/ports", rd.Ports)
	op.POST("/reader/start", rd.Start)
	op.POST("/reader/stop", rd.Stop)

	// ส่งออก Excel แล้วล้างบันทึก
	op.GET("/export", exp.Status)
	op.POST("/export", exp.Start)
}

type operator struct {
	e     *echo.Echo
	guard []echo.MiddlewareFunc
}

func (o operator) GET(path string, h echo.HandlerFunc)    { o.e.GET(path, h, o.guard...) }
func (o operator) POST(path string, h echo.HandlerFunc)   { o.e.POST(path, h, o.guard...) }
func (o operator) DELETE(path string, h echo.HandlerFunc) { o.e.DELETE(path, h, o.guard...) }
