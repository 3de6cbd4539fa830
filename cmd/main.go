package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/patiponrmutl/ScanAttendance/archive"
	"github.com/patiponrmutl/ScanAttendance/config"
	"github.com/patiponrmutl/ScanAttendance/database"
	"github.com/patiponrmutl/ScanAttendance/engine"
	"github.com/patiponrmutl/ScanAttendance/middlewares"
	"github.com/patiponrmutl/ScanAttendance/notify"
	"github.com/patiponrmutl/ScanAttendance/reader"
	"github.com/patiponrmutl/ScanAttendance/routes"
	"github.com/patiponrmutl/ScanAttendance/storage"
	"github.com/patiponrmutl/ScanAttendance/storage/jsonfile"
	"github.com/patiponrmutl/ScanAttendance/storage/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == "json" {
		return jsonfile.Open(cfg.DataDir)
	}
	// ถ้า DB ยังไม่ขึ้น โปรแกรมจะ error ทันที
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db), nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	records, err := filepath.Abs(cfg.RecordsDir)
	if err != nil {
		return err
	}
	cfg.RecordsDir = records

	hub := notify.NewHub()
	eng := engine.New(st,
		engine.WithHub(hub),
		engine.WithDefaultCatalog(cfg.DefaultCatalog()),
	)

	session := reader.NewSession(eng.SubmitScan,
		reader.WithBaudRate(cfg.SerialBaud),
		reader.WithReadTimeout(cfg.SerialReadTimeout),
		reader.WithDetector(func() (string, error) { return reader.AutoDetect(cfg.AdapterKeywords) }),
		reader.WithStateHook(func(s reader.Status) { hub.Publish(notify.ReaderState, s) }),
	)

	xopts := []archive.ExporterOption{archive.WithExportHub(hub)}
	if cfg.ExportStopsReader {
		xopts = append(xopts, archive.WithAfterExport(session.Stop))
	}
	exporter := archive.NewExporter(eng, archive.NewXLSXRenderer(cfg.RecordsDir), xopts...)

	// engine outlives HTTP so in-flight requests finish their jobs
	engCtx, engCancel := context.WithCancel(context.Background())
	defer engCancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(engCtx) })

	rep, err := eng.Reconcile(gctx)
	if err != nil {
		engCancel()
		_ = g.Wait()
		return err
	}
	log.Printf("[reconcile] repaired=%d completed=%d abandoned=%d duplicates=%d stale_bindings=%d",
		len(rep.Repaired), len(rep.Completed), len(rep.Abandoned), len(rep.Duplicates), len(rep.StaleBindings))

	var sched *archive.Scheduler
	if cfg.ArchiveCron != "" {
		if sched, err = archive.NewScheduler(cfg.ArchiveCron, exporter); err != nil {
			engCancel()
			_ = g.Wait()
			return err
		}
		sched.Start()
		log.Printf("[export] scheduled %q", cfg.ArchiveCron)
	}

	if cfg.ReaderAutostart {
		if err := session.Start(cfg.SerialPort); err != nil {
			log.Printf("[reader] autostart: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middlewares.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	routes.Register(e, routes.Deps{
		Base:     gctx,
		Config:   cfg,
		Engine:   eng,
		Session:  session,
		Exporter: exporter,
		Hub:      hub,
	})

	g.Go(func() error {
		log.Printf("server listening at %s", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		err := e.Shutdown(sctx)

		session.Stop()
		if sched != nil {
			sched.Stop()
		}
		engCancel()
		return err
	})

	return g.Wait()
}
