// Package app assembles the repositories, extraction backends and services
// shared by the cardscand server and the cardscan CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/cardscan/internal/async"
	"github.com/joseph-ayodele/cardscan/internal/auth"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/llm/gemini"
	"github.com/joseph-ayodele/cardscan/internal/ocr"
	repo "github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/server"
)

type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	DB         *repo.DB
	Users      repo.UserRepository
	Contacts   repo.ContactRepository
	Activities repo.ActivityRepository

	Extractor      *extract.Extractor
	AuthService    *auth.Service
	ContactService *contacts.Service
	ExportService  *export.Service
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewExtractor builds the vision/OCR/text chain from cfg. A backend without
// credentials is left out and the chain falls through to the next pass.
func NewExtractor(ctx context.Context, cfg *common.Config, reg prometheus.Registerer, logger *slog.Logger) (*extract.Extractor, error) {
	var (
		backends extract.Backends
		ecfg     = extract.Config{Models: cfg.Extract.Models}
	)

	gc, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.Extract.GeminiAPIKey,
		Temperature: cfg.Extract.Temperature,
		Timeout:     cfg.Extract.Timeout,
	}, logger)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logger.Warn("GEMINI_API_KEY not set, vision and text passes disabled")
	case err != nil:
		return nil, err
	default:
		backends.Vision, backends.Text = gc, gc
		ecfg.VisionEnabled, ecfg.TextEnabled = true, true
	}

	engine, err := ocr.New(ocr.Config{
		Engine:        cfg.OCR.Engine,
		SpaceAPIKey:   cfg.OCR.SpaceAPIKey,
		SpaceURL:      cfg.OCR.SpaceURL,
		Timeout:       cfg.OCR.Timeout,
		Tesseract:     cfg.OCR.Tesseract,
		TessdataDir:   cfg.OCR.TessdataDir,
		HeicConverter: cfg.OCR.HeicConverter,
	}, logger)
	if err != nil {
		return nil, err
	}
	if engine != nil {
		backends.OCR = extract.NewOCRAdapter(engine, logger)
		ecfg.OCREnabled = true
	}

	logger.Info("extractor configured",
		"vision", ecfg.VisionEnabled,
		"text", ecfg.TextEnabled,
		"ocr", cfg.OCR.Engine,
		"models", strings.Join(ecfg.Models, ","),
	)
	return extract.New(ecfg, backends, logger,
		extract.WithPreparer(ocr.NewHEICConverter(cfg.OCR.HeicConverter, nil, logger)),
		extract.WithMetrics(extract.NewMetrics(reg)),
	), nil
}

// New connects to the database and wires every service. Close releases it.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	ext, err := NewExtractor(ctx, cfg, reg, logger)
	if err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("configure extractor: %w", err)
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		DB:         db,
		Users:      repo.NewUserRepository(db, logger),
		Contacts:   repo.NewContactRepository(db, logger),
		Activities: repo.NewActivityRepository(db, logger),
		Extractor:  ext,
	}
	a.AuthService = auth.NewService(a.Users, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), logger)
	a.ContactService = contacts.NewService(a.Contacts, a.Activities, ext, logger)
	a.ExportService = export.NewService(a.Contacts, a.Activities, logger)
	return a, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close(a.Logger)
	}
}

// ImportHandler runs the upload flow for a queued card. Duplicates are
// logged and counted as handled.
func ImportHandler(svc *contacts.Service, logger *slog.Logger) async.Handler {
	return async.HandlerFunc(func(ctx context.Context, job async.Job) error {
		res, err := svc.Upload(ctx, contacts.UploadRequest{UserID: job.UserID, FrontPath: job.Path, BackPath: job.BackPath})
		var dup *contacts.DuplicateError
		switch {
		case errors.As(err, &dup):
			logger.Info("import.skip.duplicate", "path", job.Path, "existing_id", dup.Existing.ID, "trace_id", job.TraceID)
			return nil
		case err != nil:
			return err
		}
		logger.Info("import.ok", "path", job.Path, "contact_id", res.Contact.ID, "trace_id", job.TraceID)
		return nil
	})
}

// NewImportQueue starts a worker queue that feeds cards into the upload flow.
func (a *App) NewImportQueue() *async.WorkerQueue {
	return async.NewWorkerQueue(ImportHandler(a.ContactService, a.Logger), a.Logger,
		async.WithWorkers(a.Config.Import.Workers),
		async.WithQueueSize(a.Config.Import.QueueSize),
		async.WithProcessTimeout(a.Config.Import.ProcessTimeout),
	)
}
