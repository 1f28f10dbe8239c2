package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cardscan/internal/app"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	"github.com/joseph-ayodele/cardscan/internal/server"
)

// new files are often written in several chunks
const debounce = 500 * time.Millisecond

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	var (
		configPath string
		watchDir   string
		watchUser  string
	)
	cmd := &cobra.Command{
		Use:           "cardscand",
		Short:         "Visiting card scanner server (REST, gRPC, metrics)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger, configPath, watchDir, watchUser)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file (default $CARDSCAN_CONFIG)")
	cmd.Flags().StringVar(&watchDir, "watch", "", "directory to watch for new card images")
	cmd.Flags().StringVar(&watchUser, "watch-user-email", "", "account that owns cards picked up by --watch")

	if err := cmd.ExecuteContext(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("cardscand exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, watchDir, watchUser string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if watchDir != "" && strings.TrimSpace(watchUser) == "" {
		return errors.New("--watch requires --watch-user-email")
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	httpSrv := server.NewHTTPServer(server.Deps{
		Auth:     a.AuthService,
		Contacts: a.ContactService,
		Export:   a.ExportService,
		DB:       a.DB,
		Registry: a.Registry,
	}, server.Options{
		UploadMaxBytes:  cfg.Server.UploadMaxBytes,
		UploadDir:       cfg.Server.UploadDir,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	grpcSrv, hs := server.NewGRPCServer(server.NewCardService(a.Extractor, cfg.Server.UploadDir, logger), logger)

	queue := a.NewImportQueue()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx, cfg.Server.HTTPAddr) })
	if cfg.Server.GRPCAddr != "" {
		g.Go(func() error { return server.ServeGRPC(gctx, grpcSrv, hs, cfg.Server.GRPCAddr, logger) })
	}
	if watchDir != "" {
		user, err := a.Users.GetByEmail(ctx, strings.TrimSpace(watchUser))
		if err != nil {
			return fmt.Errorf("watch user %q: %w", watchUser, err)
		}
		ing := ingest.NewFSIngestor(queue, cfg.Server.UploadMaxBytes, logger)
		g.Go(func() error {
			err := ing.Watch(gctx, user.ID, ingest.WatchConfig{Roots: []string{watchDir}, SkipHidden: true, Debounce: debounce})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
		st := queue.Stats()
		logger.Info("import queue stopped", "succeeded", st.Succeeded, "failed", st.Failed)
		return nil
	})

	logger.Info("cardscand started", "http", cfg.Server.HTTPAddr, "grpc", cfg.Server.GRPCAddr, "db_driver", cfg.Database.Driver)
	err = g.Wait()
	logger.Info("cardscand stopped")
	return err
}
