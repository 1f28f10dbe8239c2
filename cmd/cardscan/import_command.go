package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/app"
	"github.com/joseph-ayodele/cardscan/internal/auth"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	repo "github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/server"
)

type importOptions struct {
	userEmail     string
	inmem         bool
	includeHidden bool
	out           string
}

func (o *importOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.userEmail, "user-email", "", "account that owns the imported contacts (required)")
	cmd.Flags().BoolVar(&o.inmem, "inmem", false, "use an in-memory SQLite database; the user is created on the fly")
	cmd.Flags().BoolVar(&o.includeHidden, "include-hidden", false, "also read dot files and dot directories")
	_ = cmd.MarkFlagRequired("user-email")
}

// openApp wires the services for an import run and resolves the owning user.
func openApp(ctx context.Context, cc *commandContext, o *importOptions) (*app.App, *entity.User, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if o.inmem {
		cfg.Database.Driver = repo.DriverSQLite
		cfg.Database.DSN = ""
		cfg.Database.ConnectRetry = 0
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver != repo.DriverSQLite {
		return nil, nil, errors.New("DB_URL is required (or pass --inmem)")
	}

	a, err := app.New(ctx, cfg, cc.logger())
	if err != nil {
		return nil, nil, err
	}
	email := strings.TrimSpace(o.userEmail)
	user, err := a.Users.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) && o.inmem {
		var hash string
		if hash, err = auth.HashPassword(email); err == nil {
			user, err = a.Users.Create(ctx, "Local Import", email, hash)
		}
	}
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("user %q: %w", email, err)
	}
	return a, user, nil
}

func newImportCommand(cc *commandContext) *cobra.Command {
	var o importOptions
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Extract every card image under a directory into contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, user, err := openApp(ctx, cc, &o)
			if err != nil {
				return err
			}
			defer a.Close()

			queue := a.NewImportQueue()
			ing := ingest.NewFSIngestor(queue, a.Config.Server.UploadMaxBytes, a.Logger)
			results, stats, err := ing.IngestDirectory(ctx, user.ID, args[0], !o.includeHidden)
			// jobs already queued still run when the walk stops early
			queue.Shutdown(ctx)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, r := range results {
				if r.Err != "" {
					rows = append(rows, []string{r.SourcePath, "failed", r.Err})
				}
			}
			qs := queue.Stats()
			rows = append(rows,
				[]string{"matched", strconv.Itoa(int(stats.Matched)), ""},
				[]string{"queued", strconv.Itoa(int(stats.Queued)), ""},
				[]string{"same file skipped", strconv.Itoa(int(stats.Deduplicated)), ""},
				[]string{"imported", strconv.FormatInt(qs.Succeeded, 10), ""},
				[]string{"extraction failed", strconv.FormatInt(qs.Failed, 10), ""},
			)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Result", "Detail"}, rows))

			if o.out == "" {
				return nil
			}
			f, err := a.ExportService.XLSX(ctx, export.Request{UserID: user.ID, Filter: constants.ExportAll})
			if err != nil {
				return err
			}
			if err := os.WriteFile(o.out, f.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d contact(s) to %s\n", f.Count, o.out)
			return nil
		},
	}
	o.bind(cmd)
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write all of the user's contacts to this XLSX file afterwards")
	return cmd
}

func newWatchCommand(cc *commandContext) *cobra.Command {
	var (
		o        importOptions
		initial  bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import card images as they appear under a directory until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, user, err := openApp(ctx, cc, &o)
			if err != nil {
				return err
			}
			defer a.Close()

			queue := a.NewImportQueue()
			ing := ingest.NewFSIngestor(queue, a.Config.Server.UploadMaxBytes, a.Logger)
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", args[0])
			err = ing.Watch(ctx, user.ID, ingest.WatchConfig{
				Roots:       []string{args[0]},
				InitialScan: initial,
				SkipHidden:  !o.includeHidden,
				Debounce:    debounce,
			})

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
			defer cancel()
			queue.Shutdown(shutdownCtx)
			qs := queue.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, failed %d\n", qs.Succeeded, qs.Failed)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	o.bind(cmd)
	cmd.Flags().BoolVar(&initial, "initial-scan", false, "import images already in the directory first")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "wait this long after the last write before importing")
	return cmd
}

func newDBHealthCommand(cc *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Connect to the configured database, apply the schema and ping it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errors.New("DB_URL is required")
			}
			logger := cc.logger()
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			defer db.Close(logger)
			if err := server.PingDB(cmd.Context(), db, logger, timeout); err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%s)\n", db.Dialect)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "ping timeout")
	return cmd
}
