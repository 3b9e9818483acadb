package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spielebasar/internal/client/teamsl"
	cronrunner "spielebasar/internal/cron"
	"spielebasar/internal/db"
	"spielebasar/internal/handler"
	"spielebasar/internal/opslog"
	"spielebasar/internal/service"

	_ "spielebasar/docs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spielebasar",
		Short:         "Mirror open referee games from TeamSL into the marketplace database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newSyncCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled sync jobs and the ops HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger

	baseCtx := ctx
	if a.opsLog != nil {
		baseCtx = opslog.WithClient(ctx, a.opsLog)
	}
	a.scheduler.BaseContext = baseCtx

	loc, err := time.LoadLocation(a.cfg.Cron.Location)
	if err != nil {
		return fmt.Errorf("cron.location: %w", err)
	}
	cronRunner := cronrunner.New(log, baseCtx, loc)
	if a.cfg.Cron.Enabled {
		if err := a.scheduler.Schedule(cronRunner, a.cfg.Cron.Specs()); err != nil {
			return err
		}
	} else {
		log.Info("cron disabled, sync runs only on demand")
	}
	cronRunner.Start()

	engine := handler.NewRouter(handler.RouterDeps{
		Config:    a.cfg,
		DB:        a.db.Gorm,
		Repo:      a.store,
		Scheduler: a.scheduler,
		Settings:  a.settings,
		OpsLog:    a.opsLog,
		Logger:    log,
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", a.cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	// Running cycles see the cancelled base context and wind down.
	cronRunner.Stop()
	a.scheduler.Wait()
	return serveErr
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sync <w1|w3|all>",
		Short:     "Run one sync cycle for a horizon and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"w1", "w3", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			horizon, err := teamsl.ParseHorizon(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, runErr := a.scheduler.Run(ctx, horizon, service.TriggerCLI)
			if report.Result != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			return runErr
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()
			if err := db.AutoMigrate(a.db); err != nil {
				return fmt.Errorf("auto-migrate: %w", err)
			}
			a.logger.Info("schema up to date", zap.String("driver", a.db.Driver))
			return nil
		},
	}
}
