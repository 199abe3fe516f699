package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/calderhq/rosterd/internal/activity"
	"github.com/calderhq/rosterd/internal/api"
	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/config"
	"github.com/calderhq/rosterd/internal/metrics"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/profile"
	"github.com/calderhq/rosterd/internal/schedule"
	"github.com/calderhq/rosterd/internal/team"
	"github.com/calderhq/rosterd/internal/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Rosterd API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	profiles := profile.NewStore(pool)
	teams := team.NewStore(pool)
	sched := schedule.NewStore(pool)
	tokens := auth.NewStore(pool)
	activityLog := activity.NewLogger(pool)

	codec := token.NewCodec(cfg.Auth.Secret)
	resolver := auth.NewResolver(codec, tokens, teams)

	mailer := notify.NewMailer(notify.Config{
		Enabled:  cfg.Email.Enabled,
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		Sender:   cfg.Email.Sender,
	})

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	handler := api.NewHandler(api.Deps{
		Config:   cfg,
		Resolver: resolver,
		Profiles: profiles,
		Teams:    teams,
		Schedule: sched,
		Activity: activityLog,
		Mailer:   mailer,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
