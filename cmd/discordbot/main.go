package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lanternko/Discordbot/internal/api"
	"github.com/Lanternko/Discordbot/internal/api/handler"
	"github.com/Lanternko/Discordbot/internal/bot"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/logger"
	"github.com/Lanternko/Discordbot/pkg/telemetry"
	"github.com/Lanternko/Discordbot/pkg/token"
)

func main() {
	cliApp := &cli.App{
		Name:  "discordbot",
		Usage: "discord activity points and emoji statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file path", EnvVars: []string{"CONFIG_PATH"}},
		},
		Before: func(c *cli.Context) error {
			if p := c.String("config"); p != "" {
				return os.Setenv("CONFIG_PATH", p)
			}
			return nil
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the gateway bot and http api", Action: serve},
			{Name: "migrate", Usage: "create or update tables", Action: migrate},
			{
				Name:   "purge",
				Usage:  "delete messages and emoji counters older than N days",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "days", Usage: "retention days, defaults to retention.days"}},
				Action: purge,
			},
			{
				Name:   "refresh",
				Usage:  "recompute user aggregates for a guild",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "guild", Required: true}},
				Action: refresh,
			},
			{
				Name:   "token",
				Usage:  "issue an admin api token",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "subject", Usage: "admin discord user id", Required: true}},
				Action: issueToken,
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	a, err := bootstrap(c.Context)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.App.Env}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}
	shutdownTracing, err := telemetry.Init(c.Context, cfg.Telemetry)
	if err != nil {
		return err
	}

	refresher := service.NewStatsRefresher(a.userStats, cfg.Storage.RefreshQueue, cfg.Storage.Timeout)
	stopRefresher := refresher.Start(cfg.Storage.RefreshWorkers)
	pipeline := a.pipeline(refresher)

	stops := []func(context.Context) error{stopRefresher, shutdownTracing}
	if cfg.Retention.Enabled {
		stops = append(stops, a.retention.Start())
	}

	eg, ctx := errgroup.WithContext(c.Context)

	if cfg.Discord.Token != "" {
		b, err := bot.New(cfg.Discord, pipeline)
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			return fmt.Errorf("open gateway: %w", err)
		}
		stops = append(stops, func(context.Context) error { return b.Close() })
	} else {
		logger.Warn("discord token empty, gateway ingestion disabled")
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		h := handler.NewHandler(a.points, a.emojiStats, a.userStats, a.admin, a.ping)
		srv = &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      api.NewRouter(cfg, h),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		eg.Go(func() error {
			logger.Info("http server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case s := <-sig:
			logger.Info("shutdown signal", zap.String("signal", s.String()))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		}
		// 先停入口，再停后台任务
		for i := len(stops) - 1; i >= 0; i-- {
			if err := stops[i](shutdownCtx); err != nil {
				logger.Warn("component shutdown", zap.Error(err))
			}
		}
		return nil
	})

	logger.Info("discordbot started",
		zap.String("env", cfg.App.Env),
		zap.String("db", cfg.Database.Driver),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("http", cfg.Server.Enabled))

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("discordbot stopped")
	return nil
}

func migrate(c *cli.Context) error {
	a, err := bootstrap(c.Context)
	if err != nil {
		return err
	}
	defer a.close()
	logger.Info("migration done", zap.String("driver", a.cfg.Database.Driver))
	return nil
}

func purge(c *cli.Context) error {
	a, err := bootstrap(c.Context)
	if err != nil {
		return err
	}
	defer a.close()
	days := c.Int("days")
	if days <= 0 {
		days = a.cfg.Retention.Days
	}
	res, err := a.retention.PurgeOlderThan(c.Context, days)
	if err != nil {
		return err
	}
	fmt.Printf("purged messages=%d emoji_usage=%d\n", res.Messages, res.EmojiUsages)
	return nil
}

func refresh(c *cli.Context) error {
	a, err := bootstrap(c.Context)
	if err != nil {
		return err
	}
	defer a.close()
	n, err := a.userStats.RefreshGuild(c.Context, c.String("guild"))
	if err != nil {
		return err
	}
	fmt.Printf("refreshed %d users\n", n)
	return nil
}

func issueToken(c *cli.Context) error {
	a, err := bootstrap(c.Context)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is not set")
	}
	subject := c.String("subject")
	if !a.cfg.Admin.IsAdmin(subject) {
		logger.Warn("subject is not in admin.user_ids, token will be rejected", zap.String("subject", subject))
	}
	raw, err := token.Generate([]byte(a.cfg.Admin.JWTSecret), subject, token.TypeAdmin, a.cfg.Admin.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(raw)
	return nil
}
