package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/database"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// app 进程内共享的组件
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
	cache *cache.StatsCache
	inv   service.Invalidator

	users    repository.UserRepository
	messages repository.MessageRepository
	emojis   repository.EmojiUsageRepository
	stats    repository.UserStatsRepository

	points     *service.PointsService
	emojiStats *service.EmojiStatsService
	userStats  *service.UserStatsService
	admin      *service.AdminService
	retention  *service.RetentionWorker
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.LogFormat); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{cfg: cfg, db: db}
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// 缓存不可用时直接读库
			logger.Warn("redis unavailable, stats cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = a.redis.Close()
			a.redis = nil
		} else {
			a.cache = cache.NewStatsCache(a.redis, cfg.App.Name)
			a.inv = a.cache
		}
	}

	a.users = repository.NewUserRepository(db)
	a.messages = repository.NewMessageRepository(db)
	a.emojis = repository.NewEmojiUsageRepository(db)
	a.stats = repository.NewUserStatsRepository(db)

	a.points = service.NewPointsService(a.users, cfg.Points, a.cache, cfg.Cache.BoardTTL)
	a.emojiStats = service.NewEmojiStatsService(a.emojis, a.cache, cfg.Cache.EmojiTTL)
	a.userStats = service.NewUserStatsService(a.users, a.messages, a.stats, a.cache, cfg.Cache.UserStatsTTL, cfg.Points.PerLevel)
	a.admin = service.NewAdminService(db, cfg.Admin, a.inv)
	a.retention = service.NewRetentionWorker(a.messages, a.emojis, a.inv, cfg.Retention.Days, cfg.Retention.Interval)
	return a, nil
}

func (a *app) pipeline(refresher service.Refresher) *service.MessagePipeline {
	return service.NewMessagePipeline(service.PipelineDeps{
		Users:       a.users,
		Messages:    a.messages,
		Points:      a.points,
		Emojis:      a.emojiStats,
		Dedup:       service.NewDedupWindow(a.cfg.Dedup.Window),
		Refresher:   refresher,
		Invalidator: a.inv,
		Breaker:     service.NewStorageBreaker("storage", a.cfg.Storage.BreakerFailures, a.cfg.Storage.BreakerCooldown),
	}, a.cfg.Features, a.cfg.Points, a.cfg.Storage.Timeout)
}

func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Sync()
}
