package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/metrics"
	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// AwardResult 一次积分变动的结果
type AwardResult struct {
	Success       bool   `json:"success"`
	Reason        string `json:"reason,omitempty"`
	PointsAwarded int64  `json:"points_awarded"`
	TotalPoints   int64  `json:"total_points"`
	Level         int    `json:"level"`
	LevelUp       bool   `json:"level_up"`
	OldLevel      int    `json:"old_level"`
	NewLevel      int    `json:"new_level"`
	CoinsEarned   int64  `json:"coins_earned"`
	Coins         int64  `json:"coins"`
}

// Profile 用户积分档案
type Profile struct {
	User     *model.User         `json:"user"`
	Rank     int64               `json:"rank"`
	Progress model.LevelProgress `json:"progress"`
}

// PointsService 积分与等级账本；所有变更都在锁定用户行的事务中完成
type PointsService struct {
	users    repository.UserRepository
	cfg      config.PointsConfig
	gate     analyzer.Gate
	cache    *cache.StatsCache
	inv      Invalidator
	boardTTL time.Duration
}

func NewPointsService(users repository.UserRepository, cfg config.PointsConfig, c *cache.StatsCache, boardTTL time.Duration) *PointsService {
	return &PointsService{
		users:    users,
		cfg:      cfg,
		gate:     analyzer.NewGate(cfg.Cooldown),
		cache:    c,
		inv:      invalidatorOrNop(c),
		boardTTL: boardTTL,
	}
}

// LevelFor 等级 = min(最高等级, 积分/每级积分 + 1)
func LevelFor(points int64, cfg config.PointsConfig) int {
	if points < 0 {
		points = 0
	}
	lvl := points/cfg.PerLevel + 1
	if lvl > int64(cfg.MaxLevel) {
		return cfg.MaxLevel
	}
	return int(lvl)
}

func (s *PointsService) apply(u *model.User, delta int64) (oldLevel, newLevel int, coins int64) {
	oldLevel = u.Level
	u.TotalPoints += delta
	newLevel = LevelFor(u.TotalPoints, s.cfg)
	u.Level = newLevel
	if newLevel > oldLevel {
		coins = s.cfg.LevelUpBonusCoins * int64(newLevel-oldLevel)
		u.Coins += coins
	}
	return oldLevel, newLevel, coins
}

func resultFrom(u *model.User, points int64, oldLevel, newLevel int, coins int64) *AwardResult {
	return &AwardResult{
		Success:       true,
		PointsAwarded: points,
		TotalPoints:   u.TotalPoints,
		Level:         u.Level,
		LevelUp:       newLevel > oldLevel,
		OldLevel:      oldLevel,
		NewLevel:      newLevel,
		CoinsEarned:   coins,
		Coins:         u.Coins,
	}
}

// Award 直接加分，不经过闸门
func (s *PointsService) Award(ctx context.Context, userID string, points int64) (*AwardResult, error) {
	if err := validID("user_id", userID); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, invalid("points", "must be positive")
	}
	var res *AwardResult
	u, err := s.users.Mutate(ctx, userID, func(u *model.User) error {
		oldL, newL, coins := s.apply(u, points)
		res = resultFrom(u, points, oldL, newL, coins)
		return nil
	})
	if err != nil {
		return nil, s.mutateErr("award", err)
	}
	s.afterChange(ctx, u.DiscordID, res)
	return res, nil
}

// AwardMessage 按消息画像计算积分并入账。
// 冷却在行锁内再次检查，同一用户并发的两条消息只有一条能得分。
func (s *PointsService) AwardMessage(ctx context.Context, userID, guildID string, p analyzer.Profile, now time.Time) (*AwardResult, error) {
	if err := validID("user_id", userID); err != nil {
		return nil, err
	}
	if err := validID("guild_id", guildID); err != nil {
		return nil, err
	}
	points := analyzer.AwardPoints(s.cfg.PerMessage, p)
	var res *AwardResult
	u, err := s.users.Mutate(ctx, userID, func(u *model.User) error {
		if s.gate.InCooldown(u.LastAwardAt, now) {
			res = &AwardResult{Reason: analyzer.ReasonCooldown, TotalPoints: u.TotalPoints, Level: u.Level, OldLevel: u.Level, NewLevel: u.Level, Coins: u.Coins}
			return nil
		}
		oldL, newL, coins := s.apply(u, points)
		at := now
		u.LastAwardAt = &at
		res = resultFrom(u, points, oldL, newL, coins)
		return nil
	})
	if err != nil {
		return nil, s.mutateErr("award_message", err)
	}
	if res.Success {
		s.afterChange(ctx, u.DiscordID, res)
		logger.Debug("points awarded",
			zap.String("user", userID),
			zap.String("guild", guildID),
			zap.Int64("points", res.PointsAwarded),
			zap.Int("level", res.NewLevel))
	}
	return res, nil
}

// RecordActivity 每条处理过的消息都计数，与是否得分无关
func (s *PointsService) RecordActivity(ctx context.Context, userID string, at time.Time) error {
	if err := validID("user_id", userID); err != nil {
		return err
	}
	if err := s.users.IncrementMessages(ctx, userID, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return storageErr("record_activity", err)
	}
	return nil
}

// Spend 余额不足时拒绝，不会出现负余额
func (s *PointsService) Spend(ctx context.Context, userID string, amount int64) (*model.User, error) {
	if err := validID("user_id", userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	ok, err := s.users.SpendCoins(ctx, userID, amount)
	if err != nil {
		return nil, storageErr("spend", err)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("spend", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: balance %d, need %d", ErrInsufficientCoins, u.Coins, amount)
	}
	s.inv.UserChanged(ctx, userID)
	return u, nil
}

// AdminAdjust 管理员调整积分，绕过闸门；扣分不能使积分为负
func (s *PointsService) AdminAdjust(ctx context.Context, userID string, delta int64, reason string) (*AwardResult, error) {
	if err := validID("user_id", userID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, invalid("delta", "must not be zero")
	}
	var res *AwardResult
	u, err := s.users.Mutate(ctx, userID, func(u *model.User) error {
		if u.TotalPoints+delta < 0 {
			return fmt.Errorf("%w: have %d, remove %d", ErrInsufficientPoints, u.TotalPoints, -delta)
		}
		oldL, newL, coins := s.apply(u, delta)
		res = resultFrom(u, delta, oldL, newL, coins)
		return nil
	})
	if err != nil {
		return nil, s.mutateErr("admin_adjust", err)
	}
	s.afterChange(ctx, u.DiscordID, res)
	logger.Info("points adjusted by admin",
		zap.String("user", userID),
		zap.Int64("delta", delta),
		zap.String("reason", reason),
		zap.Int64("total", res.TotalPoints))
	return res, nil
}

// ResetUser 积分清零、等级回到 1，金币保留
func (s *PointsService) ResetUser(ctx context.Context, userID string) (*model.User, error) {
	if err := validID("user_id", userID); err != nil {
		return nil, err
	}
	u, err := s.users.Mutate(ctx, userID, func(u *model.User) error {
		u.TotalPoints = 0
		u.Level = 1
		return nil
	})
	if err != nil {
		return nil, s.mutateErr("reset_user", err)
	}
	s.inv.UserChanged(ctx, userID)
	return u, nil
}

// Leaderboard 全局排行榜，按积分、等级或消息数
func (s *PointsService) Leaderboard(ctx context.Context, orderBy string, limit int) ([]*model.User, error) {
	switch orderBy {
	case repository.OrderByPoints, repository.OrderByLevel, repository.OrderByMessages:
	case "":
		orderBy = repository.OrderByPoints
	default:
		return nil, invalid("type", "must be points, level or messages")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := fmt.Sprintf("leaderboard:%s:%d", orderBy, limit)
	users, err := cache.Fetch(ctx, s.cache, cache.GlobalScope(), key, s.boardTTL, func(ctx context.Context) ([]*model.User, error) {
		return s.users.Leaderboard(ctx, orderBy, limit)
	})
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	return users, nil
}

// Profile 用户档案、排名与升级进度
func (s *PointsService) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("profile", err)
	}
	rank, err := s.users.Rank(ctx, userID)
	if err != nil {
		return nil, storageErr("profile", err)
	}
	return &Profile{User: u, Rank: rank, Progress: u.Progress(s.cfg.PerLevel)}, nil
}

func (s *PointsService) afterChange(ctx context.Context, userID string, res *AwardResult) {
	s.inv.UserChanged(ctx, userID)
	if res.PointsAwarded > 0 {
		metrics.PointsAwarded.Add(float64(res.PointsAwarded))
	}
	if res.LevelUp {
		metrics.LevelUps.Add(float64(res.NewLevel - res.OldLevel))
	}
}

func (s *PointsService) mutateErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrInsufficientPoints), errors.Is(err, ErrInvalidInput):
		return err
	default:
		return storageErr(op, err)
	}
}
