package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/internal/repository"
)

// DetailedStats 用户在某服务器的综合统计
type DetailedStats struct {
	User             *model.User             `json:"user"`
	Activity         repository.MessageStats `json:"activity"`
	InteractionStyle string                  `json:"interaction_style"`
	ActivityLevel    string                  `json:"activity_level"`
	ContentDiversity float64                 `json:"content_diversity"`
	EngagementScore  int                     `json:"engagement_score"`
	Progress         model.LevelProgress     `json:"progress"`
	LastUpdated      time.Time               `json:"last_updated"`
}

// GuildOverview 服务器活跃概况
type GuildOverview struct {
	Summary *repository.GuildSummary  `json:"summary"`
	Top     []repository.UserActivity `json:"top"`
	Hourly  [24]int64                 `json:"hourly"`
}

// UserStatsService 由消息记录重算用户聚合统计
type UserStatsService struct {
	users          repository.UserRepository
	messages       repository.MessageRepository
	stats          repository.UserStatsRepository
	cache          *cache.StatsCache
	inv            Invalidator
	ttl            time.Duration
	pointsPerLevel int64
	now            func() time.Time
}

func NewUserStatsService(users repository.UserRepository, messages repository.MessageRepository, stats repository.UserStatsRepository, c *cache.StatsCache, ttl time.Duration, pointsPerLevel int64) *UserStatsService {
	return &UserStatsService{
		users:          users,
		messages:       messages,
		stats:          stats,
		cache:          c,
		inv:            invalidatorOrNop(c),
		ttl:            ttl,
		pointsPerLevel: pointsPerLevel,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func countsOf(ms *repository.MessageStats) analyzer.TypeCounts {
	return analyzer.TypeCounts{Text: ms.TextMessages, Emoji: ms.EmojiMessages, Link: ms.LinkMessages, Image: ms.ImageMessages}
}

// Refresh 重算并覆盖 user_stats 中的一行
func (s *UserStatsService) Refresh(ctx context.Context, userID, guildID string) (*model.UserStats, error) {
	ms, err := s.messages.Stats(ctx, userID, guildID)
	if err != nil {
		return nil, storageErr("refresh_stats", err)
	}
	row := &model.UserStats{
		UserID:             userID,
		GuildID:            guildID,
		TotalTextMessages:  ms.TextMessages,
		TotalEmojiMessages: ms.EmojiMessages,
		TotalLinkMessages:  ms.LinkMessages,
		TotalImageMessages: ms.ImageMessages,
		AvgTextLength:      ms.AvgTextLength,
		InteractionStyle:   string(analyzer.ClassifyStyle(countsOf(ms), ms.AvgTextLength)),
		LastCalculated:     s.now(),
	}
	if err := s.stats.Upsert(ctx, row); err != nil {
		return nil, storageErr("refresh_stats", err)
	}
	s.inv.UserChanged(ctx, userID)
	return row, nil
}

// RefreshGuild 重算服务器内所有发过言的用户
func (s *UserStatsService) RefreshGuild(ctx context.Context, guildID string) (int, error) {
	ids, err := s.messages.DistinctUsers(ctx, guildID)
	if err != nil {
		return 0, storageErr("refresh_guild", err)
	}
	for i, id := range ids {
		if _, err := s.Refresh(ctx, id, guildID); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// Get 读取已存储的聚合行
func (s *UserStatsService) Get(ctx context.Context, userID, guildID string) (*model.UserStats, error) {
	row, err := s.stats.Get(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr("get_stats", err)
	}
	return row, nil
}

// Detailed 综合统计，读穿透缓存
func (s *UserStatsService) Detailed(ctx context.Context, userID, guildID string) (*DetailedStats, error) {
	key := fmt.Sprintf("stats:detailed:%s", guildID)
	out, err := cache.Fetch(ctx, s.cache, cache.UserScope(userID), key, s.ttl, func(ctx context.Context) (*DetailedStats, error) {
		return s.loadDetailed(ctx, userID, guildID)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, storageErr("detailed_stats", err)
	}
	return out, nil
}

func (s *UserStatsService) loadDetailed(ctx context.Context, userID, guildID string) (*DetailedStats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	ms, err := s.messages.Stats(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}

	counts := countsOf(ms)
	out := &DetailedStats{
		User:             u,
		Activity:         *ms,
		InteractionStyle: string(analyzer.ClassifyStyle(counts, ms.AvgTextLength)),
		ActivityLevel:    analyzer.ActivityLevel(u.TotalMessages),
		ContentDiversity: analyzer.ContentDiversity(counts),
		Progress:         u.Progress(s.pointsPerLevel),
		LastUpdated:      s.now(),
	}
	if guildID != "" {
		stored, err := s.stats.Get(ctx, userID, guildID)
		switch {
		case err == nil:
			out.InteractionStyle = stored.InteractionStyle
			out.LastUpdated = stored.LastCalculated
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}
	out.EngagementScore = EngagementScore(u, ms.AvgTextLength, out.ContentDiversity, s.now())
	return out, nil
}

// EngagementScore 0 到 100 的参与度评分
func EngagementScore(u *model.User, avgTextLength, diversity float64, now time.Time) int {
	score := float64(u.Level) * 2

	days := math.Ceil(now.Sub(u.CreatedAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	score += math.Min(float64(u.TotalMessages)/days*5, 50)

	switch {
	case avgTextLength > 30:
		score += 20
	case avgTextLength > 15:
		score += 10
	case avgTextLength > 5:
		score += 5
	}
	score += diversity * 0.3

	return int(math.Min(100, math.Round(score)))
}

// GuildOverview 最近 days 天的服务器活跃情况
func (s *UserStatsService) GuildOverview(ctx context.Context, guildID string, days int) (*GuildOverview, error) {
	if days <= 0 || days > 365 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -days)
	key := fmt.Sprintf("overview:%d", days)
	out, err := cache.Fetch(ctx, s.cache, cache.GuildScope(guildID), key, s.ttl, func(ctx context.Context) (*GuildOverview, error) {
		summary, err := s.messages.GuildSummary(ctx, guildID, since)
		if err != nil {
			return nil, err
		}
		top, err := s.messages.TopActive(ctx, guildID, since, 10)
		if err != nil {
			return nil, err
		}
		hourly, err := s.messages.HourlyActivity(ctx, guildID, since)
		if err != nil {
			return nil, err
		}
		return &GuildOverview{Summary: summary, Top: top, Hourly: hourly}, nil
	})
	if err != nil {
		return nil, storageErr("guild_overview", err)
	}
	return out, nil
}
