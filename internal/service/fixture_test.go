package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/pkg/database"
)

const (
	userA    = "100000000000000001"
	userB    = "100000000000000002"
	guild1   = "200000000000000001"
	guild2   = "200000000000000002"
	channel1 = "300000000000000001"
	adminID  = "900000000000000001"
)

var t0 = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	users     repository.UserRepository
	messages  repository.MessageRepository
	emojis    repository.EmojiUsageRepository
	stats     repository.UserStatsRepository
	cache     *cache.StatsCache
	points    *PointsService
	emojiSvc  *EmojiStatsService
	userStats *UserStatsService
	cfg       config.PointsConfig
}

func testPointsConfig() config.PointsConfig {
	return config.PointsConfig{
		PerMessage:        10,
		Cooldown:          30 * time.Second,
		PerLevel:          100,
		MaxLevel:          100,
		LevelUpBonusCoins: 25,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewStatsCache(client, "test")

	f := &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		messages: repository.NewMessageRepository(db),
		emojis:   repository.NewEmojiUsageRepository(db),
		stats:    repository.NewUserStatsRepository(db),
		cache:    c,
		cfg:      testPointsConfig(),
	}
	f.points = NewPointsService(f.users, f.cfg, c, time.Minute)
	f.emojiSvc = NewEmojiStatsService(f.emojis, c, time.Minute)
	f.userStats = NewUserStatsService(f.users, f.messages, f.stats, c, time.Minute, f.cfg.PerLevel)
	return f
}

func (f *fixture) pipeline(breakerFailures uint32) *MessagePipeline {
	return NewMessagePipeline(PipelineDeps{
		Users:       f.users,
		Messages:    f.messages,
		Points:      f.points,
		Emojis:      f.emojiSvc,
		Dedup:       NewDedupWindow(time.Minute),
		Invalidator: f.cache,
		Breaker:     NewStorageBreaker("test", breakerFailures, time.Minute),
	}, config.FeaturesConfig{EmojiStats: true, ContentAnalysis: true}, f.cfg, time.Second)
}

func (f *fixture) ensure(t *testing.T, id string) {
	t.Helper()
	_, err := f.users.Ensure(context.Background(), id, "user-"+id[len(id)-2:], "")
	require.NoError(t, err)
}

func event(id, userID, content string, at time.Time) MessageEvent {
	return MessageEvent{
		MessageID: id,
		UserID:    userID,
		GuildID:   guild1,
		ChannelID: channel1,
		Username:  "alice",
		Content:   content,
		Timestamp: at,
	}
}

type countingInvalidator struct {
	guild, user, all atomic.Int64
}

func (c *countingInvalidator) GuildChanged(context.Context, string) { c.guild.Add(1) }
func (c *countingInvalidator) UserChanged(context.Context, string)  { c.user.Add(1) }
func (c *countingInvalidator) AllChanged(context.Context)           { c.all.Add(1) }
