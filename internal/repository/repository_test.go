package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/pkg/database"
)

const (
	userA  = "100000000000000001"
	userB  = "100000000000000002"
	guild1 = "200000000000000001"
	guild2 = "200000000000000002"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newMessage(discordID, userID, guildID, typ string, at time.Time) *model.Message {
	return &model.Message{
		ID:          uuid.New().String(),
		DiscordID:   discordID,
		UserID:      userID,
		GuildID:     guildID,
		ChannelID:   "300000000000000001",
		MessageType: typ,
		TextLength:  10,
		CreatedAt:   at,
	}
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	u, err := repo.Ensure(ctx, userA, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Level)
	assert.Zero(t, u.TotalPoints)

	u, err = repo.Ensure(ctx, userA, "alice2", "Alice Two")
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUserMutateAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	_, err := repo.Ensure(ctx, userA, "alice", "")
	require.NoError(t, err)

	u, err := repo.Mutate(ctx, userA, func(u *model.User) error {
		u.TotalPoints += 150
		u.Level = 2
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 150, u.TotalPoints)

	got, err := repo.Get(ctx, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 150, got.TotalPoints)
	assert.Equal(t, 2, got.Level)

	boom := errors.New("boom")
	_, err = repo.Mutate(ctx, userA, func(u *model.User) error {
		u.TotalPoints = 999
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, err = repo.Get(ctx, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 150, got.TotalPoints)

	_, err = repo.Mutate(ctx, userB, func(u *model.User) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(ctx, userB)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserIncrementMessagesAndSpend(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)
	_, err := repo.Ensure(ctx, userA, "alice", "")
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, repo.IncrementMessages(ctx, userA, at))
	require.NoError(t, repo.IncrementMessages(ctx, userA, at))
	require.ErrorIs(t, repo.IncrementMessages(ctx, userB, at), ErrNotFound)

	require.NoError(t, db.Model(&model.User{}).Where("discord_id = ?", userA).Update("coins", 30).Error)
	ok, err := repo.SpendCoins(ctx, userA, 20)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.SpendCoins(ctx, userA, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := repo.Get(ctx, userA)
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.TotalMessages)
	assert.EqualValues(t, 10, u.Coins)
	require.NotNil(t, u.LastMessageAt)
}

func TestUserLeaderboardAndRank(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)
	for i, pts := range []int64{50, 300, 120} {
		id := fmt.Sprintf("10000000000000010%d", i)
		_, err := repo.Ensure(ctx, id, id, "")
		require.NoError(t, err)
		require.NoError(t, db.Model(&model.User{}).Where("discord_id = ?", id).Update("total_points", pts).Error)
	}

	top, err := repo.Leaderboard(ctx, OrderByPoints, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.EqualValues(t, 300, top[0].TotalPoints)
	assert.EqualValues(t, 120, top[1].TotalPoints)

	rank, err := repo.Rank(ctx, "100000000000000100")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rank)
}

func TestMessageCreateOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	now := time.Now().UTC()

	created, err := repo.CreateOnce(ctx, newMessage("m1", userA, guild1, "text_only", now))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateOnce(ctx, newMessage("m1", userA, guild1, "text_only", now))
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.Exists(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, "m2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMessageStatsAndGuildQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	now := time.Now().UTC()

	types := []string{"text_only", "text_only", "emoji_rich", "link_share", "image_upload"}
	for i, typ := range types {
		m := newMessage(fmt.Sprintf("a%d", i), userA, guild1, typ, now)
		m.TextLength = 20
		m.PointsAwarded = 1
		_, err := repo.CreateOnce(ctx, m)
		require.NoError(t, err)
	}
	_, err := repo.CreateOnce(ctx, newMessage("b1", userB, guild1, "text_only", now))
	require.NoError(t, err)
	_, err = repo.CreateOnce(ctx, newMessage("c1", userA, guild2, "text_only", now))
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, userA, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TextMessages)
	assert.EqualValues(t, 1, stats.EmojiMessages)
	assert.EqualValues(t, 1, stats.LinkMessages)
	assert.EqualValues(t, 1, stats.ImageMessages)
	assert.InDelta(t, 20.0, stats.AvgTextLength, 1e-9)

	all, err := repo.Stats(ctx, userA, "")
	require.NoError(t, err)
	assert.EqualValues(t, 6, all.Total())

	summary, err := repo.GuildSummary(ctx, guild1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 6, summary.TotalMessages)
	assert.EqualValues(t, 2, summary.ActiveUsers)
	assert.EqualValues(t, 5, summary.TotalPoints)

	top, err := repo.TopActive(ctx, guild1, now.Add(-time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, userA, top[0].UserID)
	assert.EqualValues(t, 5, top[0].Messages)

	hours, err := repo.HourlyActivity(ctx, guild1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 6, hours[now.Hour()])

	users, err := repo.DistinctUsers(ctx, guild1)
	require.NoError(t, err)
	assert.Equal(t, []string{userA, userB}, users)

	n, err := repo.DeleteByGuild(ctx, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	all, err = repo.Stats(ctx, userA, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Total())
}

func TestMessagePurgeBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	now := time.Now().UTC()

	_, err := repo.CreateOnce(ctx, newMessage("old", userA, guild1, "text_only", now.AddDate(-2, 0, 0)))
	require.NoError(t, err)
	_, err = repo.CreateOnce(ctx, newMessage("new", userA, guild1, "text_only", now))
	require.NoError(t, err)

	n, err := repo.PurgeBefore(ctx, now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEmojiIncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewEmojiUsageRepository(newTestDB(t))
	key := EmojiKey{Type: model.EmojiTypeUnicode, Name: "😀"}

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Increment(ctx, userA, guild1, key, 1, time.Now().UTC())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	row, err := repo.Get(ctx, userA, guild1, key)
	require.NoError(t, err)
	assert.EqualValues(t, workers, row.UsageCount)
}

func TestEmojiIncrementKeepsKnownID(t *testing.T) {
	ctx := context.Background()
	repo := NewEmojiUsageRepository(newTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Increment(ctx, userA, guild1, EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe", ID: "42"}, 2, now))
	require.NoError(t, repo.Increment(ctx, userA, guild1, EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe"}, 1, now.Add(time.Minute)))

	row, err := repo.Get(ctx, userA, guild1, EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, row.UsageCount)
	assert.Equal(t, "42", row.EmojiID)
	assert.True(t, row.LastUsed.After(row.FirstUsed))

	require.NoError(t, repo.Increment(ctx, userA, guild1, EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe"}, 0, now))
	row, err = repo.Get(ctx, userA, guild1, EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, row.UsageCount)
}

func TestEmojiGuildStatsOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewEmojiUsageRepository(newTestDB(t))
	now := time.Now().UTC()
	fire := EmojiKey{Type: model.EmojiTypeUnicode, Name: "🔥"}
	pepe := EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe", ID: "42"}

	require.NoError(t, repo.Increment(ctx, userA, guild1, fire, 10, now.Add(-time.Hour)))
	require.NoError(t, repo.Increment(ctx, userA, guild1, pepe, 1, now))
	require.NoError(t, repo.Increment(ctx, userB, guild1, pepe, 1, now))
	require.NoError(t, repo.Increment(ctx, userB, guild2, fire, 99, now))

	byTotal, err := repo.GuildStats(ctx, guild1, EmojiOrderTotal, nil, 10)
	require.NoError(t, err)
	require.Len(t, byTotal, 2)
	assert.Equal(t, "🔥", byTotal[0].EmojiName)
	assert.EqualValues(t, 10, byTotal[0].TotalUsage)

	byUsers, err := repo.GuildStats(ctx, guild1, EmojiOrderUniqueUsers, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, "pepe", byUsers[0].EmojiName)
	assert.EqualValues(t, 2, byUsers[0].UniqueUsers)
	assert.Equal(t, "42", byUsers[0].EmojiID)

	recent, err := repo.GuildStats(ctx, guild1, EmojiOrderRecent, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, "pepe", recent[0].EmojiName)

	since := now.Add(-time.Minute)
	windowed, err := repo.GuildStats(ctx, guild1, EmojiOrderTotal, &since, 10)
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "pepe", windowed[0].EmojiName)

	users, err := repo.TopUsers(ctx, guild1, "pepe", 10)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	names, err := repo.UsedCustomNames(ctx, guild1)
	require.NoError(t, err)
	assert.Equal(t, []string{"pepe"}, names)

	div, err := repo.UserDiversity(ctx, userA, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, div.UniqueEmojis)
	assert.EqualValues(t, 11, div.TotalUsage)

	n, err := repo.DeleteByGuild(ctx, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	left, err := repo.GuildStats(ctx, guild2, EmojiOrderTotal, nil, 10)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestUserStatsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserStatsRepository(newTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &model.UserStats{UserID: userA, GuildID: guild1, TotalTextMessages: 3, InteractionStyle: "balanced", LastCalculated: now}))
	require.NoError(t, repo.Upsert(ctx, &model.UserStats{UserID: userA, GuildID: guild1, TotalTextMessages: 7, AvgTextLength: 25, InteractionStyle: "text_focused", LastCalculated: now}))

	s, err := repo.Get(ctx, userA, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 7, s.TotalTextMessages)
	assert.Equal(t, "text_focused", s.InteractionStyle)

	_, err = repo.Get(ctx, userB, guild1)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := repo.DeleteByGuild(ctx, guild1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEmojiIncrementBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewEmojiUsageRepository(newTestDB(t))
	now := time.Now().UTC()

	deltas := []EmojiDelta{
		{Key: EmojiKey{Type: model.EmojiTypeUnicode, Name: "😀"}, Count: 3},
		{Key: EmojiKey{Type: model.EmojiTypeCustom, Name: "pepe", ID: "42"}, Count: 1},
	}
	require.NoError(t, repo.IncrementBatch(ctx, userA, guild1, deltas, now))
	require.NoError(t, repo.IncrementBatch(ctx, userA, guild1, deltas[:1], now))
	require.NoError(t, repo.IncrementBatch(ctx, userA, guild1, nil, now))

	row, err := repo.Get(ctx, userA, guild1, deltas[0].Key)
	require.NoError(t, err)
	assert.EqualValues(t, 6, row.UsageCount)

	favs, err := repo.UserFavorites(ctx, userA, guild1, 10)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "😀", favs[0].EmojiName)
}
