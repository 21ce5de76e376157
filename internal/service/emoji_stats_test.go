package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/internal/repository"
)

func TestGroupEmojis(t *testing.T) {
	got := GroupEmojis([]analyzer.Emoji{
		{Kind: analyzer.EmojiUnicode, Name: "😀"},
		{Kind: analyzer.EmojiCustom, Name: "party"},
		{Kind: analyzer.EmojiUnicode, Name: "😀"},
		{Kind: analyzer.EmojiCustom, Name: "party", ID: "123456789012345678"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "😀", got[0].Key.Name)
	assert.Equal(t, int64(2), got[0].Count)
	assert.Equal(t, "party", got[1].Key.Name)
	assert.Equal(t, "123456789012345678", got[1].Key.ID)
	assert.Equal(t, int64(2), got[1].Count)
}

func TestRecordUsageRepeatedMarkupIsOneIncrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()
	party := "<:party:123456789012345678>"

	emojis := analyzer.ExtractEmojis(party + " " + party + " " + party)
	require.Len(t, emojis, 3)
	require.Len(t, GroupEmojis(emojis), 1)

	require.NoError(t, f.emojiSvc.RecordUsage(ctx, userA, guild1, emojis, now))
	row, err := f.emojis.Get(ctx, userA, guild1, repository.EmojiKey{Type: model.EmojiTypeCustom, Name: "party", ID: "123456789012345678"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), row.UsageCount)
}

func TestRecordUsageRejectsMalformedIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	smile := analyzer.ExtractEmojis("😀")

	assert.ErrorIs(t, f.emojiSvc.RecordUsage(ctx, "", "not-a-guild", smile, t0), ErrInvalidInput)
	assert.ErrorIs(t, f.emojiSvc.RecordUsage(ctx, userA, "not-a-guild", smile, t0), ErrInvalidInput)
	assert.ErrorIs(t, f.emojiSvc.RecordUsage(ctx, "bogus", guild1, smile, t0), ErrInvalidInput)

	var n int64
	require.NoError(t, f.db.Model(&model.EmojiUsage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRecordUsageSameNameDifferentIDsShareCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	emojis := analyzer.ExtractEmojis("<:party:123456789012345678> <:party:876543210987654321>")
	require.Len(t, emojis, 2)
	require.NoError(t, f.emojiSvc.RecordUsage(ctx, userA, guild1, emojis, t0))

	var rows []model.EmojiUsage
	require.NoError(t, f.db.Where("guild_id = ?", guild1).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "party", rows[0].EmojiName)
	assert.Equal(t, int64(2), rows[0].UsageCount)
	assert.Equal(t, "123456789012345678", rows[0].EmojiID)
}

func TestEmojiLeaderboardInvalidatedByUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()

	require.NoError(t, f.emojiSvc.RecordUsage(ctx, userA, guild1, analyzer.ExtractEmojis("🔥🔥"), now))
	board, err := f.emojiSvc.Leaderboard(ctx, guild1, "", 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, int64(2), board[0].TotalUsage)

	require.NoError(t, f.emojiSvc.RecordUsage(ctx, userB, guild1, analyzer.ExtractEmojis("🔥 🎉"), now))
	board, err = f.emojiSvc.Leaderboard(ctx, guild1, repository.EmojiOrderTotal, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "🔥", board[0].EmojiName)
	assert.Equal(t, int64(3), board[0].TotalUsage)
	assert.Equal(t, int64(2), board[0].UniqueUsers)

	_, err = f.emojiSvc.Leaderboard(ctx, guild1, "loudest", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	fav, err := f.emojiSvc.UserFavorites(ctx, userB, guild1, 10)
	require.NoError(t, err)
	assert.Len(t, fav.Favorites, 2)
	assert.Equal(t, int64(2), fav.Diversity.UniqueEmojis)

	users, err := f.emojiSvc.TopUsers(ctx, guild1, "🔥", 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, userA, users[0].UserID)

	_, err = f.emojiSvc.TopUsers(ctx, guild1, "", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildTrends(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	rows := []*model.EmojiUsage{
		{UserID: userA, EmojiType: "unicode", EmojiName: "🔥", UsageCount: 3, LastUsed: day1},
		{UserID: userB, EmojiType: "unicode", EmojiName: "🔥", UsageCount: 2, LastUsed: day1.Add(time.Hour)},
		{UserID: userA, EmojiType: "custom", EmojiName: "party", UsageCount: 7, LastUsed: day2},
		{UserID: userB, EmojiType: "unicode", EmojiName: "🎉", UsageCount: 1, LastUsed: day2},
	}
	days := buildTrends(rows)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-02", days[0].Date)
	require.Len(t, days[0].Emojis, 2)
	assert.Equal(t, "party", days[0].Emojis[0].EmojiName)
	assert.Equal(t, "2026-03-01", days[1].Date)
	require.Len(t, days[1].Emojis, 1)
	assert.Equal(t, int64(5), days[1].Emojis[0].Usage)
}

func TestEmojiReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()

	roster := make([]GuildEmoji, 0, 12)
	for i := 0; i < 12; i++ {
		roster = append(roster, GuildEmoji{ID: fmt.Sprintf("5000000000000000%02d", i), Name: fmt.Sprintf("e%d", i)})
	}
	require.NoError(t, f.emojiSvc.RecordUsage(ctx, userA, guild1, []analyzer.Emoji{
		{Kind: analyzer.EmojiCustom, Name: "e0", ID: roster[0].ID},
		{Kind: analyzer.EmojiUnicode, Name: "🔥"},
	}, now))

	unused, err := f.emojiSvc.Unused(ctx, guild1, roster)
	require.NoError(t, err)
	assert.Len(t, unused, 11)

	r, err := f.emojiSvc.Report(ctx, guild1, roster)
	require.NoError(t, err)
	assert.Equal(t, 12, r.TotalCustomEmojis)
	assert.Equal(t, 1, r.UsedEmojis)
	assert.Equal(t, 11, r.UnusedCount)
	assert.Len(t, r.Unused, 10)
	assert.Equal(t, 2, r.TotalUniqueEmojis)
	assert.InDelta(t, 8.33, r.UsageRate, 0.01)

	types := make([]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		types = append(types, rec.Type)
	}
	assert.Equal(t, []string{"cleanup", "engagement"}, types)

	trends, err := f.emojiSvc.Trends(ctx, guild1, 0)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, now.Format("2006-01-02"), trends[0].Date)
}
