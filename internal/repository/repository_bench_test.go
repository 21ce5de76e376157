package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/pkg/database"
)

var benchEmojis = []EmojiKey{
	{Type: model.EmojiTypeUnicode, Name: "😂"},
	{Type: model.EmojiTypeUnicode, Name: "🔥"},
	{Type: model.EmojiTypeUnicode, Name: "👍"},
	{Type: model.EmojiTypeCustom, Name: "pepe_happy", ID: "123456789012345678"},
	{Type: model.EmojiTypeCustom, Name: "kekw", ID: "123456789012345679"},
}

func seedBenchUsers(b *testing.B, repo UserRepository, n int) []string {
	b.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("1%017d", i)
		if _, err := repo.Ensure(context.Background(), ids[i], "u"+ids[i][14:], ""); err != nil {
			b.Fatalf("seed users: %v", err)
		}
	}
	return ids
}

func BenchmarkEmojiIncrement(b *testing.B) {
	db, err := database.OpenMemory(b.Name())
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	repo := NewEmojiUsageRepository(db)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(1))
	now := time.Now().UTC()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user := fmt.Sprintf("1%017d", rnd.Intn(500))
		key := benchEmojis[rnd.Intn(len(benchEmojis))]
		_ = repo.Increment(ctx, user, "200000000000000001", key, 1, now)
	}
}

func BenchmarkMessageWriteAndAward(b *testing.B) {
	db, err := database.OpenMemory(b.Name())
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	users := NewUserRepository(db)
	messages := NewMessageRepository(db)
	ids := seedBenchUsers(b, users, 1000)
	ctx := context.Background()
	now := time.Now().UTC()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := ids[i%len(ids)]
		_, _ = users.Mutate(ctx, id, func(u *model.User) error {
			u.TotalPoints++
			return nil
		})
		_ = users.IncrementMessages(ctx, id, now)
		_, _ = messages.CreateOnce(ctx, &model.Message{
			ID:          uuid.New().String(),
			DiscordID:   fmt.Sprintf("4%017d", i),
			UserID:      id,
			GuildID:     "200000000000000001",
			ChannelID:   "300000000000000001",
			MessageType: "text_only",
			TextLength:  24,
			CreatedAt:   now,
		})
	}
}

func BenchmarkGuildQueries(b *testing.B) {
	db, err := database.OpenMemory(b.Name())
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	users := NewUserRepository(db)
	emojis := NewEmojiUsageRepository(db)
	ids := seedBenchUsers(b, users, 2000)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range ids {
		_ = emojis.Increment(ctx, id, "200000000000000001", benchEmojis[i%len(benchEmojis)], int64(i%7+1), now)
	}

	b.ResetTimer()
	b.Run("EmojiGuildStats", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = emojis.GuildStats(ctx, "200000000000000001", EmojiOrderTotal, nil, 10)
		}
	})

	b.Run("Leaderboard", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = users.Leaderboard(ctx, OrderByPoints, 10)
		}
	})
}
