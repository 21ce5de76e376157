package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lanternko/Discordbot/internal/model"
)

// 表情排行排序方式
const (
	EmojiOrderTotal       = "total"
	EmojiOrderUniqueUsers = "unique_users"
	EmojiOrderRecent      = "recent"
)

// EmojiKey 表情身份
type EmojiKey struct {
	Type string
	Name string
	ID   string
}

// EmojiDelta 本次需要累加的次数
type EmojiDelta struct {
	Key   EmojiKey
	Count int64
}

// EmojiStat 服务器维度的表情汇总
type EmojiStat struct {
	EmojiType   string `json:"emoji_type"`
	EmojiName   string `json:"emoji_name"`
	EmojiID     string `json:"emoji_id,omitempty"`
	TotalUsage  int64  `json:"total_usage"`
	UniqueUsers int64  `json:"unique_users"`
}

// EmojiUser 某表情的使用者
type EmojiUser struct {
	UserID     string    `json:"user_id"`
	UsageCount int64     `json:"usage_count"`
	FirstUsed  time.Time `json:"first_used"`
	LastUsed   time.Time `json:"last_used"`
}

// EmojiDiversity 用户表情多样性
type EmojiDiversity struct {
	UniqueEmojis int64   `json:"unique_emojis"`
	TotalUsage   int64   `json:"total_usage"`
	AvgPerEmoji  float64 `json:"avg_usage_per_emoji"`
}

type EmojiUsageRepository interface {
	// Increment 原子的 upsert-累加，n 为本条消息中该表情出现次数
	Increment(ctx context.Context, userID, guildID string, key EmojiKey, n int64, at time.Time) error
	// IncrementBatch 同一条消息的多个表情在一个事务内累加
	IncrementBatch(ctx context.Context, userID, guildID string, deltas []EmojiDelta, at time.Time) error
	Get(ctx context.Context, userID, guildID string, key EmojiKey) (*model.EmojiUsage, error)
	GuildStats(ctx context.Context, guildID string, orderBy string, since *time.Time, limit int) ([]EmojiStat, error)
	UserFavorites(ctx context.Context, userID, guildID string, limit int) ([]*model.EmojiUsage, error)
	UserDiversity(ctx context.Context, userID, guildID string) (*EmojiDiversity, error)
	TopUsers(ctx context.Context, guildID, emojiName string, limit int) ([]EmojiUser, error)
	UsedSince(ctx context.Context, guildID string, since time.Time) ([]*model.EmojiUsage, error)
	UsedCustomNames(ctx context.Context, guildID string) ([]string, error)
	DeleteByGuild(ctx context.Context, guildID string) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type emojiUsageRepository struct {
	db *gorm.DB
}

func NewEmojiUsageRepository(db *gorm.DB) EmojiUsageRepository {
	return &emojiUsageRepository{db: db}
}

func (r *emojiUsageRepository) Increment(ctx context.Context, userID, guildID string, key EmojiKey, n int64, at time.Time) error {
	return increment(r.db.WithContext(ctx), userID, guildID, key, n, at)
}

func (r *emojiUsageRepository) IncrementBatch(ctx context.Context, userID, guildID string, deltas []EmojiDelta, at time.Time) error {
	if len(deltas) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range deltas {
			if err := increment(tx, userID, guildID, d.Key, d.Count, at); err != nil {
				return err
			}
		}
		return nil
	})
}

func increment(db *gorm.DB, userID, guildID string, key EmojiKey, n int64, at time.Time) error {
	if n <= 0 {
		return nil
	}
	row := &model.EmojiUsage{
		ID:         uuid.New().String(),
		UserID:     userID,
		GuildID:    guildID,
		EmojiType:  key.Type,
		EmojiName:  key.Name,
		EmojiID:    key.ID,
		UsageCount: n,
		FirstUsed:  at,
		LastUsed:   at,
	}
	// 冲突时在库内累加，保证并发写入不丢计数
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}, {Name: "emoji_type"}, {Name: "emoji_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"usage_count": gorm.Expr("emoji_usage.usage_count + ?", n),
			"last_used":   at,
			"emoji_id":    gorm.Expr("CASE WHEN excluded.emoji_id <> '' THEN excluded.emoji_id ELSE emoji_usage.emoji_id END"),
		}),
	}).Create(row).Error
}

func (r *emojiUsageRepository) Get(ctx context.Context, userID, guildID string, key EmojiKey) (*model.EmojiUsage, error) {
	var row model.EmojiUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ? AND emoji_type = ? AND emoji_name = ?", userID, guildID, key.Type, key.Name).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *emojiUsageRepository) GuildStats(ctx context.Context, guildID string, orderBy string, since *time.Time, limit int) ([]EmojiStat, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.db.WithContext(ctx).
		Model(&model.EmojiUsage{}).
		Select("emoji_type, emoji_name, MAX(emoji_id) AS emoji_id, SUM(usage_count) AS total_usage, COUNT(DISTINCT user_id) AS unique_users").
		Where("guild_id = ?", guildID)
	if since != nil {
		q = q.Where("last_used >= ?", *since)
	}
	q = q.Group("emoji_type, emoji_name")
	switch orderBy {
	case EmojiOrderUniqueUsers:
		q = q.Order("unique_users DESC").Order("total_usage DESC")
	case EmojiOrderRecent:
		q = q.Order("MAX(last_used) DESC")
	default:
		q = q.Order("total_usage DESC")
	}
	var out []EmojiStat
	err := q.Order("emoji_name").Limit(limit).Scan(&out).Error
	return out, err
}

func (r *emojiUsageRepository) UserFavorites(ctx context.Context, userID, guildID string, limit int) ([]*model.EmojiUsage, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if guildID != "" {
		q = q.Where("guild_id = ?", guildID)
	}
	var rows []*model.EmojiUsage
	err := q.Order("usage_count DESC").Order("last_used DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *emojiUsageRepository) UserDiversity(ctx context.Context, userID, guildID string) (*EmojiDiversity, error) {
	q := r.db.WithContext(ctx).
		Model(&model.EmojiUsage{}).
		Select("COUNT(DISTINCT emoji_name) AS unique_emojis, COALESCE(SUM(usage_count),0) AS total_usage").
		Where("user_id = ?", userID)
	if guildID != "" {
		q = q.Where("guild_id = ?", guildID)
	}
	var out EmojiDiversity
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	if out.UniqueEmojis > 0 {
		out.AvgPerEmoji = float64(out.TotalUsage) / float64(out.UniqueEmojis)
	}
	return &out, nil
}

func (r *emojiUsageRepository) TopUsers(ctx context.Context, guildID, emojiName string, limit int) ([]EmojiUser, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []*model.EmojiUsage
	if err := r.db.WithContext(ctx).
		Where("guild_id = ? AND emoji_name = ?", guildID, emojiName).
		Order("usage_count DESC").
		Order("user_id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]EmojiUser, len(rows))
	for i, rw := range rows {
		out[i] = EmojiUser{UserID: rw.UserID, UsageCount: rw.UsageCount, FirstUsed: rw.FirstUsed, LastUsed: rw.LastUsed}
	}
	return out, nil
}

func (r *emojiUsageRepository) UsedSince(ctx context.Context, guildID string, since time.Time) ([]*model.EmojiUsage, error) {
	var rows []*model.EmojiUsage
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND last_used >= ?", guildID, since).
		Order("last_used DESC").
		Find(&rows).Error
	return rows, err
}

func (r *emojiUsageRepository) UsedCustomNames(ctx context.Context, guildID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.EmojiUsage{}).
		Where("guild_id = ? AND emoji_type = ?", guildID, model.EmojiTypeCustom).
		Distinct("emoji_name").
		Pluck("emoji_name", &names).Error
	return names, err
}

func (r *emojiUsageRepository) DeleteByGuild(ctx context.Context, guildID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&model.EmojiUsage{})
	return res.RowsAffected, res.Error
}

func (r *emojiUsageRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_used < ?", cutoff).Delete(&model.EmojiUsage{})
	return res.RowsAffected, res.Error
}
