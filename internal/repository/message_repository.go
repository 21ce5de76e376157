package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lanternko/Discordbot/internal/model"
)

// MessageStats 某用户的消息类型分布
type MessageStats struct {
	TextMessages  int64   `json:"text_messages"`
	EmojiMessages int64   `json:"emoji_messages"`
	LinkMessages  int64   `json:"link_messages"`
	ImageMessages int64   `json:"image_messages"`
	AvgTextLength float64 `json:"avg_text_length"`
	TotalEmojis   int64   `json:"total_emojis"`
	TotalLinks    int64   `json:"total_links"`
	TotalImages   int64   `json:"total_images"`
}

func (s MessageStats) Total() int64 {
	return s.TextMessages + s.EmojiMessages + s.LinkMessages + s.ImageMessages
}

// GuildSummary 服务器在某时间段内的活跃概况
type GuildSummary struct {
	TotalMessages int64            `json:"total_messages"`
	ActiveUsers   int64            `json:"active_users"`
	TotalPoints   int64            `json:"total_points"`
	ByType        map[string]int64 `json:"by_type"`
}

// UserActivity 活跃用户排行项
type UserActivity struct {
	UserID   string `json:"user_id"`
	Messages int64  `json:"messages"`
	Points   int64  `json:"points"`
}

type MessageRepository interface {
	// CreateOnce 按 discord_id 幂等写入，返回是否新插入
	CreateOnce(ctx context.Context, m *model.Message) (bool, error)
	Exists(ctx context.Context, discordID string) (bool, error)
	Stats(ctx context.Context, userID, guildID string) (*MessageStats, error)
	GuildSummary(ctx context.Context, guildID string, since time.Time) (*GuildSummary, error)
	TopActive(ctx context.Context, guildID string, since time.Time, limit int) ([]UserActivity, error)
	HourlyActivity(ctx context.Context, guildID string, since time.Time) ([24]int64, error)
	DistinctUsers(ctx context.Context, guildID string) ([]string, error)
	DeleteByGuild(ctx context.Context, guildID string) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository { return &messageRepository{db: db} }

func (r *messageRepository) CreateOnce(ctx context.Context, m *model.Message) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "discord_id"}}, DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *messageRepository) Exists(ctx context.Context, discordID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("discord_id = ?", discordID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *messageRepository) Stats(ctx context.Context, userID, guildID string) (*MessageStats, error) {
	type row struct {
		MessageType string
		Cnt         int64
		TextLen     int64
		Emojis      int64
		Links       int64
		Images      int64
	}
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("message_type, COUNT(*) AS cnt, COALESCE(SUM(text_length),0) AS text_len, COALESCE(SUM(emoji_count),0) AS emojis, COALESCE(SUM(link_count),0) AS links, COALESCE(SUM(image_count),0) AS images").
		Where("user_id = ?", userID)
	if guildID != "" {
		q = q.Where("guild_id = ?", guildID)
	}
	var rows []row
	if err := q.Group("message_type").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := &MessageStats{}
	var total, textLen int64
	for _, rw := range rows {
		switch rw.MessageType {
		case "text_only":
			out.TextMessages += rw.Cnt
		case "emoji_rich":
			out.EmojiMessages += rw.Cnt
		case "link_share":
			out.LinkMessages += rw.Cnt
		case "image_upload":
			out.ImageMessages += rw.Cnt
		}
		total += rw.Cnt
		textLen += rw.TextLen
		out.TotalEmojis += rw.Emojis
		out.TotalLinks += rw.Links
		out.TotalImages += rw.Images
	}
	if total > 0 {
		out.AvgTextLength = float64(textLen) / float64(total)
	}
	return out, nil
}

func (r *messageRepository) GuildSummary(ctx context.Context, guildID string, since time.Time) (*GuildSummary, error) {
	type row struct {
		MessageType string
		Cnt         int64
		Points      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("message_type, COUNT(*) AS cnt, COALESCE(SUM(points_awarded),0) AS points").
		Where("guild_id = ? AND created_at >= ?", guildID, since).
		Group("message_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := &GuildSummary{ByType: make(map[string]int64, len(rows))}
	for _, rw := range rows {
		out.ByType[rw.MessageType] = rw.Cnt
		out.TotalMessages += rw.Cnt
		out.TotalPoints += rw.Points
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("guild_id = ? AND created_at >= ?", guildID, since).
		Distinct("user_id").
		Count(&out.ActiveUsers).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepository) TopActive(ctx context.Context, guildID string, since time.Time, limit int) ([]UserActivity, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []UserActivity
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("user_id, COUNT(*) AS messages, COALESCE(SUM(points_awarded),0) AS points").
		Where("guild_id = ? AND created_at >= ?", guildID, since).
		Group("user_id").
		Order("messages DESC").
		Order("user_id").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// HourlyActivity 按 UTC 小时分桶；在 Go 侧分组以兼容 sqlite 与 postgres
func (r *messageRepository) HourlyActivity(ctx context.Context, guildID string, since time.Time) ([24]int64, error) {
	var buckets [24]int64
	var stamps []time.Time
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("guild_id = ? AND created_at >= ?", guildID, since).
		Pluck("created_at", &stamps).Error; err != nil {
		return buckets, err
	}
	for _, ts := range stamps {
		buckets[ts.UTC().Hour()]++
	}
	return buckets, nil
}

func (r *messageRepository) DistinctUsers(ctx context.Context, guildID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("guild_id = ?", guildID).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *messageRepository) DeleteByGuild(ctx context.Context, guildID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}

func (r *messageRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}
