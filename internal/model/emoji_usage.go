package model

import (
	"time"
)

const (
	EmojiTypeUnicode = "unicode"
	EmojiTypeCustom  = "custom"
)

// EmojiUsage 某用户在某服务器内对某个表情的累计使用次数
type EmojiUsage struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string `json:"user_id" gorm:"type:varchar(20);not null;uniqueIndex:idx_emoji_usage_key,priority:1;index:idx_emoji_usage_user"`
	GuildID   string `json:"guild_id" gorm:"type:varchar(20);not null;uniqueIndex:idx_emoji_usage_key,priority:2;index:idx_emoji_usage_guild"`
	EmojiType string `json:"emoji_type" gorm:"type:varchar(10);not null;uniqueIndex:idx_emoji_usage_key,priority:3"`
	EmojiName string `json:"emoji_name" gorm:"type:varchar(100);not null;uniqueIndex:idx_emoji_usage_key,priority:4"`
	// 自定义表情的平台 ID，未知时为空串
	EmojiID    string    `json:"emoji_id" gorm:"type:varchar(20);not null;default:''"`
	UsageCount int64     `json:"usage_count" gorm:"not null;default:0"`
	FirstUsed  time.Time `json:"first_used" gorm:"not null"`
	LastUsed   time.Time `json:"last_used" gorm:"not null;index:idx_emoji_usage_last"`
}

func (EmojiUsage) TableName() string { return "emoji_usage" }
