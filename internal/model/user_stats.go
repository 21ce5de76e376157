package model

import (
	"time"
)

// UserStats 用户在某服务器的聚合统计，可随时由消息记录重算
type UserStats struct {
	UserID             string    `json:"user_id" gorm:"primaryKey;type:varchar(20)"`
	GuildID            string    `json:"guild_id" gorm:"primaryKey;type:varchar(20);index:idx_user_stats_guild"`
	TotalTextMessages  int64     `json:"total_text_messages" gorm:"not null;default:0"`
	TotalEmojiMessages int64     `json:"total_emoji_messages" gorm:"not null;default:0"`
	TotalLinkMessages  int64     `json:"total_link_messages" gorm:"not null;default:0"`
	TotalImageMessages int64     `json:"total_image_messages" gorm:"not null;default:0"`
	AvgTextLength      float64   `json:"avg_text_length" gorm:"not null;default:0"`
	InteractionStyle   string    `json:"interaction_style" gorm:"type:varchar(30);not null"`
	LastCalculated     time.Time `json:"last_calculated" gorm:"not null"`
}

func (UserStats) TableName() string { return "user_stats" }
