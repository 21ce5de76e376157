package model

import (
	"time"
)

// Message 单条消息的分析记录；只追加，不保存正文
type Message struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DiscordID     string    `json:"discord_id" gorm:"type:varchar(20);uniqueIndex:idx_messages_discord;not null"`
	UserID        string    `json:"user_id" gorm:"type:varchar(20);index:idx_messages_user_guild;not null"`
	GuildID       string    `json:"guild_id" gorm:"type:varchar(20);index:idx_messages_user_guild;index:idx_messages_guild_created;not null"`
	ChannelID     string    `json:"channel_id" gorm:"type:varchar(20);not null"`
	MessageType   string    `json:"message_type" gorm:"type:varchar(20);not null"`
	TextLength    int       `json:"text_length" gorm:"not null;default:0"`
	EmojiCount    int       `json:"emoji_count" gorm:"not null;default:0"`
	LinkCount     int       `json:"link_count" gorm:"not null;default:0"`
	ImageCount    int       `json:"image_count" gorm:"not null;default:0"`
	PointsAwarded int64     `json:"points_awarded" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"index:idx_messages_guild_created;not null"`
}

func (Message) TableName() string { return "messages" }
