package model

import (
	"time"
)

// User 平台用户与积分账本（全局，不分服务器）
type User struct {
	DiscordID     string     `json:"discord_id" gorm:"primaryKey;type:varchar(20)"`
	Username      string     `json:"username" gorm:"type:varchar(100);not null"`
	DisplayName   string     `json:"display_name" gorm:"type:varchar(100)"`
	TotalMessages int64      `json:"total_messages" gorm:"not null;default:0;index:idx_users_messages"`
	TotalPoints   int64      `json:"total_points" gorm:"not null;default:0;index:idx_users_points"`
	Level         int        `json:"level" gorm:"not null;default:1;index:idx_users_level"`
	Coins         int64      `json:"coins" gorm:"not null;default:0"`
	LastMessageAt *time.Time `json:"last_message_at"`
	// 最近一次获得积分的时间，冷却以此为准
	LastAwardAt *time.Time `json:"last_award_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// LevelProgress 距离下一级的进度
type LevelProgress struct {
	Current    int64 `json:"current"`
	Required   int64 `json:"required"`
	Percentage int   `json:"percentage"`
}

// Progress 按每级所需积分计算当前等级内的进度
func (u *User) Progress(pointsPerLevel int64) LevelProgress {
	if pointsPerLevel <= 0 {
		return LevelProgress{}
	}
	floor := int64(u.Level-1) * pointsPerLevel
	cur := u.TotalPoints - floor
	if cur < 0 {
		cur = 0
	}
	pct := int(cur * 100 / pointsPerLevel)
	if pct > 100 {
		pct = 100
	}
	return LevelProgress{Current: cur, Required: pointsPerLevel, Percentage: pct}
}
