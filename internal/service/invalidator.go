package service

import (
	"context"

	"github.com/Lanternko/Discordbot/internal/cache"
)

// Invalidator 写路径在提交后通知读缓存
type Invalidator interface {
	GuildChanged(ctx context.Context, guildID string)
	UserChanged(ctx context.Context, userID string)
	AllChanged(ctx context.Context)
}

type nopInvalidator struct{}

func (nopInvalidator) GuildChanged(context.Context, string) {}
func (nopInvalidator) UserChanged(context.Context, string)  {}
func (nopInvalidator) AllChanged(context.Context)           {}

func invalidatorOrNop(c *cache.StatsCache) Invalidator {
	if c == nil {
		return nopInvalidator{}
	}
	return c
}
