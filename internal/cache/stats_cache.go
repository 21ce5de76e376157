package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/pkg/logger"
)

const (
	scopeGlobal = "global"
	epochKey    = "epoch"
)

// StatsCache 统计读模型的 Redis JSON 缓存。
// 键中带有作用域版本号和全局 epoch，失效只需 INCR，旧键随 TTL 过期。
// client 为 nil 时所有读取直接穿透到加载函数。
type StatsCache struct {
	client *redis.Client
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

func NewStatsCache(client *redis.Client, prefix string) *StatsCache {
	if prefix == "" {
		prefix = "botstats"
	}
	return &StatsCache{client: client, prefix: prefix}
}

// Enabled 是否连接了 Redis
func (c *StatsCache) Enabled() bool { return c != nil && c.client != nil }

func GuildScope(guildID string) string { return "guild:" + guildID }
func UserScope(userID string) string   { return "user:" + userID }
func GlobalScope() string              { return scopeGlobal }

// Fetch 读取缓存；未命中时调用 load 并回填
func Fetch[T any](ctx context.Context, c *StatsCache, scope, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() || ttl <= 0 {
		return load(ctx)
	}

	fullKey, err := c.key(ctx, scope, key)
	if err != nil {
		c.errs.Add(1)
		logger.Warn("stats cache version lookup failed", zap.String("scope", scope), zap.Error(err))
		return load(ctx)
	}

	if data, err := c.client.Get(ctx, fullKey).Bytes(); err == nil {
		var out T
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			c.hits.Add(1)
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.errs.Add(1)
		logger.Warn("stats cache get failed", zap.String("key", fullKey), zap.Error(err))
	}
	c.misses.Add(1)

	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if payload, err := json.Marshal(out); err == nil {
		if sErr := c.client.Set(ctx, fullKey, payload, ttl).Err(); sErr != nil {
			c.errs.Add(1)
			logger.Warn("stats cache set failed", zap.String("key", fullKey), zap.Error(sErr))
		}
	}
	return out, nil
}

func (c *StatsCache) key(ctx context.Context, scope, key string) (string, error) {
	vals, err := c.client.MGet(ctx, c.prefix+":"+epochKey, c.versionKey(scope)).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:e%d:%s:v%d:%s", c.prefix, asInt(vals[0]), scope, asInt(vals[1]), key), nil
}

func (c *StatsCache) versionKey(scope string) string {
	return c.prefix + ":ver:" + scope
}

func asInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// GuildChanged 某服务器的统计已变化
func (c *StatsCache) GuildChanged(ctx context.Context, guildID string) {
	c.bump(ctx, GuildScope(guildID))
}

// UserChanged 某用户的积分已变化；全局排行榜一并失效
func (c *StatsCache) UserChanged(ctx context.Context, userID string) {
	c.bump(ctx, UserScope(userID), scopeGlobal)
}

// AllChanged 使全部缓存失效
func (c *StatsCache) AllChanged(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, c.prefix+":"+epochKey).Err(); err != nil {
		c.errs.Add(1)
		logger.Warn("stats cache epoch bump failed", zap.Error(err))
	}
}

func (c *StatsCache) bump(ctx context.Context, scopes ...string) {
	if !c.Enabled() {
		return
	}
	pipe := c.client.Pipeline()
	for _, s := range scopes {
		pipe.Incr(ctx, c.versionKey(s))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.errs.Add(1)
		logger.Warn("stats cache invalidate failed", zap.Strings("scopes", scopes), zap.Error(err))
	}
}

// ResetCounters 清零命中计数
func (c *StatsCache) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.errs.Store(0)
}

// Counters 返回命中统计
func (c *StatsCache) Counters() Counters {
	return Counters{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errs.Load()}
}

// Counters 缓存命中统计
type Counters struct {
	Hits   int64
	Misses int64
	Errors int64
}
