package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/metrics"
	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/internal/repository"
)

// GuildEmoji 服务器当前拥有的自定义表情
type GuildEmoji struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated,omitempty"`
}

// UserEmojiStats 用户的常用表情
type UserEmojiStats struct {
	Favorites []*model.EmojiUsage        `json:"favorites"`
	Diversity *repository.EmojiDiversity `json:"diversity"`
}

// TrendEntry 某天某表情的使用量
type TrendEntry struct {
	EmojiType string `json:"emoji_type"`
	EmojiName string `json:"emoji_name"`
	Usage     int64  `json:"usage"`
}

// TrendDay 按天（UTC）分组的表情使用
type TrendDay struct {
	Date   string       `json:"date"`
	Emojis []TrendEntry `json:"emojis"`
}

// Recommendation 表情管理建议
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// EmojiReport 服务器表情使用报告
type EmojiReport struct {
	TotalCustomEmojis int                    `json:"total_custom_emojis"`
	UsedEmojis        int                    `json:"used_emojis"`
	UnusedCount       int                    `json:"unused_count"`
	UsageRate         float64                `json:"usage_rate"`
	TotalUniqueEmojis int                    `json:"total_unique_emojis"`
	AvgUsagePerEmoji  float64                `json:"avg_usage_per_emoji"`
	Popular           []repository.EmojiStat `json:"popular"`
	Unused            []GuildEmoji           `json:"unused"`
	Recommendations   []Recommendation       `json:"recommendations"`
}

// EmojiStatsService 表情使用聚合
type EmojiStatsService struct {
	repo  repository.EmojiUsageRepository
	cache *cache.StatsCache
	inv   Invalidator
	ttl   time.Duration
}

func NewEmojiStatsService(repo repository.EmojiUsageRepository, c *cache.StatsCache, ttl time.Duration) *EmojiStatsService {
	return &EmojiStatsService{repo: repo, cache: c, inv: invalidatorOrNop(c), ttl: ttl}
}

// GroupEmojis 按 (类型, 名称) 合并同一条消息内的重复表情，保持首次出现顺序
func GroupEmojis(emojis []analyzer.Emoji) []repository.EmojiDelta {
	idx := make(map[repository.EmojiKey]int, len(emojis))
	out := make([]repository.EmojiDelta, 0, len(emojis))
	for _, e := range emojis {
		k := repository.EmojiKey{Type: string(e.Kind), Name: e.Name}
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, repository.EmojiDelta{Key: repository.EmojiKey{Type: k.Type, Name: k.Name, ID: e.ID}, Count: 1})
			continue
		}
		out[i].Count++
		if out[i].Key.ID == "" && e.ID != "" {
			out[i].Key.ID = e.ID
		}
	}
	return out
}

// RecordUsage 每个不同的表情只做一次原子累加
func (s *EmojiStatsService) RecordUsage(ctx context.Context, userID, guildID string, emojis []analyzer.Emoji, at time.Time) error {
	if err := validID("user_id", userID); err != nil {
		return err
	}
	if err := validID("guild_id", guildID); err != nil {
		return err
	}
	if len(emojis) == 0 {
		return nil
	}
	deltas := GroupEmojis(emojis)
	if err := s.repo.IncrementBatch(ctx, userID, guildID, deltas, at); err != nil {
		return storageErr("record_emoji", err)
	}
	for _, d := range deltas {
		metrics.EmojisRecorded.WithLabelValues(d.Key.Type).Add(float64(d.Count))
	}
	s.inv.GuildChanged(ctx, guildID)
	return nil
}

// GuildTop 服务器最常用的表情
func (s *EmojiStatsService) GuildTop(ctx context.Context, guildID string, limit int) ([]repository.EmojiStat, error) {
	return s.Leaderboard(ctx, guildID, repository.EmojiOrderTotal, limit)
}

// Leaderboard 按总次数、使用人数或最近使用排序
func (s *EmojiStatsService) Leaderboard(ctx context.Context, guildID, orderBy string, limit int) ([]repository.EmojiStat, error) {
	switch orderBy {
	case repository.EmojiOrderTotal, repository.EmojiOrderUniqueUsers, repository.EmojiOrderRecent:
	case "":
		orderBy = repository.EmojiOrderTotal
	default:
		return nil, invalid("type", "must be total, unique_users or recent")
	}
	limit = clampLimit(limit, 10, 100)
	key := fmt.Sprintf("emoji:board:%s:%d", orderBy, limit)
	rows, err := cache.Fetch(ctx, s.cache, cache.GuildScope(guildID), key, s.ttl, func(ctx context.Context) ([]repository.EmojiStat, error) {
		return s.repo.GuildStats(ctx, guildID, orderBy, nil, limit)
	})
	if err != nil {
		return nil, storageErr("emoji_leaderboard", err)
	}
	return rows, nil
}

// Popular 最近 days 天内仍在使用的热门表情；days <= 0 表示不限
func (s *EmojiStatsService) Popular(ctx context.Context, guildID string, days, limit int) ([]repository.EmojiStat, error) {
	limit = clampLimit(limit, 10, 100)
	var since *time.Time
	if days > 0 {
		t := time.Now().UTC().AddDate(0, 0, -days)
		since = &t
	}
	rows, err := s.repo.GuildStats(ctx, guildID, repository.EmojiOrderTotal, since, limit)
	if err != nil {
		return nil, storageErr("emoji_popular", err)
	}
	return rows, nil
}

// UserFavorites 用户最常用的表情及多样性；guildID 为空时跨服务器统计
func (s *EmojiStatsService) UserFavorites(ctx context.Context, userID, guildID string, limit int) (*UserEmojiStats, error) {
	limit = clampLimit(limit, 10, 50)
	load := func(ctx context.Context) (*UserEmojiStats, error) {
		favs, err := s.repo.UserFavorites(ctx, userID, guildID, limit)
		if err != nil {
			return nil, err
		}
		div, err := s.repo.UserDiversity(ctx, userID, guildID)
		if err != nil {
			return nil, err
		}
		return &UserEmojiStats{Favorites: favs, Diversity: div}, nil
	}
	var (
		out *UserEmojiStats
		err error
	)
	if guildID == "" {
		out, err = load(ctx)
	} else {
		out, err = cache.Fetch(ctx, s.cache, cache.GuildScope(guildID), fmt.Sprintf("emoji:user:%s:%d", userID, limit), s.ttl, load)
	}
	if err != nil {
		return nil, storageErr("emoji_user", err)
	}
	return out, nil
}

// Trends 最近 days 天的使用趋势，按最后使用日期归档
func (s *EmojiStatsService) Trends(ctx context.Context, guildID string, days int) ([]TrendDay, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.repo.UsedSince(ctx, guildID, since)
	if err != nil {
		return nil, storageErr("emoji_trends", err)
	}
	return buildTrends(rows), nil
}

func buildTrends(rows []*model.EmojiUsage) []TrendDay {
	type dayKey struct{ date, typ, name string }
	sums := make(map[dayKey]int64)
	for _, r := range rows {
		k := dayKey{date: r.LastUsed.UTC().Format("2006-01-02"), typ: r.EmojiType, name: r.EmojiName}
		sums[k] += r.UsageCount
	}

	byDate := make(map[string][]TrendEntry)
	for k, n := range sums {
		byDate[k.date] = append(byDate[k.date], TrendEntry{EmojiType: k.typ, EmojiName: k.name, Usage: n})
	}
	out := make([]TrendDay, 0, len(byDate))
	for date, entries := range byDate {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Usage != entries[j].Usage {
				return entries[i].Usage > entries[j].Usage
			}
			return entries[i].EmojiName < entries[j].EmojiName
		})
		out = append(out, TrendDay{Date: date, Emojis: entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// TopUsers 某表情用得最多的用户
func (s *EmojiStatsService) TopUsers(ctx context.Context, guildID, emojiName string, limit int) ([]repository.EmojiUser, error) {
	if emojiName == "" {
		return nil, invalid("emoji", "required")
	}
	rows, err := s.repo.TopUsers(ctx, guildID, emojiName, clampLimit(limit, 10, 50))
	if err != nil {
		return nil, storageErr("emoji_top_users", err)
	}
	return rows, nil
}

// Unused 服务器自定义表情中从未被记录过的
func (s *EmojiStatsService) Unused(ctx context.Context, guildID string, roster []GuildEmoji) ([]GuildEmoji, error) {
	used, err := s.repo.UsedCustomNames(ctx, guildID)
	if err != nil {
		return nil, storageErr("emoji_unused", err)
	}
	seen := make(map[string]struct{}, len(used))
	for _, n := range used {
		seen[n] = struct{}{}
	}
	out := make([]GuildEmoji, 0)
	for _, e := range roster {
		if _, ok := seen[e.Name]; !ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Report 使用率、多样性与管理建议
func (s *EmojiStatsService) Report(ctx context.Context, guildID string, roster []GuildEmoji) (*EmojiReport, error) {
	all, err := s.repo.GuildStats(ctx, guildID, repository.EmojiOrderTotal, nil, 100)
	if err != nil {
		return nil, storageErr("emoji_report", err)
	}
	unused, err := s.Unused(ctx, guildID, roster)
	if err != nil {
		return nil, err
	}

	r := &EmojiReport{
		TotalCustomEmojis: len(roster),
		UsedEmojis:        len(roster) - len(unused),
		UnusedCount:       len(unused),
		TotalUniqueEmojis: len(all),
	}
	if len(roster) > 0 {
		r.UsageRate = float64(r.UsedEmojis) / float64(len(roster)) * 100
	}
	if len(all) > 0 {
		var sum int64
		for _, st := range all {
			sum += st.TotalUsage
		}
		r.AvgUsagePerEmoji = float64(sum) / float64(len(all))
	}
	r.Popular = all[:min(5, len(all))]
	r.Unused = unused[:min(10, len(unused))]
	r.Recommendations = recommend(r, len(unused), all)
	return r, nil
}

func recommend(r *EmojiReport, unused int, popular []repository.EmojiStat) []Recommendation {
	out := make([]Recommendation, 0, 3)
	if unused > 10 {
		out = append(out, Recommendation{
			Type:     "cleanup",
			Message:  fmt.Sprintf("consider removing %d unused custom emojis", unused),
			Priority: "medium",
		})
	}
	if r.UsageRate < 50 {
		out = append(out, Recommendation{
			Type:     "engagement",
			Message:  "custom emoji usage is low, consider an event to encourage it",
			Priority: "low",
		})
	}
	if len(popular) > 0 && popular[0].TotalUsage > 100 {
		out = append(out, Recommendation{
			Type:     "expansion",
			Message:  fmt.Sprintf("%q is popular, consider adding similar emojis", popular[0].EmojiName),
			Priority: "low",
		})
	}
	return out
}

func clampLimit(limit, def, hi int) int {
	if limit <= 0 {
		return def
	}
	if limit > hi {
		return hi
	}
	return limit
}
