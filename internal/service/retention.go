package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/internal/metrics"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// RetentionResult 一次清理删除的行数
type RetentionResult struct {
	Messages    int64 `json:"messages"`
	EmojiUsages int64 `json:"emoji_usages"`
}

// RetentionWorker 定期删除超过保留期的消息记录与表情计数
type RetentionWorker struct {
	messages repository.MessageRepository
	emojis   repository.EmojiUsageRepository
	inv      Invalidator
	days     int
	interval time.Duration
	now      func() time.Time
}

func NewRetentionWorker(messages repository.MessageRepository, emojis repository.EmojiUsageRepository, inv Invalidator, days int, interval time.Duration) *RetentionWorker {
	if days <= 0 {
		days = 365
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &RetentionWorker{
		messages: messages,
		emojis:   emojis,
		inv:      inv,
		days:     days,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start 启动轮询，返回停止函数
func (w *RetentionWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.loop(stop)
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *RetentionWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := w.RunOnce(ctx); err != nil {
				logger.Warn("retention purge failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce 删除 cutoff 之前的数据；days 取构造时的保留天数
func (w *RetentionWorker) RunOnce(ctx context.Context) (RetentionResult, error) {
	return w.PurgeOlderThan(ctx, w.days)
}

// PurgeOlderThan 删除早于 days 天的数据
func (w *RetentionWorker) PurgeOlderThan(ctx context.Context, days int) (RetentionResult, error) {
	var res RetentionResult
	if days <= 0 {
		return res, invalid("days", "must be positive")
	}
	cutoff := w.now().AddDate(0, 0, -days)

	n, err := w.messages.PurgeBefore(ctx, cutoff)
	if err != nil {
		return res, storageErr("purge_messages", err)
	}
	res.Messages = n

	n, err = w.emojis.PurgeBefore(ctx, cutoff)
	if err != nil {
		return res, storageErr("purge_emoji_usage", err)
	}
	res.EmojiUsages = n

	metrics.RetentionPurged.WithLabelValues("messages").Add(float64(res.Messages))
	metrics.RetentionPurged.WithLabelValues("emoji_usage").Add(float64(res.EmojiUsages))
	if res.Messages > 0 || res.EmojiUsages > 0 {
		w.inv.AllChanged(ctx)
	}
	logger.Info("retention purge done",
		zap.Time("cutoff", cutoff),
		zap.Int64("messages", res.Messages),
		zap.Int64("emoji_usage", res.EmojiUsages))
	return res, nil
}
