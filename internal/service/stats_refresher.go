package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/internal/metrics"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// Refresher 异步重算用户聚合
type Refresher interface {
	Enqueue(userID, guildID string)
}

type refreshJob struct {
	userID  string
	guildID string
	enqAt   time.Time
}

// StatsRefresher 本地有界队列 + 固定 worker；同一 (用户, 服务器) 在队列中只保留一份
type StatsRefresher struct {
	stats     *UserStatsService
	ch        chan refreshJob
	pending   sync.Map
	timeout   time.Duration
	metricsCh chan time.Duration
}

func NewStatsRefresher(stats *UserStatsService, queueSize int, timeout time.Duration) *StatsRefresher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StatsRefresher{
		stats:     stats,
		ch:        make(chan refreshJob, queueSize),
		timeout:   timeout,
		metricsCh: make(chan time.Duration, 4096),
	}
}

// Start 启动 worker，返回停止函数；停止时最多等待队列排空 2 秒
func (r *StatsRefresher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-r.ch:
					r.run(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		timeout := time.After(2 * time.Second)
		for len(r.ch) > 0 {
			select {
			case <-timeout:
				close(stopCh)
				wg.Wait()
				return nil
			case <-ctx.Done():
				close(stopCh)
				wg.Wait()
				return ctx.Err()
			default:
				time.Sleep(50 * time.Millisecond)
			}
		}
		close(stopCh)
		wg.Wait()
		return nil
	}
}

func (r *StatsRefresher) run(job refreshJob) {
	r.pending.Delete(job.userID + ":" + job.guildID)
	metrics.RefreshQueueLength.Set(float64(len(r.ch)))

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.stats.Refresh(ctx, job.userID, job.guildID); err != nil {
		logger.Warn("stats refresh failed",
			zap.String("user", job.userID),
			zap.String("guild", job.guildID),
			zap.Error(err))
		return
	}
	select {
	case r.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 非阻塞入队；队列满时丢弃并告警
func (r *StatsRefresher) Enqueue(userID, guildID string) {
	key := userID + ":" + guildID
	if _, loaded := r.pending.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	select {
	case r.ch <- refreshJob{userID: userID, guildID: guildID, enqAt: time.Now()}:
		metrics.RefreshQueueLength.Set(float64(len(r.ch)))
	default:
		r.pending.Delete(key)
		metrics.RefreshDropped.Inc()
		logger.Warn("stats refresh queue full, drop", zap.String("user", userID), zap.String("guild", guildID))
	}
}

// Metrics 返回入队到完成的耗时
func (r *StatsRefresher) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）
func (r *StatsRefresher) QueueLen() int { return len(r.ch) }
