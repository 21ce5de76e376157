package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/cache"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

var contents = []string{
	"good morning everyone, how was the weekend?",
	"lol 😂😂",
	"check this out https://example.com/post/42",
	"<:pepe_happy:123456789012345678> nice",
	"ok",
	"🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥",
	"the patch notes are finally out, the new map looks great :sparkles:",
	"",
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	ctx := context.Background()
	N := envInt("N", 20000)
	USERS := envInt("USERS", 200)
	CONC := envInt("CONC", 8)
	READS := envInt("READS", 500)

	db := must(database.OpenMemory("pipelinebench"))
	if os.Getenv("USE_CONFIG_DB") != "" {
		cfg := must(config.Load())
		db = must(database.InitDB(cfg))
		if err := database.Migrate(db); err != nil {
			panic(err)
		}
	}

	var statsCache *cache.StatsCache
	var inv service.Invalidator
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		statsCache = cache.NewStatsCache(redis.NewClient(&redis.Options{Addr: addr}), "pipelinebench")
		inv = statsCache
	}

	pointsCfg := config.PointsConfig{PerMessage: 10, Cooldown: 30 * time.Second, PerLevel: 100, MaxLevel: 100, LevelUpBonusCoins: 25}
	users := repository.NewUserRepository(db)
	messages := repository.NewMessageRepository(db)
	emojis := repository.NewEmojiUsageRepository(db)
	points := service.NewPointsService(users, pointsCfg, statsCache, time.Minute)
	emojiStats := service.NewEmojiStatsService(emojis, statsCache, time.Minute)
	userStats := service.NewUserStatsService(users, messages, repository.NewUserStatsRepository(db), statsCache, time.Minute, pointsCfg.PerLevel)

	refresher := service.NewStatsRefresher(userStats, 4096, 5*time.Second)
	stop := refresher.Start(4)
	pipeline := service.NewMessagePipeline(service.PipelineDeps{
		Users:       users,
		Messages:    messages,
		Points:      points,
		Emojis:      emojiStats,
		Dedup:       service.NewDedupWindow(time.Minute),
		Refresher:   refresher,
		Invalidator: inv,
		Breaker:     service.NewStorageBreaker("bench", 50, time.Second),
	}, config.FeaturesConfig{EmojiStats: true, ContentAnalysis: true}, pointsCfg, 5*time.Second)

	// 入队到重算完成的耗时
	refreshRecs := make([]time.Duration, 0, N)
	doneRefresh := make(chan struct{})
	go func() {
		for {
			select {
			case d := <-refresher.Metrics():
				refreshRecs = append(refreshRecs, d)
			case <-doneRefresh:
				return
			}
		}
	}()

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := refresher.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	base := time.Now().UTC().Add(-time.Duration(N) * time.Second)
	events := make([]service.MessageEvent, N)
	rnd := rand.New(rand.NewSource(1))
	for i := range events {
		events[i] = service.MessageEvent{
			MessageID: strconv.FormatInt(400000000000000000+int64(i), 10),
			UserID:    strconv.FormatInt(100000000000000000+int64(rnd.Intn(USERS)), 10),
			GuildID:   "200000000000000001",
			ChannelID: "300000000000000001",
			Username:  "bench",
			Content:   contents[rnd.Intn(len(contents))],
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if rnd.Intn(10) == 0 {
			events[i].Attachments = []analyzer.Attachment{{ContentType: "image/png", Filename: "shot.png"}}
		}
	}
	// 10% 重投
	redeliver := N / 10

	var (
		mu       sync.Mutex
		lat      = make([]time.Duration, 0, N+redeliver)
		outcomes = make(map[service.Status]int)
		failures int
	)
	feed := make(chan service.MessageEvent, N+redeliver)
	for _, ev := range events {
		feed <- ev
	}
	for i := 0; i < redeliver; i++ {
		feed <- events[rnd.Intn(N)]
	}
	close(feed)

	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range feed {
				st := time.Now()
				out, err := pipeline.Process(ctx, ev)
				d := time.Since(st)
				mu.Lock()
				lat = append(lat, d)
				outcomes[out.Status]++
				if err != nil {
					failures++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	ingestDur := time.Since(t0)
	close(quitSample)

	drainStart := time.Now()
	_ = stop(ctx)
	drainDur := time.Since(drainStart)
	close(doneRefresh)

	// 读路径
	if statsCache != nil {
		statsCache.ResetCounters()
	}
	readRecs := make([]time.Duration, 0, READS)
	for i := 0; i < READS; i++ {
		st := time.Now()
		_, _ = points.Leaderboard(ctx, repository.OrderByPoints, 10)
		_, _ = emojiStats.Leaderboard(ctx, "200000000000000001", repository.EmojiOrderTotal, 10)
		readRecs = append(readRecs, time.Since(st))
	}

	total := N + redeliver
	fmt.Printf("N=%d, redeliver=%d, USERS=%d, CONC=%d\n", N, redeliver, USERS, CONC)
	fmt.Printf("Ingest total: %v, per msg: %v, p50: %v, p95: %v, p99: %v\n",
		ingestDur, ingestDur/time.Duration(total), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Outcomes: processed=%d duplicate=%d skipped=%d failed=%d errors=%d\n",
		outcomes[service.StatusProcessed], outcomes[service.StatusDuplicate], outcomes[service.StatusSkipped], outcomes[service.StatusFailed], failures)
	if len(refreshRecs) > 0 {
		fmt.Printf("Stats refresh landing: samples=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v\n",
			len(refreshRecs), pct(refreshRecs, 0.50), pct(refreshRecs, 0.95), pct(refreshRecs, 0.99), maxQ, drainDur)
	}
	fmt.Printf("Leaderboard reads x%d: p50=%v, p95=%v, p99=%v\n", READS, pct(readRecs, 0.50), pct(readRecs, 0.95), pct(readRecs, 0.99))
	if statsCache != nil {
		c := statsCache.Counters()
		fmt.Printf("Cache: hits=%d misses=%d errors=%d\n", c.Hits, c.Misses, c.Errors)
	}
}
