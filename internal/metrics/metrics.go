package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// 按处理结果统计消息数
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discordbot_messages_processed_total",
			Help: "Messages handled by the pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discordbot_points_awarded_total",
		Help: "Points credited through message awards",
	})

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discordbot_level_ups_total",
		Help: "Level increases caused by awards or admin adjustments",
	})

	EmojisRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discordbot_emojis_recorded_total",
			Help: "Emoji occurrences recorded, by kind",
		},
		[]string{"kind"},
	)

	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "discordbot_pipeline_duration_seconds",
		Help:    "End to end processing time of a single message",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	RefreshQueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "discordbot_stats_refresh_queue_length",
		Help: "Pending aggregate refresh jobs",
	})

	RefreshDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discordbot_stats_refresh_dropped_total",
		Help: "Aggregate refresh jobs dropped because the queue was full",
	})

	// 0 closed, 1 half-open, 2 open
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discordbot_storage_breaker_state",
			Help: "Storage circuit breaker state",
		},
		[]string{"name"},
	)

	RetentionPurged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discordbot_retention_purged_total",
			Help: "Rows removed by the retention worker",
		},
		[]string{"table"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discordbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discordbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesProcessed,
		PointsAwarded,
		LevelUps,
		EmojisRecorded,
		PipelineDuration,
		RefreshQueueLength,
		RefreshDropped,
		BreakerState,
		RetentionPurged,
		HTTPRequests,
		HTTPDuration,
	)
}
