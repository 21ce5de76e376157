package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/metrics"
	"github.com/Lanternko/Discordbot/internal/model"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

var tracer = otel.Tracer("github.com/Lanternko/Discordbot/internal/service")

// MessageEvent 一条来自平台的消息
type MessageEvent struct {
	MessageID   string                `json:"message_id" validate:"required,snowflake"`
	UserID      string                `json:"user_id" validate:"required,snowflake"`
	GuildID     string                `json:"guild_id" validate:"required,snowflake"`
	ChannelID   string                `json:"channel_id" validate:"required,snowflake"`
	Username    string                `json:"username" validate:"max=100"`
	DisplayName string                `json:"display_name" validate:"max=100"`
	Content     string                `json:"content" validate:"max=4000"`
	Attachments []analyzer.Attachment `json:"attachments"`
	IsBot       bool                  `json:"is_bot"`
	IsSystem    bool                  `json:"is_system"`
	Timestamp   time.Time             `json:"timestamp"`
}

// Status 单条消息的处理结果
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDuplicate Status = "duplicate"
	StatusSkipped   Status = "skipped"
	StatusInvalid   Status = "invalid"
	StatusFailed    Status = "failed"
)

// Outcome 每条消息都会得到一个可区分的结果
type Outcome struct {
	Status    Status            `json:"status"`
	MessageID string            `json:"message_id"`
	Profile   *analyzer.Profile `json:"profile,omitempty"`
	Verdict   analyzer.Verdict  `json:"verdict"`
	Award     *AwardResult      `json:"award,omitempty"`
	Emojis    int               `json:"emojis"`
	Recorded  bool              `json:"recorded"`
}

// PipelineDeps 流水线依赖
type PipelineDeps struct {
	Users       repository.UserRepository
	Messages    repository.MessageRepository
	Points      *PointsService
	Emojis      *EmojiStatsService
	Dedup       Deduper
	Refresher   Refresher
	Invalidator Invalidator
	Breaker     *gobreaker.CircuitBreaker
}

// MessagePipeline 分类、判定、入账、表情统计、记录
type MessagePipeline struct {
	deps     PipelineDeps
	features config.FeaturesConfig
	timeout  time.Duration
	gate     analyzer.Gate
	now      func() time.Time
}

func NewMessagePipeline(deps PipelineDeps, features config.FeaturesConfig, points config.PointsConfig, storageTimeout time.Duration) *MessagePipeline {
	if deps.Dedup == nil {
		deps.Dedup = NewDedupWindow(60 * time.Second)
	}
	if deps.Invalidator == nil {
		deps.Invalidator = nopInvalidator{}
	}
	if deps.Breaker == nil {
		deps.Breaker = NewStorageBreaker("storage", 5, 30*time.Second)
	}
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	return &MessagePipeline{
		deps:     deps,
		features: features,
		timeout:  storageTimeout,
		gate:     analyzer.NewGate(points.Cooldown),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Process 处理一条消息。
// 去重窗口在处理前占位，失败时不释放，同一条消息最多处理一次。
func (p *MessagePipeline) Process(ctx context.Context, ev MessageEvent) (out *Outcome, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("message.id", ev.MessageID),
		attribute.String("guild.id", ev.GuildID),
	))
	out = &Outcome{MessageID: ev.MessageID}
	defer func() {
		metrics.MessagesProcessed.WithLabelValues(string(out.Status)).Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("outcome", string(out.Status)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validateStruct(ev); err != nil {
		out.Status = StatusInvalid
		return out, err
	}
	if ev.IsBot || ev.IsSystem {
		out.Status = StatusSkipped
		return out, nil
	}
	if !p.deps.Dedup.Claim(ev.MessageID) {
		out.Status = StatusDuplicate
		return out, nil
	}

	profile := analyzer.Classify(ev.Content, ev.Attachments)
	out.Profile = &profile

	now := ev.Timestamp.UTC()
	if ev.Timestamp.IsZero() {
		now = p.now()
	}

	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err = p.deps.Breaker.Execute(func() (interface{}, error) {
		return nil, p.store(sctx, ev, profile, now, out)
	})
	if err != nil {
		err = breakerErr(err)
		out.Status = StatusFailed
		logger.Error("message processing failed",
			zap.String("message", ev.MessageID),
			zap.String("user", ev.UserID),
			zap.String("guild", ev.GuildID),
			zap.Error(err))
		return out, err
	}
	if out.Status == StatusDuplicate {
		return out, nil
	}

	out.Status = StatusProcessed
	if out.Recorded {
		p.deps.Invalidator.GuildChanged(ctx, ev.GuildID)
		if p.deps.Refresher != nil {
			p.deps.Refresher.Enqueue(ev.UserID, ev.GuildID)
		}
	}
	return out, nil
}

func (p *MessagePipeline) store(ctx context.Context, ev MessageEvent, profile analyzer.Profile, now time.Time, out *Outcome) error {
	user, err := p.deps.Users.Ensure(ctx, ev.UserID, ev.Username, ev.DisplayName)
	if err != nil {
		return storageErr("ensure_user", err)
	}

	// 去重窗口之外的重投由消息记录兜底
	if p.features.ContentAnalysis {
		exists, err := p.deps.Messages.Exists(ctx, ev.MessageID)
		if err != nil {
			return storageErr("message_exists", err)
		}
		if exists {
			out.Status = StatusDuplicate
			return nil
		}
	}

	out.Verdict = p.gate.Evaluate(analyzer.GateInput{
		Profile:     profile,
		LastAwardAt: user.LastAwardAt,
		Now:         now,
		IsBot:       ev.IsBot,
	})
	if out.Verdict.Eligible {
		award, err := p.deps.Points.AwardMessage(ctx, ev.UserID, ev.GuildID, profile, now)
		if err != nil {
			return err
		}
		out.Award = award
		if !award.Success {
			out.Verdict = analyzer.Verdict{Eligible: false, Reasons: []string{award.Reason}}
		}
	}

	if err := p.deps.Points.RecordActivity(ctx, ev.UserID, now); err != nil {
		return err
	}

	if p.features.EmojiStats && profile.HasEmojis {
		if err := p.deps.Emojis.RecordUsage(ctx, ev.UserID, ev.GuildID, profile.Emojis, now); err != nil {
			return err
		}
		out.Emojis = profile.EmojiCount
	}

	if p.features.ContentAnalysis {
		var awarded int64
		if out.Award != nil && out.Award.Success {
			awarded = out.Award.PointsAwarded
		}
		created, err := p.deps.Messages.CreateOnce(ctx, &model.Message{
			ID:            uuid.New().String(),
			DiscordID:     ev.MessageID,
			UserID:        ev.UserID,
			GuildID:       ev.GuildID,
			ChannelID:     ev.ChannelID,
			MessageType:   string(profile.MessageType),
			TextLength:    profile.TextLength,
			EmojiCount:    profile.EmojiCount,
			LinkCount:     profile.LinkCount,
			ImageCount:    profile.ImageCount,
			PointsAwarded: awarded,
			CreatedAt:     now,
		})
		if err != nil {
			return storageErr("record_message", err)
		}
		out.Recorded = created
	}
	return nil
}
