package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/analyzer"
	"github.com/Lanternko/Discordbot/internal/service"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// Processor 处理一条消息事件
type Processor interface {
	Process(ctx context.Context, ev service.MessageEvent) (*service.Outcome, error)
}

// Bot 网关会话到消息流水线的适配
type Bot struct {
	session  *discordgo.Session
	pipeline Processor
	timeout  time.Duration
	notice   bool
}

func New(cfg config.DiscordConfig, pipeline Processor) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is empty")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bot{session: session, pipeline: pipeline, timeout: timeout, notice: cfg.LevelUpNotice}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	return b.session.Open()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Info("discord ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	ev, ok := ToEvent(m.Message, selfID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	out, err := b.pipeline.Process(ctx, ev)
	if err != nil {
		report(ev, err)
		return
	}
	if b.notice && out.Award != nil && out.Award.LevelUp {
		msg := fmt.Sprintf("%s reached level %d and earned %d coins", m.Author.Mention(), out.Award.NewLevel, out.Award.CoinsEarned)
		if _, err := s.ChannelMessageSendReply(m.ChannelID, msg, m.Reference()); err != nil {
			logger.Warn("level up notice failed", zap.String("channel", m.ChannelID), zap.Error(err))
		}
	}
}

// report 输入校验失败只记日志，其余失败同时上报 Sentry
func report(ev service.MessageEvent, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		logger.Warn("message rejected", zap.String("message", ev.MessageID), zap.Error(err))
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("guild_id", ev.GuildID)
		scope.SetTag("channel_id", ev.ChannelID)
		scope.SetExtra("message_id", ev.MessageID)
		sentry.CaptureException(err)
	})
}

// ToEvent 转换网关消息；自身、机器人、系统、私信与交互回复不进入流水线
func ToEvent(m *discordgo.Message, selfID string) (service.MessageEvent, bool) {
	if m == nil || m.Author == nil || m.GuildID == "" {
		return service.MessageEvent{}, false
	}
	if m.Author.ID == selfID || m.Author.Bot || m.Author.System || m.WebhookID != "" {
		return service.MessageEvent{}, false
	}
	if m.Interaction != nil {
		return service.MessageEvent{}, false
	}
	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return service.MessageEvent{}, false
	}

	atts := make([]analyzer.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		atts = append(atts, analyzer.Attachment{ContentType: a.ContentType, Filename: a.Filename})
	}

	display := m.Author.GlobalName
	if m.Member != nil && m.Member.Nick != "" {
		display = m.Member.Nick
	}
	return service.MessageEvent{
		MessageID:   m.ID,
		UserID:      m.Author.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		Username:    m.Author.Username,
		DisplayName: display,
		Content:     m.Content,
		Attachments: atts,
		Timestamp:   m.Timestamp.UTC(),
	}, true
}
