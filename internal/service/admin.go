package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lanternko/Discordbot/config"
	"github.com/Lanternko/Discordbot/internal/repository"
	"github.com/Lanternko/Discordbot/pkg/logger"
)

// 重置范围
const (
	ResetScopeEmoji = "emoji"
	ResetScopeAll   = "all"

	ResetConfirmation = "CONFIRM"
)

// ResetRequest 服务器数据重置请求
type ResetRequest struct {
	GuildID      string `json:"guild_id" validate:"required,snowflake"`
	ActorID      string `json:"actor_id" validate:"required,snowflake"`
	IsGuildOwner bool   `json:"is_guild_owner"`
	Scope        string `json:"scope" validate:"required,oneof=emoji all"`
	Confirm      string `json:"confirm"`
}

// ResetResult 各表删除的行数
type ResetResult struct {
	Scope          string `json:"scope"`
	EmojiUsages    int64  `json:"emoji_usages"`
	Messages       int64  `json:"messages"`
	UserStats      int64  `json:"user_stats"`
	DeletedRecords int64  `json:"deleted_records"`
}

// AdminService 管理操作
type AdminService struct {
	db     *gorm.DB
	admins config.AdminConfig
	inv    Invalidator
}

func NewAdminService(db *gorm.DB, admins config.AdminConfig, inv Invalidator) *AdminService {
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &AdminService{db: db, admins: admins, inv: inv}
}

// CanReset 服务器所有者或配置中的管理员
func (s *AdminService) CanReset(actorID string, isGuildOwner bool) bool {
	return isGuildOwner || s.admins.IsAdmin(actorID)
}

// Reset 在一个事务内按服务器删除数据，提交后使全部缓存失效
func (s *AdminService) Reset(ctx context.Context, req ResetRequest) (*ResetResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !s.CanReset(req.ActorID, req.IsGuildOwner) {
		return nil, ErrPermissionDenied
	}
	if req.Confirm != ResetConfirmation {
		return nil, fmt.Errorf("%w: type %q to confirm", ErrConfirmationRequired, ResetConfirmation)
	}

	res := &ResetResult{Scope: req.Scope}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res.EmojiUsages, err = repository.NewEmojiUsageRepository(tx).DeleteByGuild(ctx, req.GuildID); err != nil {
			return err
		}
		if req.Scope != ResetScopeAll {
			return nil
		}
		if res.Messages, err = repository.NewMessageRepository(tx).DeleteByGuild(ctx, req.GuildID); err != nil {
			return err
		}
		res.UserStats, err = repository.NewUserStatsRepository(tx).DeleteByGuild(ctx, req.GuildID)
		return err
	})
	if err != nil {
		return nil, storageErr("reset", err)
	}
	res.DeletedRecords = res.EmojiUsages + res.Messages + res.UserStats

	s.inv.AllChanged(ctx)
	logger.Info("guild data reset",
		zap.String("guild", req.GuildID),
		zap.String("actor", req.ActorID),
		zap.String("scope", req.Scope),
		zap.Int64("deleted", res.DeletedRecords))
	return res, nil
}
