package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lanternko/Discordbot/internal/model"
)

type UserStatsRepository interface {
	Upsert(ctx context.Context, s *model.UserStats) error
	Get(ctx context.Context, userID, guildID string) (*model.UserStats, error)
	ListByGuild(ctx context.Context, guildID string) ([]*model.UserStats, error)
	DeleteByGuild(ctx context.Context, guildID string) (int64, error)
}

type userStatsRepository struct {
	db *gorm.DB
}

func NewUserStatsRepository(db *gorm.DB) UserStatsRepository { return &userStatsRepository{db: db} }

func (r *userStatsRepository) Upsert(ctx context.Context, s *model.UserStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_text_messages", "total_emoji_messages", "total_link_messages", "total_image_messages",
			"avg_text_length", "interaction_style", "last_calculated",
		}),
	}).Create(s).Error
}

func (r *userStatsRepository) Get(ctx context.Context, userID, guildID string) (*model.UserStats, error) {
	var s model.UserStats
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *userStatsRepository) ListByGuild(ctx context.Context, guildID string) ([]*model.UserStats, error) {
	var rows []*model.UserStats
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("user_id").Find(&rows).Error
	return rows, err
}

func (r *userStatsRepository) DeleteByGuild(ctx context.Context, guildID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&model.UserStats{})
	return res.RowsAffected, res.Error
}
