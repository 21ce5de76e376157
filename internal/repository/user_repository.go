package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lanternko/Discordbot/internal/model"
)

// 排行榜排序方式
const (
	OrderByPoints   = "points"
	OrderByLevel    = "level"
	OrderByMessages = "messages"
)

type UserRepository interface {
	// Ensure 不存在则创建，存在则刷新用户名，返回最新行
	Ensure(ctx context.Context, id, username, displayName string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// Mutate 在事务内锁定该行并执行 fn，只写回积分相关列
	Mutate(ctx context.Context, id string, fn func(u *model.User) error) (*model.User, error)
	IncrementMessages(ctx context.Context, id string, at time.Time) error
	// SpendCoins 余额足够时原子扣减，返回是否扣减成功
	SpendCoins(ctx context.Context, id string, amount int64) (bool, error)
	Leaderboard(ctx context.Context, orderBy string, limit int) ([]*model.User, error)
	Rank(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Ensure(ctx context.Context, id, username, displayName string) (*model.User, error) {
	u := &model.User{DiscordID: id, Username: username, DisplayName: displayName, Level: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("discord_id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) Mutate(ctx context.Context, id string, fn func(u *model.User) error) (*model.User, error) {
	var out model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if !isSQLite(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("discord_id = ?", id).First(&out).Error; err != nil {
			return translate(err)
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Where("discord_id = ?", id).
			Updates(map[string]any{
				"total_points":  out.TotalPoints,
				"level":         out.Level,
				"coins":         out.Coins,
				"last_award_at": out.LastAwardAt,
				"updated_at":    time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) IncrementMessages(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("discord_id = ?", id).
		Updates(map[string]any{
			"total_messages":  gorm.Expr("total_messages + ?", 1),
			"last_message_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) SpendCoins(ctx context.Context, id string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("discord_id = ? AND coins >= ?", id, amount).
		Update("coins", gorm.Expr("coins - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, orderBy string, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.db.WithContext(ctx).Model(&model.User{})
	switch orderBy {
	case OrderByLevel:
		q = q.Order("level DESC").Order("total_points DESC")
	case OrderByMessages:
		q = q.Order("total_messages DESC")
	default:
		q = q.Order("total_points DESC")
	}
	var users []*model.User
	err := q.Order("discord_id").Limit(limit).Find(&users).Error
	return users, err
}

func (r *userRepository) Rank(ctx context.Context, id string) (int64, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	var higher int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("total_points > ?", u.TotalPoints).
		Count(&higher).Error; err != nil {
		return 0, err
	}
	return higher + 1, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}
