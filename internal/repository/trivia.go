package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"TaskQuest/internal/model"
)

type triviaRepo struct {
	db *gorm.DB
}

func (r *triviaRepo) GetStreak(ctx context.Context, accountID int64) (*model.TriviaStreak, error) {
	var streak model.TriviaStreak
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&streak).Error; err != nil {
		return nil, translate(err)
	}
	return &streak, nil
}

func (r *triviaRepo) GetStreakForUpdate(ctx context.Context, accountID int64) (*model.TriviaStreak, error) {
	var streak model.TriviaStreak
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write, clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		First(&streak).Error
	if err != nil {
		return nil, translate(err)
	}
	return &streak, nil
}

func (r *triviaRepo) CreateStreak(ctx context.Context, streak *model.TriviaStreak) error {
	return translate(r.db.WithContext(ctx).Create(streak).Error)
}

func (r *triviaRepo) SaveStreak(ctx context.Context, streak *model.TriviaStreak) error {
	return r.db.WithContext(ctx).Model(&model.TriviaStreak{}).
		Where("id = ?", streak.ID).
		Updates(map[string]interface{}{
			"current_streak": streak.CurrentStreak,
			"max_streak":     streak.MaxStreak,
			"daily_count":    streak.DailyCount,
			"last_played_at": streak.LastPlayedAt,
		}).Error
}

func (r *triviaRepo) AppendHistory(ctx context.Context, entry *model.TriviaHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *triviaRepo) ListHistory(ctx context.Context, accountID int64, limit int) ([]model.TriviaHistory, error) {
	var entries []model.TriviaHistory
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("answered_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *triviaRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.db.WithContext(ctx).Table("trivia_streaks s").
		Select("a.username, s.max_streak").
		Joins("JOIN accounts a ON a.id = s.account_id AND a.deleted_at IS NULL").
		Order("s.max_streak DESC, a.username ASC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
