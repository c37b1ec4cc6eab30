package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TaskQuest/internal/model"
)

type converterRepo struct {
	db *gorm.DB
}

func (r *converterRepo) List(ctx context.Context, accountID int64) ([]model.ConverterUnlock, error) {
	var unlocks []model.ConverterUnlock
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&unlocks).Error
	return unlocks, err
}

func (r *converterRepo) Unlock(ctx context.Context, accountID int64, converterType string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ConverterUnlock{AccountID: accountID, ConverterType: converterType})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
