package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TaskQuest/internal/model"
)

type featureRepo struct {
	db *gorm.DB
}

func (r *featureRepo) List(ctx context.Context) ([]model.Feature, error) {
	var features []model.Feature
	err := r.db.WithContext(ctx).Order("cost ASC, id ASC").Find(&features).Error
	return features, err
}

func (r *featureRepo) Get(ctx context.Context, id int64) (*model.Feature, error) {
	var feature model.Feature
	if err := r.db.WithContext(ctx).First(&feature, id).Error; err != nil {
		return nil, translate(err)
	}
	return &feature, nil
}

func (r *featureRepo) GetByKey(ctx context.Context, key string) (*model.Feature, error) {
	var feature model.Feature
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&feature).Error; err != nil {
		return nil, translate(err)
	}
	return &feature, nil
}

func (r *featureRepo) EnsureSeeded(ctx context.Context, features []model.Feature) error {
	if len(features) == 0 {
		return nil
	}
	rows := make([]model.Feature, len(features))
	copy(rows, features)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&rows).Error
}

func (r *featureRepo) Owned(ctx context.Context, accountID int64) ([]model.Feature, error) {
	var features []model.Feature
	err := r.db.WithContext(ctx).
		Joins("JOIN account_features af ON af.feature_id = features.id").
		Where("af.account_id = ?", accountID).
		Order("features.id ASC").
		Find(&features).Error
	return features, err
}

func (r *featureRepo) IsOwned(ctx context.Context, accountID, featureID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AccountFeature{}).
		Where("account_id = ? AND feature_id = ?", accountID, featureID).
		Count(&count).Error
	return count > 0, err
}

func (r *featureRepo) HasKey(ctx context.Context, accountID int64, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AccountFeature{}).
		Joins("JOIN features f ON f.id = account_features.feature_id").
		Where("account_features.account_id = ? AND f.key = ?", accountID, key).
		Count(&count).Error
	return count > 0, err
}

func (r *featureRepo) Grant(ctx context.Context, accountID, featureID int64, source model.UnlockSource) error {
	return translate(r.db.WithContext(ctx).Create(&model.AccountFeature{
		AccountID: accountID,
		FeatureID: featureID,
		Source:    source,
	}).Error)
}
