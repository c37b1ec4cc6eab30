package repository

import (
	"context"

	"gorm.io/gorm"

	"TaskQuest/internal/model"
)

type tagRepo struct {
	db *gorm.DB
}

func (r *tagRepo) Create(ctx context.Context, tag *model.Tag) error {
	return translate(r.db.WithContext(ctx).Create(tag).Error)
}

func (r *tagRepo) Get(ctx context.Context, id int64) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

func (r *tagRepo) List(ctx context.Context, accountID int64) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}

func (r *tagRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+taskTagsTable+" WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Tag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
