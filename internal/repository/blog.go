package repository

import (
	"context"

	"gorm.io/gorm"

	"TaskQuest/internal/model"
)

type blogRepo struct {
	db *gorm.DB
}

func (r *blogRepo) CreatePost(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit("Author", "Comments").Create(post).Error
}

func (r *blogRepo) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *blogRepo) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.id ASC") }).
		Preload("Comments.Author").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *blogRepo) CreateComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}
