package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
)

const (
	postCost       = 1
	blogContentMax = 2000
	feedLimit      = 50
)

type BlogService struct {
	store repository.Store
}

func NewBlogService(store repository.Store) *BlogService {
	return &BlogService{store: store}
}

func blogContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content is empty")
	}
	if utf8.RuneCountInString(content) > blogContentMax {
		return "", invalid("content exceeds %d characters", blogContentMax)
	}
	return content, nil
}

// CreatePost 发帖花费 1 分，需要 blog 功能
func (s *BlogService) CreatePost(ctx context.Context, accountID int64, content string) (*model.Post, error) {
	content, err := blogContent(content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{AccountID: accountID, Content: content}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := requireFeature(ctx, tx.Features(), accountID, model.FeatureBlog); err != nil {
			return err
		}
		if _, err := NewLedger(tx).Debit(ctx, accountID, postCost, model.ReasonBlogPost); err != nil {
			return err
		}
		if err := tx.Blog().CreatePost(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Comment 评论免费
func (s *BlogService) Comment(ctx context.Context, accountID, postID int64, content string) (*model.Comment, error) {
	content, err := blogContent(content)
	if err != nil {
		return nil, err
	}
	if err := requireFeature(ctx, s.store.Features(), accountID, model.FeatureBlog); err != nil {
		return nil, err
	}
	if _, err := s.store.Blog().GetPost(ctx, postID); err != nil {
		return nil, notFoundAs(err, errors.PostNotFound, "load post")
	}

	comment := &model.Comment{PostID: postID, AccountID: accountID, Content: content}
	if err := s.store.Blog().CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// Feed 最新的帖子在前
func (s *BlogService) Feed(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > feedLimit {
		limit = feedLimit
	}
	return s.store.Blog().ListPosts(ctx, limit)
}
