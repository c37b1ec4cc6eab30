package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
)

// 每创建一个标签花费的积分
const tagCost = 1

type TagService struct {
	store repository.Store
}

func NewTagService(store repository.Store) *TagService {
	return &TagService{store: store}
}

func ownedTag(ctx context.Context, repo repository.TagRepository, accountID, tagID int64) (*model.Tag, error) {
	tag, err := repo.Get(ctx, tagID)
	if err != nil {
		return nil, notFoundAs(err, errors.TagNotFound, "load tag")
	}
	if tag.AccountID != accountID {
		return nil, errors.Unauthorized
	}
	return tag, nil
}

// Create 需要 add_tags 功能，花费 1 分，同名返回 TAG_EXISTS
func (s *TagService) Create(ctx context.Context, accountID int64, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("tag name is empty")
	}
	if utf8.RuneCountInString(name) > model.TagNameMaxLen {
		return nil, invalid("tag name exceeds %d characters", model.TagNameMaxLen)
	}
	if err := requireFeature(ctx, s.store.Features(), accountID, model.FeatureAddTags); err != nil {
		return nil, err
	}

	tag := &model.Tag{AccountID: accountID, Name: name}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Tags().Create(ctx, tag); err != nil {
			if stderrors.Is(err, repository.ErrDuplicate) {
				return errors.TagExists
			}
			return fmt.Errorf("create tag: %w", err)
		}
		_, err := NewLedger(tx).Debit(ctx, accountID, tagCost, model.ReasonTagCreated)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) List(ctx context.Context, accountID int64) ([]model.Tag, error) {
	return s.store.Tags().List(ctx, accountID)
}

func (s *TagService) Delete(ctx context.Context, accountID, tagID int64) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := ownedTag(ctx, tx.Tags(), accountID, tagID); err != nil {
			return err
		}
		if err := tx.Tags().Delete(ctx, tagID); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}
