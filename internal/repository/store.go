package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore 基于 gorm 的 Store 实现
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Accounts() AccountRepository     { return &accountRepo{db: s.db} }
func (s *gormStore) Features() FeatureRepository     { return &featureRepo{db: s.db} }
func (s *gormStore) Converters() ConverterRepository { return &converterRepo{db: s.db} }
func (s *gormStore) Tasks() TaskRepository           { return &taskRepo{db: s.db} }
func (s *gormStore) Tags() TagRepository             { return &tagRepo{db: s.db} }
func (s *gormStore) Trivia() TriviaRepository        { return &triviaRepo{db: s.db} }
func (s *gormStore) Blog() BlogRepository            { return &blogRepo{db: s.db} }

// Transaction 嵌套调用时 gorm 使用 SAVEPOINT
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translate 把 gorm 的错误转换成仓储层的哨兵错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
