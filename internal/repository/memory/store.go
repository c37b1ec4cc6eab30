// Package memory 内存版 Store，供单元测试使用。
package memory

import (
	"context"
	"sync"
	"time"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
)

type accountFeatureKey struct {
	accountID int64
	featureID int64
}

type taskTagKey struct {
	taskID int64
	tagID  int64
}

type state struct {
	accounts        map[int64]model.Account
	transactions    []model.PointTransaction
	features        map[int64]model.Feature
	accountFeatures map[accountFeatureKey]model.AccountFeature
	converters      []model.ConverterUnlock
	tasks           map[int64]model.Task
	tags            map[int64]model.Tag
	taskTags        map[taskTagKey]struct{}
	streaks         map[int64]model.TriviaStreak // key: account_id
	history         []model.TriviaHistory
	posts           map[int64]model.Post
	comments        []model.Comment
	seq             int64
}

func newState() *state {
	return &state{
		accounts:        make(map[int64]model.Account),
		features:        make(map[int64]model.Feature),
		accountFeatures: make(map[accountFeatureKey]model.AccountFeature),
		tasks:           make(map[int64]model.Task),
		tags:            make(map[int64]model.Tag),
		taskTags:        make(map[taskTagKey]struct{}),
		streaks:         make(map[int64]model.TriviaStreak),
		posts:           make(map[int64]model.Post),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:        make(map[int64]model.Account, len(s.accounts)),
		transactions:    append([]model.PointTransaction(nil), s.transactions...),
		features:        make(map[int64]model.Feature, len(s.features)),
		accountFeatures: make(map[accountFeatureKey]model.AccountFeature, len(s.accountFeatures)),
		converters:      append([]model.ConverterUnlock(nil), s.converters...),
		tasks:           make(map[int64]model.Task, len(s.tasks)),
		tags:            make(map[int64]model.Tag, len(s.tags)),
		taskTags:        make(map[taskTagKey]struct{}, len(s.taskTags)),
		streaks:         make(map[int64]model.TriviaStreak, len(s.streaks)),
		history:         append([]model.TriviaHistory(nil), s.history...),
		posts:           make(map[int64]model.Post, len(s.posts)),
		comments:        append([]model.Comment(nil), s.comments...),
		seq:             s.seq,
	}
	for k, v := range s.accounts {
		if v.Email != nil {
			email := *v.Email
			v.Email = &email
		}
		c.accounts[k] = v
	}
	for k, v := range s.features {
		c.features[k] = v
	}
	for k, v := range s.accountFeatures {
		c.accountFeatures[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k := range s.taskTags {
		c.taskTags[k] = struct{}{}
	}
	for k, v := range s.streaks {
		c.streaks[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store 所有操作串行执行；Transaction 期间持有同一把锁，失败时恢复快照
type Store struct {
	mu   *sync.Mutex
	root **state
	inTx bool
	now  func() time.Time
}

func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, root: &st, now: time.Now}
}

// WithClock 替换创建时间使用的时钟
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) st() *state { return *s.root }

func (s *Store) Accounts() repository.AccountRepository     { return &accountRepo{s} }
func (s *Store) Features() repository.FeatureRepository     { return &featureRepo{s} }
func (s *Store) Converters() repository.ConverterRepository { return &converterRepo{s} }
func (s *Store) Tasks() repository.TaskRepository           { return &taskRepo{s} }
func (s *Store) Tags() repository.TagRepository             { return &tagRepo{s} }
func (s *Store) Trivia() repository.TriviaRepository        { return &triviaRepo{s} }
func (s *Store) Blog() repository.BlogRepository            { return &blogRepo{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		// 嵌套事务相当于 SAVEPOINT
		snapshot := s.st().clone()
		if err := fn(s); err != nil {
			*s.root = snapshot
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st().clone()
	tx := &Store{mu: s.mu, root: s.root, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.root = snapshot
		return err
	}
	return nil
}
