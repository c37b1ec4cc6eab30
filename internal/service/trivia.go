package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TaskQuest/internal/cache"
	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/metrics"
	"TaskQuest/pkg/trivia"
)

const (
	triviaFetchAttempts  = 3
	triviaLockTTL        = 30 * time.Second
	streakRewardFeature  = 100
	defaultLeaderboardSz = 10
)

// TriviaSessionStore 每个账户当前的待答题目
type TriviaSessionStore interface {
	Save(ctx context.Context, accountID int64, q *cache.PendingQuestion) error
	Load(ctx context.Context, accountID int64) (*cache.PendingQuestion, error)
	// MarkGraded 仅当 questionID 仍是当前未判分的题目时成功
	MarkGraded(ctx context.Context, accountID int64, questionID string) (bool, error)
	Reopen(ctx context.Context, accountID int64, questionID string) error
}

// Locker 跨进程互斥
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// RewardForStreak 连胜奖励，精确匹配档位；100 连胜不加分但随机赠送一个功能
func RewardForStreak(streak int) int64 {
	switch streak {
	case 3:
		return 3
	case 10:
		return 15
	case 20:
		return 30
	case streakRewardFeature:
		return 0
	default:
		return 1
	}
}

type TriviaService struct {
	store    repository.Store
	unlock   *UnlockService
	sessions TriviaSessionStore
	locker   Locker
	provider trivia.Provider
	loc      *time.Location
	now      func() time.Time
	shuffle  func([]string)
}

func NewTriviaService(store repository.Store, unlock *UnlockService, sessions TriviaSessionStore, locker Locker, provider trivia.Provider, loc *time.Location) *TriviaService {
	if loc == nil {
		loc = time.Local
	}
	return &TriviaService{
		store:    store,
		unlock:   unlock,
		sessions: sessions,
		locker:   locker,
		provider: provider,
		loc:      loc,
		now:      time.Now,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

// QuestionView 下发给客户端的题目，不含答案
type QuestionView struct {
	Question   string   `json:"question"`
	Choices    []string `json:"choices"`
	DailyCount int      `json:"daily_count"`
	Remaining  int      `json:"remaining"`
}

// AnswerResult 判分结果
type AnswerResult struct {
	GrantedFeature *model.Feature `json:"granted_feature,omitempty"`
	CorrectAnswer  string         `json:"correct_answer"`
	PointsDelta    int64          `json:"points_delta"`
	Balance        int64          `json:"balance"`
	CurrentStreak  int            `json:"current_streak"`
	MaxStreak      int            `json:"max_streak"`
	DailyCount     int            `json:"daily_count"`
	FreezersLeft   int            `json:"trivia_freezers"`
	Correct        bool           `json:"correct"`
	FreezerUsed    bool           `json:"freezer_used"`
}

// TriviaStatus 当前连胜与今日进度
type TriviaStatus struct {
	Pending       *QuestionView `json:"pending,omitempty"`
	CurrentStreak int           `json:"current_streak"`
	MaxStreak     int           `json:"max_streak"`
	DailyCount    int           `json:"daily_count"`
	DailyLimit    int           `json:"daily_limit"`
	Freezers      int           `json:"trivia_freezers"`
}

func (s *TriviaService) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// streakFor 首次出题时创建连胜记录
func (s *TriviaService) streakFor(ctx context.Context, repo repository.TriviaRepository, accountID int64, forUpdate bool) (*model.TriviaStreak, error) {
	get := repo.GetStreak
	if forUpdate {
		get = repo.GetStreakForUpdate
	}

	streak, err := get(ctx, accountID)
	if err == nil {
		return streak, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load trivia streak: %w", err)
	}

	streak = &model.TriviaStreak{AccountID: accountID}
	if err := repo.CreateStreak(ctx, streak); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return get(ctx, accountID)
		}
		return nil, fmt.Errorf("create trivia streak: %w", err)
	}
	return streak, nil
}

// dailyCount 最近一次作答不在今天（业务时区）时计数视为 0
func (s *TriviaService) dailyCount(streak *model.TriviaStreak) int {
	if streak.LastPlayedAt == nil || streak.LastPlayedAt.In(s.loc).Format(time.DateOnly) != s.today() {
		return 0
	}
	return streak.DailyCount
}

// lock 出题与判分共用同一把账户锁
func (s *TriviaService) lock(ctx context.Context, accountID int64) (func(), error) {
	key := "trivia:" + strconv.FormatInt(accountID, 10)
	token, ok, err := s.locker.TryLock(ctx, key, triviaLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.AnswerInProgress
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Logger.Warn("Failed to release trivia lock", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}, nil
}

// NextQuestion 拉取新题并覆盖之前未作答的题目
func (s *TriviaService) NextQuestion(ctx context.Context, accountID int64) (*QuestionView, error) {
	if _, err := s.store.Accounts().Get(ctx, accountID); err != nil {
		return nil, notFoundAs(err, errors.AccountNotFound, "load account")
	}

	release, err := s.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	streak, err := s.streakFor(ctx, s.store.Trivia(), accountID, false)
	if err != nil {
		return nil, err
	}
	daily := s.dailyCount(streak)
	if daily >= model.TriviaDailyLimit {
		return nil, errors.DailyLimitReached
	}

	q, err := s.fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}

	choices := q.Choices()
	s.shuffle(choices)
	pending := &cache.PendingQuestion{
		ID:          uuid.NewString(),
		PresentedAt: s.now(),
		Question:    q.Text,
		Correct:     q.Correct,
		Choices:     choices,
	}
	if err := s.sessions.Save(ctx, accountID, pending); err != nil {
		return nil, fmt.Errorf("save pending question: %w", err)
	}

	return &QuestionView{
		Question:   q.Text,
		Choices:    choices,
		DailyCount: daily,
		Remaining:  model.TriviaDailyLimit - daily,
	}, nil
}

func (s *TriviaService) fetch(ctx context.Context, accountID int64) (*trivia.Question, error) {
	for attempt := 1; attempt <= triviaFetchAttempts; attempt++ {
		q, err := s.provider.Fetch(ctx)
		if err == nil && q != nil {
			return q, nil
		}
		logger.Logger.Warn("Trivia provider returned no question",
			zap.Int64("account_id", accountID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.ProviderUnavailable
}

// SubmitAnswer 判分并在一个事务里更新连胜、积分、冻结卡与历史
func (s *TriviaService) SubmitAnswer(ctx context.Context, accountID int64, given string) (*AnswerResult, error) {
	release, err := s.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	pending, err := s.sessions.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Graded {
		return nil, errors.NoPendingQuestion
	}
	// 先占住题目再记分，同一道题最多计分一次
	claimed, err := s.sessions.MarkGraded(ctx, accountID, pending.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, errors.NoPendingQuestion
	}

	given = strings.TrimSpace(given)
	result := &AnswerResult{
		CorrectAnswer: pending.Correct,
		Correct:       strings.EqualFold(given, pending.Correct),
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		ledger := NewLedger(tx)

		streak, err := s.streakFor(ctx, tx.Trivia(), accountID, true)
		if err != nil {
			return err
		}
		now := s.now()
		streak.DailyCount = s.dailyCount(streak) + 1
		streak.LastPlayedAt = &now

		if result.Correct {
			streak.CurrentStreak++
			streak.MaxStreak = max(streak.MaxStreak, streak.CurrentStreak)

			reward := RewardForStreak(streak.CurrentStreak)
			if _, err := ledger.Credit(ctx, accountID, reward, model.ReasonTriviaReward); err != nil {
				return err
			}
			result.PointsDelta = reward

			if streak.CurrentStreak == streakRewardFeature {
				result.GrantedFeature, err = s.unlock.grantRandomUnowned(ctx, tx, accountID)
				if err != nil {
					return err
				}
			}
		} else {
			used, err := tx.Accounts().ConsumeFreezer(ctx, accountID)
			if err != nil {
				return fmt.Errorf("consume freezer: %w", err)
			}
			result.FreezerUsed = used
			if !used {
				streak.CurrentStreak = 0
				taken, err := ledger.Penalize(ctx, accountID, 1, model.ReasonTriviaPenalty)
				if err != nil {
					return err
				}
				result.PointsDelta = -taken
			}
		}

		if err := tx.Trivia().SaveStreak(ctx, streak); err != nil {
			return fmt.Errorf("save trivia streak: %w", err)
		}
		if err := tx.Trivia().AppendHistory(ctx, &model.TriviaHistory{
			AccountID:     accountID,
			Question:      pending.Question,
			GivenAnswer:   given,
			CorrectAnswer: pending.Correct,
			WasCorrect:    result.Correct,
			PointsDelta:   result.PointsDelta,
			FreezerUsed:   result.FreezerUsed,
			AnsweredAt:    now,
		}); err != nil {
			return fmt.Errorf("append trivia history: %w", err)
		}

		account, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return notFoundAs(err, errors.AccountNotFound, "load account")
		}
		result.Balance = account.Points
		result.FreezersLeft = account.TriviaFreezers
		result.CurrentStreak = streak.CurrentStreak
		result.MaxStreak = streak.MaxStreak
		result.DailyCount = streak.DailyCount
		return nil
	})
	if err != nil {
		if rerr := s.sessions.Reopen(context.WithoutCancel(ctx), accountID, pending.ID); rerr != nil {
			logger.Logger.Error("Failed to reopen trivia question", zap.Int64("account_id", accountID), zap.Error(rerr))
		}
		return nil, err
	}

	metrics.Get().RecordTriviaAnswer(ctx, result.Correct)

	logger.Logger.Info("Trivia answer graded",
		zap.Int64("account_id", accountID),
		zap.Bool("correct", result.Correct),
		zap.Int("streak", result.CurrentStreak),
		zap.Int64("points_delta", result.PointsDelta),
		zap.Bool("freezer_used", result.FreezerUsed),
	)
	return result, nil
}

func (s *TriviaService) Status(ctx context.Context, accountID int64) (*TriviaStatus, error) {
	account, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return nil, notFoundAs(err, errors.AccountNotFound, "load account")
	}

	status := &TriviaStatus{DailyLimit: model.TriviaDailyLimit, Freezers: account.TriviaFreezers}
	streak, err := s.store.Trivia().GetStreak(ctx, accountID)
	switch {
	case err == nil:
		status.CurrentStreak = streak.CurrentStreak
		status.MaxStreak = streak.MaxStreak
		status.DailyCount = s.dailyCount(streak)
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load trivia streak: %w", err)
	}

	pending, err := s.sessions.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending != nil && !pending.Graded {
		status.Pending = &QuestionView{
			Question:   pending.Question,
			Choices:    pending.Choices,
			DailyCount: status.DailyCount,
			Remaining:  model.TriviaDailyLimit - status.DailyCount,
		}
	}
	return status, nil
}

func (s *TriviaService) History(ctx context.Context, accountID int64, limit int) ([]model.TriviaHistory, error) {
	return s.store.Trivia().ListHistory(ctx, accountID, limit)
}

func (s *TriviaService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSz
	}
	return s.store.Trivia().Leaderboard(ctx, limit)
}
