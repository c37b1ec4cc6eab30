package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/metrics"
)

// UnlockService 商店购买、随机奖励与单位换算器解锁
type UnlockService struct {
	store repository.Store
	pick  func(n int) int
}

func NewUnlockService(store repository.Store) *UnlockService {
	return &UnlockService{store: store, pick: rand.IntN}
}

// PurchaseResult 购买后的账户状态
type PurchaseResult struct {
	Feature  model.Feature `json:"feature"`
	Balance  int64         `json:"balance"`
	Freezers int           `json:"trivia_freezers"`
}

// ConverterView 换算器题目与解锁状态
type ConverterView struct {
	Type     string `json:"type"`
	Question string `json:"question"`
	Unlocked bool   `json:"unlocked"`
}

func (s *UnlockService) HasFeature(ctx context.Context, accountID int64, key string) (bool, error) {
	return s.store.Features().HasKey(ctx, accountID, key)
}

// requireFeature 在事务内调用时需传入事务的仓储
func requireFeature(ctx context.Context, features repository.FeatureRepository, accountID int64, key string) error {
	ok, err := features.HasKey(ctx, accountID, key)
	if err != nil {
		return fmt.Errorf("check feature %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errors.FeatureRequired, key)
	}
	return nil
}

// Purchase 扣积分与记录拥有关系在同一事务内
func (s *UnlockService) Purchase(ctx context.Context, accountID, featureID int64) (*PurchaseResult, error) {
	var result PurchaseResult

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		feature, err := tx.Features().Get(ctx, featureID)
		if err != nil {
			return notFoundAs(err, errors.FeatureNotFound, "load feature")
		}
		result.Feature = *feature

		account, err := tx.Accounts().GetForUpdate(ctx, accountID)
		if err != nil {
			return notFoundAs(err, errors.AccountNotFound, "load account")
		}

		if !feature.Consumable {
			owned, err := tx.Features().IsOwned(ctx, accountID, featureID)
			if err != nil {
				return fmt.Errorf("check ownership: %w", err)
			}
			if owned {
				return errors.AlreadyOwned
			}
		}
		if feature.Key == model.FeatureTaskReminder && !account.HasEmail() {
			return errors.EmailRequired
		}

		result.Balance, err = NewLedger(tx).Debit(ctx, accountID, feature.Cost, model.ReasonPurchase)
		if err != nil {
			return err
		}

		result.Freezers = account.TriviaFreezers
		if feature.Consumable {
			if err := tx.Accounts().AddFreezers(ctx, accountID, 1); err != nil {
				return fmt.Errorf("add freezer: %w", err)
			}
			result.Freezers++
			return nil
		}

		if err := tx.Features().Grant(ctx, accountID, featureID, model.UnlockPurchased); err != nil {
			if stderrors.Is(err, repository.ErrDuplicate) {
				return errors.AlreadyOwned
			}
			return fmt.Errorf("grant feature: %w", err)
		}
		return nil
	})

	metrics.Get().RecordPurchase(ctx, result.Feature.Key, outcomeOf(err))
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Feature purchased",
		zap.Int64("account_id", accountID),
		zap.String("feature", result.Feature.Key),
		zap.Int64("cost", result.Feature.Cost),
		zap.Int64("balance_after", result.Balance),
	)
	return &result, nil
}

func outcomeOf(err error) string {
	var def errors.Definition
	switch {
	case err == nil:
		return "ok"
	case stderrors.As(err, &def):
		return strings.ToLower(def.Code)
	default:
		return "error"
	}
}

// GrantRandomUnowned 在未拥有的非消耗型功能中等概率挑一个；全部拥有时返回 nil
func (s *UnlockService) GrantRandomUnowned(ctx context.Context, accountID int64) (*model.Feature, error) {
	var granted *model.Feature
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		granted, err = s.grantRandomUnowned(ctx, tx, accountID)
		return err
	})
	return granted, err
}

func (s *UnlockService) grantRandomUnowned(ctx context.Context, tx repository.Store, accountID int64) (*model.Feature, error) {
	all, err := tx.Features().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	owned, err := tx.Features().Owned(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list owned features: %w", err)
	}

	have := make(map[int64]bool, len(owned))
	for _, f := range owned {
		have[f.ID] = true
	}
	var candidates []model.Feature
	for _, f := range all {
		if !f.Consumable && !have[f.ID] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	choice := candidates[s.pick(len(candidates))]
	if err := tx.Features().Grant(ctx, accountID, choice.ID, model.UnlockRewarded); err != nil {
		return nil, fmt.Errorf("grant feature: %w", err)
	}

	logger.Logger.Info("Feature granted as reward",
		zap.Int64("account_id", accountID),
		zap.String("feature", choice.Key),
	)
	return &choice, nil
}

// UnlockConverter 答对记录解锁（幂等）；答错扣 1 分（最低到 0）并返回 INCORRECT_ANSWER
func (s *UnlockService) UnlockConverter(ctx context.Context, accountID int64, converterType, answer string) (bool, error) {
	q, ok := model.LookupConverterQuestion(converterType)
	if !ok {
		return false, errors.ConverterTypeInvalid
	}

	if !strings.EqualFold(strings.TrimSpace(answer), q.Answer) {
		if _, err := NewLedger(s.store).Penalize(ctx, accountID, 1, model.ReasonConverterPenalty); err != nil {
			return false, err
		}
		return false, errors.IncorrectAnswer
	}

	if _, err := s.store.Accounts().Get(ctx, accountID); err != nil {
		return false, notFoundAs(err, errors.AccountNotFound, "load account")
	}
	created, err := s.store.Converters().Unlock(ctx, accountID, converterType)
	if err != nil {
		return false, fmt.Errorf("unlock converter: %w", err)
	}
	return created, nil
}

func (s *UnlockService) Catalog(ctx context.Context) ([]model.Feature, error) {
	return s.store.Features().List(ctx)
}

func (s *UnlockService) OwnedFeatures(ctx context.Context, accountID int64) ([]model.Feature, error) {
	return s.store.Features().Owned(ctx, accountID)
}

func (s *UnlockService) ConverterUnlocks(ctx context.Context, accountID int64) ([]model.ConverterUnlock, error) {
	return s.store.Converters().List(ctx, accountID)
}

// ConverterQuestions 题目列表，不包含答案
func (s *UnlockService) ConverterQuestions(ctx context.Context, accountID int64) ([]ConverterView, error) {
	unlocks, err := s.ConverterUnlocks(ctx, accountID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		unlocked[u.ConverterType] = true
	}

	out := make([]ConverterView, 0, len(model.ConverterQuestions))
	for _, q := range model.ConverterQuestions {
		out = append(out, ConverterView{Type: q.Type, Question: q.Question, Unlocked: unlocked[q.Type]})
	}
	return out, nil
}
