package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/logger"
	"TaskQuest/pkg/metrics"
)

// Ledger 积分账本。余额变动与流水在同一事务内写入
type Ledger struct {
	store repository.Store
}

func NewLedger(store repository.Store) *Ledger {
	return &Ledger{store: store}
}

// WithStore 绑定到事务内的 Store，后续读取能看到本事务的变动
func (l *Ledger) WithStore(tx repository.Store) *Ledger {
	return &Ledger{store: tx}
}

// Credit 入账，返回新余额
func (l *Ledger) Credit(ctx context.Context, accountID, amount int64, reason model.PointReason) (int64, error) {
	if amount < 0 {
		return 0, errors.InvalidAmount
	}
	if amount == 0 {
		return l.Balance(ctx, accountID)
	}

	var balance int64
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		balance, err = tx.Accounts().AddPoints(ctx, accountID, amount)
		if err != nil {
			return notFoundAs(err, errors.AccountNotFound, "credit points")
		}
		return l.journal(ctx, tx, accountID, model.TransactionCredit, reason, amount, balance)
	})
	if err != nil {
		return 0, err
	}

	metrics.Get().RecordCredit(ctx, amount)
	logger.Logger.Debug("Points credited",
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.String("reason", string(reason)),
		zap.Int64("balance_after", balance),
	)
	return balance, nil
}

// Debit 余额不足时返回 INSUFFICIENT_FUNDS，余额不变
func (l *Ledger) Debit(ctx context.Context, accountID, amount int64, reason model.PointReason) (int64, error) {
	balance, ok, err := l.spend(ctx, accountID, amount, reason)
	if err != nil {
		return 0, err
	}
	if !ok {
		return balance, errors.InsufficientFunds
	}
	return balance, nil
}

// TrySpend 余额不足不是错误
func (l *Ledger) TrySpend(ctx context.Context, accountID, amount int64, reason model.PointReason) (bool, error) {
	_, ok, err := l.spend(ctx, accountID, amount, reason)
	return ok, err
}

func (l *Ledger) spend(ctx context.Context, accountID, amount int64, reason model.PointReason) (int64, bool, error) {
	if amount < 0 {
		return 0, false, errors.InvalidAmount
	}

	var (
		balance int64
		ok      bool
	)
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		balance, ok, err = tx.Accounts().DeductPoints(ctx, accountID, amount)
		if err != nil {
			return notFoundAs(err, errors.AccountNotFound, "debit points")
		}
		if !ok || amount == 0 {
			return nil
		}
		return l.journal(ctx, tx, accountID, model.TransactionDebit, reason, amount, balance)
	})
	if err != nil {
		return 0, false, err
	}

	if ok && amount > 0 {
		metrics.Get().RecordDebit(ctx, amount, string(reason))
	}
	return balance, ok, nil
}

// Penalize 扣减但余额最低为 0，返回实际扣掉的积分
func (l *Ledger) Penalize(ctx context.Context, accountID, amount int64, reason model.PointReason) (int64, error) {
	if amount < 0 {
		return 0, errors.InvalidAmount
	}

	var taken int64
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().GetForUpdate(ctx, accountID)
		if err != nil {
			return notFoundAs(err, errors.AccountNotFound, "load account")
		}

		taken = min(account.Points, amount)
		if taken == 0 {
			return nil
		}
		balance, ok, err := tx.Accounts().DeductPoints(ctx, accountID, taken)
		if err != nil {
			return fmt.Errorf("penalize points: %w", err)
		}
		if !ok {
			// 行锁之下不应发生
			return fmt.Errorf("penalize points: balance changed under lock")
		}
		return l.journal(ctx, tx, accountID, model.TransactionDebit, reason, taken, balance)
	})
	if err != nil {
		return 0, err
	}

	if taken > 0 {
		metrics.Get().RecordDebit(ctx, taken, string(reason))
	}
	return taken, nil
}

func (l *Ledger) Balance(ctx context.Context, accountID int64) (int64, error) {
	account, err := l.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return 0, notFoundAs(err, errors.AccountNotFound, "load account")
	}
	return account.Points, nil
}

// Transactions 最近的积分流水
func (l *Ledger) Transactions(ctx context.Context, accountID int64, limit int) ([]model.PointTransaction, error) {
	return l.store.Accounts().ListTransactions(ctx, accountID, limit)
}

func (l *Ledger) journal(ctx context.Context, tx repository.Store, accountID int64, typ model.TransactionType, reason model.PointReason, amount, balance int64) error {
	entry := &model.PointTransaction{
		AccountID:    accountID,
		Type:         typ,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: balance,
	}
	if err := tx.Accounts().AppendTransaction(ctx, entry); err != nil {
		return fmt.Errorf("append point transaction: %w", err)
	}
	return nil
}
