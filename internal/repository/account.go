package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"TaskQuest/internal/model"
)

type accountRepo struct {
	db *gorm.DB
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepo) Get(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write, clause.Locking{Strength: "UPDATE"}).
		First(&account, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepo) GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error) {
	return r.findBy(ctx, "public_id = ?", publicID)
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findBy(ctx, "username = ?", username)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *accountRepo) findBy(ctx context.Context, query string, arg interface{}) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where(query, arg).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("email", email)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) AddPoints(ctx context.Context, id int64, amount int64) (int64, error) {
	var account model.Account
	res := r.db.WithContext(ctx).Model(&account).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return account.Points, nil
}

// DeductPoints 通过 WHERE points >= ? 保证并发下余额不会为负
func (r *accountRepo) DeductPoints(ctx context.Context, id int64, amount int64) (int64, bool, error) {
	var account model.Account
	res := r.db.WithContext(ctx).Model(&account).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
		Where("id = ? AND points >= ?", id, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return 0, false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return account.Points, true, nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return current.Points, false, nil
}

func (r *accountRepo) AddFreezers(ctx context.Context, id int64, n int) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		UpdateColumn("trivia_freezers", gorm.Expr("trivia_freezers + ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) ConsumeFreezer(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND trivia_freezers > 0", id).
		UpdateColumn("trivia_freezers", gorm.Expr("trivia_freezers - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *accountRepo) AppendTransaction(ctx context.Context, tx *model.PointTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *accountRepo) ListTransactions(ctx context.Context, accountID int64, limit int) ([]model.PointTransaction, error) {
	var txs []model.PointTransaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
