package memory

import (
	"context"
	"sort"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
)

type accountRepo struct{ s *Store }

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	defer r.s.lock()()
	st := r.s.st()

	for _, a := range st.accounts {
		if a.Username == account.Username || a.PublicID == account.PublicID {
			return repository.ErrDuplicate
		}
		if account.HasEmail() && a.HasEmail() && *a.Email == *account.Email {
			return repository.ErrDuplicate
		}
	}

	account.ID = st.nextID()
	account.CreatedAt = r.s.now()
	account.UpdatedAt = account.CreatedAt
	st.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id int64) (*model.Account, error) {
	defer r.s.lock()()
	return r.get(id)
}

func (r *accountRepo) get(id int64) (*model.Account, error) {
	a, ok := r.s.st().accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyAccount(a)
	return &c, nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	return r.Get(ctx, id)
}

func (r *accountRepo) GetByPublicID(ctx context.Context, publicID int64) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return a.PublicID == publicID })
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Username == username })
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return a.HasEmail() && *a.Email == email })
}

func (r *accountRepo) find(match func(model.Account) bool) (*model.Account, error) {
	defer r.s.lock()()
	for _, a := range r.s.st().accounts {
		if match(a) {
			c := copyAccount(a)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	defer r.s.lock()()
	st := r.s.st()

	a, ok := st.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	for otherID, other := range st.accounts {
		if otherID != id && other.HasEmail() && *other.Email == email {
			return repository.ErrDuplicate
		}
	}
	a.Email = &email
	st.accounts[id] = a
	return nil
}

func (r *accountRepo) AddPoints(ctx context.Context, id int64, amount int64) (int64, error) {
	defer r.s.lock()()
	st := r.s.st()

	a, ok := st.accounts[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	a.Points += amount
	st.accounts[id] = a
	return a.Points, nil
}

func (r *accountRepo) DeductPoints(ctx context.Context, id int64, amount int64) (int64, bool, error) {
	defer r.s.lock()()
	st := r.s.st()

	a, ok := st.accounts[id]
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	if a.Points < amount {
		return a.Points, false, nil
	}
	a.Points -= amount
	st.accounts[id] = a
	return a.Points, true, nil
}

func (r *accountRepo) AddFreezers(ctx context.Context, id int64, n int) error {
	defer r.s.lock()()
	st := r.s.st()

	a, ok := st.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.TriviaFreezers += n
	st.accounts[id] = a
	return nil
}

func (r *accountRepo) ConsumeFreezer(ctx context.Context, id int64) (bool, error) {
	defer r.s.lock()()
	st := r.s.st()

	a, ok := st.accounts[id]
	if !ok || a.TriviaFreezers <= 0 {
		return false, nil
	}
	a.TriviaFreezers--
	st.accounts[id] = a
	return true, nil
}

func (r *accountRepo) AppendTransaction(ctx context.Context, tx *model.PointTransaction) error {
	defer r.s.lock()()
	st := r.s.st()

	tx.ID = st.nextID()
	tx.CreatedAt = r.s.now()
	st.transactions = append(st.transactions, *tx)
	return nil
}

func (r *accountRepo) ListTransactions(ctx context.Context, accountID int64, limit int) ([]model.PointTransaction, error) {
	defer r.s.lock()()

	var out []model.PointTransaction
	for _, tx := range r.s.st().transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return limitSlice(out, limit), nil
}

func copyAccount(a model.Account) model.Account {
	if a.Email != nil {
		email := *a.Email
		a.Email = &email
	}
	return a
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
