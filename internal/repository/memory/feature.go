package memory

import (
	"context"
	"sort"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
)

type featureRepo struct{ s *Store }

func (r *featureRepo) List(ctx context.Context) ([]model.Feature, error) {
	defer r.s.lock()()

	out := make([]model.Feature, 0, len(r.s.st().features))
	for _, f := range r.s.st().features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *featureRepo) Get(ctx context.Context, id int64) (*model.Feature, error) {
	defer r.s.lock()()

	f, ok := r.s.st().features[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (r *featureRepo) GetByKey(ctx context.Context, key string) (*model.Feature, error) {
	defer r.s.lock()()
	return r.byKey(key)
}

func (r *featureRepo) byKey(key string) (*model.Feature, error) {
	for _, f := range r.s.st().features {
		if f.Key == key {
			return &f, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *featureRepo) EnsureSeeded(ctx context.Context, features []model.Feature) error {
	defer r.s.lock()()
	st := r.s.st()

	for _, f := range features {
		if _, err := r.byKey(f.Key); err == nil {
			continue
		}
		f.ID = st.nextID()
		st.features[f.ID] = f
	}
	return nil
}

func (r *featureRepo) Owned(ctx context.Context, accountID int64) ([]model.Feature, error) {
	defer r.s.lock()()
	st := r.s.st()

	var out []model.Feature
	for key := range st.accountFeatures {
		if key.accountID != accountID {
			continue
		}
		if f, ok := st.features[key.featureID]; ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *featureRepo) IsOwned(ctx context.Context, accountID, featureID int64) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.st().accountFeatures[accountFeatureKey{accountID, featureID}]
	return ok, nil
}

func (r *featureRepo) HasKey(ctx context.Context, accountID int64, key string) (bool, error) {
	defer r.s.lock()()

	f, err := r.byKey(key)
	if err != nil {
		return false, nil
	}
	_, ok := r.s.st().accountFeatures[accountFeatureKey{accountID, f.ID}]
	return ok, nil
}

func (r *featureRepo) Grant(ctx context.Context, accountID, featureID int64, source model.UnlockSource) error {
	defer r.s.lock()()
	st := r.s.st()

	key := accountFeatureKey{accountID, featureID}
	if _, ok := st.accountFeatures[key]; ok {
		return repository.ErrDuplicate
	}
	st.accountFeatures[key] = model.AccountFeature{
		AccountID: accountID,
		FeatureID: featureID,
		Source:    source,
		CreatedAt: r.s.now(),
	}
	return nil
}

type converterRepo struct{ s *Store }

func (r *converterRepo) List(ctx context.Context, accountID int64) ([]model.ConverterUnlock, error) {
	defer r.s.lock()()

	var out []model.ConverterUnlock
	for _, u := range r.s.st().converters {
		if u.AccountID == accountID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *converterRepo) Unlock(ctx context.Context, accountID int64, converterType string) (bool, error) {
	defer r.s.lock()()
	st := r.s.st()

	for _, u := range st.converters {
		if u.AccountID == accountID && u.ConverterType == converterType {
			return false, nil
		}
	}
	st.converters = append(st.converters, model.ConverterUnlock{
		ID:            st.nextID(),
		AccountID:     accountID,
		ConverterType: converterType,
		CreatedAt:     r.s.now(),
	})
	return true, nil
}
