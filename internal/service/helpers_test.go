package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository/memory"
)

type testEnv struct {
	store  *memory.Store
	clock  time.Time
	nextID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{clock: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	env.store = memory.New().WithClock(func() time.Time { return env.clock })
	require.NoError(t, env.store.Features().EnsureSeeded(context.Background(), model.DefaultFeatures))
	return env
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) publicID() (int64, error) {
	e.nextID++
	return 1_000_000 + e.nextID, nil
}

// account 直接写入带初始积分的账户
func (e *testEnv) account(t *testing.T, username string, points int64) int64 {
	t.Helper()
	id, _ := e.publicID()
	a := &model.Account{Username: username, PublicID: id, Points: points}
	require.NoError(t, e.store.Accounts().Create(context.Background(), a))
	return a.ID
}

func (e *testEnv) withEmail(t *testing.T, accountID int64, email string) {
	t.Helper()
	require.NoError(t, e.store.Accounts().UpdateEmail(context.Background(), accountID, email))
}

func (e *testEnv) feature(t *testing.T, key string) model.Feature {
	t.Helper()
	f, err := e.store.Features().GetByKey(context.Background(), key)
	require.NoError(t, err)
	return *f
}

func (e *testEnv) grant(t *testing.T, accountID int64, key string) {
	t.Helper()
	f := e.feature(t, key)
	require.NoError(t, e.store.Features().Grant(context.Background(), accountID, f.ID, model.UnlockPurchased))
}

func (e *testEnv) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	a, err := e.store.Accounts().Get(context.Background(), accountID)
	require.NoError(t, err)
	return a.Points
}

func (e *testEnv) freezers(t *testing.T, accountID int64) int {
	t.Helper()
	a, err := e.store.Accounts().Get(context.Background(), accountID)
	require.NoError(t, err)
	return a.TriviaFreezers
}
