package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
)

func TestPurchaseInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	id := env.account(t, "alice", 0)
	feature := env.feature(t, model.FeatureUpdateTask)

	_, err := svc.Purchase(context.Background(), id, feature.ID)
	assert.ErrorIs(t, err, errors.InsufficientFunds)
	assert.Equal(t, int64(0), env.balance(t, id))

	owned, err := svc.HasFeature(context.Background(), id, model.FeatureUpdateTask)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestPurchaseTwiceIsAlreadyOwned(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	ctx := context.Background()
	id := env.account(t, "bob", 300)
	feature := env.feature(t, model.FeatureUpdateTask)

	res, err := svc.Purchase(ctx, id, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Balance)

	_, err = svc.Purchase(ctx, id, feature.ID)
	assert.ErrorIs(t, err, errors.AlreadyOwned)
	assert.Equal(t, int64(200), env.balance(t, id))

	owned, err := svc.HasFeature(ctx, id, model.FeatureUpdateTask)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestPurchaseReminderNeedsEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	ctx := context.Background()
	id := env.account(t, "carol", 1000)
	feature := env.feature(t, model.FeatureTaskReminder)

	_, err := svc.Purchase(ctx, id, feature.ID)
	assert.ErrorIs(t, err, errors.EmailRequired)
	assert.Equal(t, int64(1000), env.balance(t, id))

	env.withEmail(t, id, "carol@example.com")
	_, err = svc.Purchase(ctx, id, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), env.balance(t, id))
}

func TestPurchaseFreezerIsConsumable(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	ctx := context.Background()
	id := env.account(t, "dave", 250)
	freezer := env.feature(t, model.FeatureTriviaFreezer)

	for i := 1; i <= 2; i++ {
		res, err := svc.Purchase(ctx, id, freezer.ID)
		require.NoError(t, err)
		assert.Equal(t, i, res.Freezers)
	}
	assert.Equal(t, 2, env.freezers(t, id))
	assert.Equal(t, int64(50), env.balance(t, id))

	_, err := svc.Purchase(ctx, id, freezer.ID)
	assert.ErrorIs(t, err, errors.InsufficientFunds)
	assert.Equal(t, 2, env.freezers(t, id))
}

func TestPurchaseUnknownFeature(t *testing.T) {
	env := newTestEnv(t)
	id := env.account(t, "erin", 10)

	_, err := NewUnlockService(env.store).Purchase(context.Background(), id, 424242)
	assert.ErrorIs(t, err, errors.FeatureNotFound)
}

func TestGrantRandomUnowned(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	svc.pick = func(n int) int { return n - 1 }
	ctx := context.Background()
	id := env.account(t, "frank", 0)

	var granted []string
	for {
		f, err := svc.GrantRandomUnowned(ctx, id)
		require.NoError(t, err)
		if f == nil {
			break
		}
		assert.False(t, f.Consumable)
		granted = append(granted, f.Key)
	}

	assert.ElementsMatch(t, []string{
		model.FeatureUpdateTask, model.FeatureAddTags, model.FeatureTaskReminder,
		model.FeatureBlog, model.FeatureDarkMode,
	}, granted)
	assert.Equal(t, int64(0), env.balance(t, id))
}

func TestUnlockConverter(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	ctx := context.Background()
	id := env.account(t, "grace", 5)

	created, err := svc.UnlockConverter(ctx, id, "distance", "1200")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), env.balance(t, id), "correct answer is free")

	created, err = svc.UnlockConverter(ctx, id, "distance", " 1200 ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), env.balance(t, id))

	unlocks, err := svc.ConverterUnlocks(ctx, id)
	require.NoError(t, err)
	assert.Len(t, unlocks, 1)

	_, err = svc.UnlockConverter(ctx, id, "temperature", "100")
	assert.ErrorIs(t, err, errors.IncorrectAnswer)
	assert.Equal(t, int64(4), env.balance(t, id))

	_, err = svc.UnlockConverter(ctx, id, "warp", "9")
	assert.ErrorIs(t, err, errors.ConverterTypeInvalid)
	assert.Equal(t, int64(4), env.balance(t, id))

	views, err := svc.ConverterQuestions(ctx, id)
	require.NoError(t, err)
	require.Len(t, views, len(model.ConverterQuestions))
	assert.True(t, views[0].Unlocked)
	assert.False(t, views[1].Unlocked)
}

func TestUnlockConverterPenaltyStopsAtZero(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUnlockService(env.store)
	id := env.account(t, "heidi", 0)

	for i := 0; i < 3; i++ {
		_, err := svc.UnlockConverter(context.Background(), id, "weight", "500")
		assert.ErrorIs(t, err, errors.IncorrectAnswer)
	}
	assert.Equal(t, int64(0), env.balance(t, id))
}
