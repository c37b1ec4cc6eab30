package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
)

func TestCreateTag(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTagService(env.store)
	ctx := context.Background()
	id := env.account(t, "alice", 2)

	_, err := svc.Create(ctx, id, "work")
	assert.ErrorIs(t, err, errors.FeatureRequired)

	env.grant(t, id, model.FeatureAddTags)
	tag, err := svc.Create(ctx, id, "  work ")
	require.NoError(t, err)
	assert.Equal(t, "work", tag.Name)
	assert.Equal(t, int64(1), env.balance(t, id))

	_, err = svc.Create(ctx, id, "work")
	assert.ErrorIs(t, err, errors.TagExists)
	assert.Equal(t, int64(1), env.balance(t, id), "duplicate is not charged")

	_, err = svc.Create(ctx, id, "")
	assert.ErrorIs(t, err, errors.InvalidRequest)

	_, err = svc.Create(ctx, id, "home")
	require.NoError(t, err)
	_, err = svc.Create(ctx, id, "garden")
	assert.ErrorIs(t, err, errors.InsufficientFunds)

	list, err := svc.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteTagDetachesTasks(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTagService(env.store)
	tasks := newTaskService(env)
	ctx := context.Background()
	id := env.account(t, "bob", 1)
	other := env.account(t, "carol", 0)
	env.grant(t, id, model.FeatureAddTags)

	tag, err := svc.Create(ctx, id, "errands")
	require.NoError(t, err)
	task, err := tasks.Create(ctx, id, CreateTaskInput{Content: "post office"})
	require.NoError(t, err)
	_, err = tasks.AttachTag(ctx, id, task.ID, tag.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, other, tag.ID), errors.Unauthorized)
	require.NoError(t, svc.Delete(ctx, id, tag.ID))
	assert.ErrorIs(t, svc.Delete(ctx, id, tag.ID), errors.TagNotFound)

	got, err := tasks.Get(ctx, id, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}
