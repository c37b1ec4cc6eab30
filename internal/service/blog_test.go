package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBlogService(env.store)
	ctx := context.Background()
	id := env.account(t, "alice", 1)

	_, err := svc.CreatePost(ctx, id, "hello")
	assert.ErrorIs(t, err, errors.FeatureRequired)

	env.grant(t, id, model.FeatureBlog)
	_, err = svc.CreatePost(ctx, id, "   ")
	assert.ErrorIs(t, err, errors.InvalidRequest)

	post, err := svc.CreatePost(ctx, id, "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", post.Content)
	assert.Equal(t, int64(0), env.balance(t, id))

	_, err = svc.CreatePost(ctx, id, "second")
	assert.ErrorIs(t, err, errors.InsufficientFunds)

	feed, err := svc.Feed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, feed, 1, "failed post is rolled back")
}

func TestCommentIsFree(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBlogService(env.store)
	ctx := context.Background()
	author := env.account(t, "bob", 1)
	reader := env.account(t, "carol", 0)
	env.grant(t, author, model.FeatureBlog)

	post, err := svc.CreatePost(ctx, author, "first post")
	require.NoError(t, err)

	_, err = svc.Comment(ctx, reader, post.ID, "nice")
	assert.ErrorIs(t, err, errors.FeatureRequired)

	env.grant(t, reader, model.FeatureBlog)
	comment, err := svc.Comment(ctx, reader, post.ID, "nice")
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, int64(0), env.balance(t, reader))

	_, err = svc.Comment(ctx, reader, 9999, "hello?")
	assert.ErrorIs(t, err, errors.PostNotFound)

	feed, err := svc.Feed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "bob", feed[0].Author.Username)
	require.Len(t, feed[0].Comments, 1)
	assert.Equal(t, "nice", feed[0].Comments[0].Content)
}
