package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"TaskQuest/internal/model"
	"TaskQuest/pkg/errors"
	"TaskQuest/pkg/validate"
)

func newAccountService(env *testEnv) *AccountService {
	svc := NewAccountService(env.store, env.publicID)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()

	account, err := svc.Register(ctx, RegisterInput{Username: " alice ", Password: "secret1", Email: "Alice@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	require.NotNil(t, account.Email)
	assert.Equal(t, "alice@example.com", *account.Email)
	assert.NotZero(t, account.PublicID)
	assert.Equal(t, int64(0), account.Points)
	assert.NotEqual(t, "secret1", account.PasswordHash)

	got, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, errors.InvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, errors.InvalidCredentials)

	byPublic, err := svc.GetByPublicID(ctx, account.PublicID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byPublic.ID)
}

func TestRegisterConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "secret1", Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Password: "secret2"})
	assert.ErrorIs(t, err, errors.UsernameTaken)

	_, err = svc.Register(ctx, RegisterInput{Username: "bobby", Password: "secret2", Email: "BOB@example.com"})
	assert.ErrorIs(t, err, errors.EmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short username", RegisterInput{Username: "ab", Password: "secret1"}, "username"},
		{"long username", RegisterInput{Username: strings.Repeat("u", 26), Password: "secret1"}, "username"},
		{"username with space", RegisterInput{Username: "a b c", Password: "secret1"}, "username"},
		{"short password", RegisterInput{Username: "carol", Password: "12345"}, "password"},
		{"bad email", RegisterInput{Username: "carol", Password: "secret1", Email: "not-an-email"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := newAccountService(env).Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.InvalidRequest)
			assert.Contains(t, validate.Details(err), tt.field)
		})
	}
}

func TestLoginWithIdentity(t *testing.T) {
	env := newTestEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "dave", Password: "secret1"})
	require.NoError(t, err)

	account, created, err := svc.LoginWithIdentity(ctx, "Dave@Example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "dave1", account.Username)
	assert.False(t, account.HasPassword())

	again, created, err := svc.LoginWithIdentity(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, account.ID, again.ID)

	// 外部登录账户不能用密码登录
	_, err = svc.Login(ctx, "dave1", "")
	assert.ErrorIs(t, err, errors.InvalidCredentials)

	_, _, err = svc.LoginWithIdentity(ctx, "  ")
	assert.ErrorIs(t, err, errors.IdentityFailed)
}

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "erin", usernameBase("erin@example.com"))
	assert.Equal(t, strings.Repeat("a", 20), usernameBase(strings.Repeat("a", 30)+"@example.com"))
	assert.Equal(t, "user", usernameBase("@example.com"))
}

func TestUpdateEmailAndProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()

	frank, err := svc.Register(ctx, RegisterInput{Username: "frank", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Username: "grace", Password: "secret1", Email: "grace@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateEmail(ctx, frank.ID, EmailInput{Email: "grace@example.com"})
	assert.ErrorIs(t, err, errors.EmailTaken)
	_, err = svc.UpdateEmail(ctx, frank.ID, EmailInput{Email: "nope"})
	assert.ErrorIs(t, err, errors.InvalidRequest)

	updated, err := svc.UpdateEmail(ctx, frank.ID, EmailInput{Email: " Frank@Example.com "})
	require.NoError(t, err)
	require.True(t, updated.HasEmail())
	assert.Equal(t, "frank@example.com", *updated.Email)

	env.grant(t, frank.ID, model.FeatureDarkMode)
	_, err = env.store.Converters().Unlock(ctx, frank.ID, model.ConverterQuestions[0].Type)
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, frank.ID)
	require.NoError(t, err)
	assert.Equal(t, frank.ID, profile.Account.ID)
	require.Len(t, profile.Features, 1)
	assert.Equal(t, model.FeatureDarkMode, profile.Features[0].Key)
	assert.Len(t, profile.Converters, 1)

	_, err = svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, errors.AccountNotFound)
}
