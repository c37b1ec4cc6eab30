package validate

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/pkg/errors"
)

type signup struct {
	Username string `json:"username" validate:"required,notblank,min=3,max=25"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(signup{Username: "alice"}))

	err := Struct(signup{Username: "   ", Email: "nope"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InvalidRequest))

	details := Details(err)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Equal(t, "username cannot be blank", details["username"])
}

func TestDetailsOfOtherError(t *testing.T) {
	assert.Nil(t, Details(stderrors.New("x")))
}
