package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("test", 2, time.Minute)
	b.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, b.Do(fail), boom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(fail), boom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, b.Do(fail), boom, "half-open probe runs")
	assert.Equal(t, StateOpen, b.State(), "failed probe reopens")

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.Do(ok))
	assert.Equal(t, StateClosed, b.State())
}
