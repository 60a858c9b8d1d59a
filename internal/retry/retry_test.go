package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast() Config {
	return Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, Backoff(0, cfg))
	assert.Equal(t, 2*time.Second, Backoff(1, cfg))
	assert.Equal(t, 4*time.Second, Backoff(2, cfg))
	assert.Equal(t, 5*time.Second, Backoff(3, cfg))
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(), nil, "connect", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	err := Do(context.Background(), fast(), nil, "connect", func(ctx context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 4, calls)
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fast(), nil, "connect", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("unsupported driver")
	calls := 0
	err := Do(context.Background(), fast(), nil, "open store", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("open: %w", Permanent(cause))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("connection refused")))

	err := Permanent(errors.New("bad path"))
	assert.True(t, IsPermanent(err))
	assert.Equal(t, "bad path", err.Error())
}
