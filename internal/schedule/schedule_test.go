package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("22:25")
	require.NoError(t, err)
	assert.Equal(t, 22, h)
	assert.Equal(t, 25, m)

	for _, bad := range []string{"", "25:00", "22", "ten"} {
		_, _, err := ParseClock(bad)
		assert.True(t, errors.Is(err, core.ErrConfigInvalid), bad)
	}
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2024, 5, 6, 9, 0, 0, 0, loc), time.Date(2024, 5, 6, 22, 25, 0, 0, loc)},
		{"exactly at run time", time.Date(2024, 5, 6, 22, 25, 0, 0, loc), time.Date(2024, 5, 7, 22, 25, 0, 0, loc)},
		{"after run time", time.Date(2024, 5, 6, 23, 0, 0, 0, loc), time.Date(2024, 5, 7, 22, 25, 0, 0, loc)},
		{"month rollover", time.Date(2024, 5, 31, 23, 0, 0, 0, loc), time.Date(2024, 6, 1, 22, 25, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRun(tt.now, DefaultTime)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestDaily_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Daily(ctx, DefaultTime, nil, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDaily_InvalidClock(t *testing.T) {
	err := Daily(context.Background(), "bad", nil, func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
