package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	var calls atomic.Int32
	err := Poll(context.Background(), func() bool { return calls.Add(1) >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoll_Timeout(t *testing.T) {
	err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold: 20ms")
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, func() bool { return false }, time.Minute, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForState(t *testing.T) {
	var n atomic.Int32
	got, err := WaitForState(context.Background(),
		func() int32 { return n.Add(2) },
		func(v int32) bool { return v > 5 },
		time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(6), got)

	got, err = WaitForState(context.Background(),
		func() int32 { return 1 },
		func(v int32) bool { return v > 5 },
		10*time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.Zero(t, got)
	assert.Contains(t, err.Error(), "int32")
}
