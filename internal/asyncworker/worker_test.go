package asyncworker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_StartRunsTaskOnce(t *testing.T) {
	var runs int32
	w := New(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, nil, nil)

	w.Start()
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestWorker_ConcurrentWakeupsCollapseIntoOneRerun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32

	w := New(context.Background(), func(ctx context.Context) error {
		n := atomic.AddInt32(&runs, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return nil
	}, nil, nil)

	go w.Start()
	<-started

	// Multiple wakeups while the first run is in flight must collapse
	// into exactly one rerun.
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Wakeup())
	}
	close(release)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) == 2
	}, time.Second, time.Millisecond)

	// Give any erroneous extra rerun a chance to show up.
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 2, atomic.LoadInt32(&runs))
}

func TestWorker_WakeupBeforeStartReturnsErrNotStarted(t *testing.T) {
	w := New(context.Background(), func(ctx context.Context) error { return nil }, nil, nil)
	assert.ErrorIs(t, w.Wakeup(), ErrNotStarted)
}

func TestWorker_OnErrorCalledWithTaskError(t *testing.T) {
	taskErr := errors.New("boom")
	var gotErr error
	w := New(context.Background(), func(ctx context.Context) error {
		return taskErr
	}, func(err error) {
		gotErr = err
	}, nil)

	w.Start()
	assert.ErrorIs(t, gotErr, taskErr)
}

func TestWorker_StopPreventsFurtherRuns(t *testing.T) {
	var runs int32
	w := New(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, nil, nil)

	w.Start()
	w.Stop()
	require.NoError(t, w.Wakeup())

	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}
