package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerWaitAggregates(t *testing.T) {
	errA := errors.New("a failed")
	runner := NewRunner()
	runner.Go(
		RunFunc(func(ctx context.Context) error { return errA }),
		RunFunc(func(ctx context.Context) error { return nil }),
	)
	require.ErrorIs(t, runner.Wait(), errA)
}

func TestRunnerWaitMultiple(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	runner := NewRunner()
	runner.Go(
		RunFunc(func(ctx context.Context) error { return errA }),
		RunFunc(func(ctx context.Context) error { return errB }),
	)
	err := runner.Wait()
	var agg *AggregatedError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 2)
}

func TestRunnerIgnoresCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx)
	runner.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	require.NoError(t, runner.Wait())
}

func TestNamedRun(t *testing.T) {
	r := NamedRun("poller", RunFunc(func(ctx context.Context) error { return nil }))
	named, ok := r.(Named)
	require.True(t, ok)
	require.Equal(t, "poller", named.Name())
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	var canceled bool
	done := make(chan error, 1)
	go func() {
		done <- RunWithContextCancel(ctx, func() {
			canceled = true
			close(stopCh)
		}, func() error {
			<-stopCh
			return errors.New("stopped")
		})
	}()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.True(t, canceled)
	case <-time.After(time.Second):
		t.Fatal("did not return")
	}
}

func TestRunWithContext(t *testing.T) {
	errA := errors.New("a")
	err := RunWithContext(context.Background(), func() error { return errA })
	require.ErrorIs(t, err, errA)
	require.NoError(t, RunWithContext(context.Background(), func() error { return nil }))
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errA := errors.New("a")
	errs.Add(nil, errA, nil)
	require.Equal(t, errA, errs.Aggregate())
	errs.Add(errors.New("b"))
	require.Contains(t, errs.Aggregate().Error(), "Multiple errors:")
}
