package fuse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/switchgear/fuse"
)

var errFallback = errors.New("fallback failed")

func TestDoWithFallback(t *testing.T) {
	t.Run("does not run the fallback on success", func(t *testing.T) {
		b, err := fuse.New("test")
		require.NoError(t, err)

		fellBack := false
		err = b.DoWithFallback(context.Background(),
			succeeding,
			func(ctx context.Context) error {
				fellBack = true
				return nil
			},
		)

		require.NoError(t, err)
		require.False(t, fellBack)
		require.Zero(t, b.Failures())
	})

	t.Run("substitutes the fallback outcome on failure", func(t *testing.T) {
		b, err := fuse.New("test", fuse.WithFailureThreshold(3))
		require.NoError(t, err)

		err = b.DoWithFallback(context.Background(),
			failing,
			func(ctx context.Context) error { return nil },
		)

		require.NoError(t, err, "the caller sees the fallback's success")
		require.Equal(t, 1, b.Failures(), "the primary failure counts exactly once")
	})

	t.Run("returns the fallback error when both fail", func(t *testing.T) {
		b, err := fuse.New("test", fuse.WithFailureThreshold(3))
		require.NoError(t, err)

		err = b.DoWithFallback(context.Background(),
			failing,
			func(ctx context.Context) error { return errFallback },
		)

		require.ErrorIs(t, err, errFallback)
		require.NotErrorIs(t, err, errTest)
		require.Equal(t, 1, b.Failures(), "the fallback failure is never counted")
	})

	t.Run("rejects a nil primary", func(t *testing.T) {
		b, err := fuse.New("test")
		require.NoError(t, err)

		err = b.DoWithFallback(context.Background(), nil, succeeding)

		require.True(t, trace.IsBadParameter(err))
	})

	t.Run("rejects a nil fallback", func(t *testing.T) {
		b, err := fuse.New("test")
		require.NoError(t, err)

		err = b.DoWithFallback(context.Background(), succeeding, nil)

		require.True(t, trace.IsBadParameter(err))
	})

	t.Run("does not run the fallback when open", func(t *testing.T) {
		b, err := fuse.New("test", fuse.WithFailureThreshold(1))
		require.NoError(t, err)

		require.ErrorIs(t, b.Do(context.Background(), failing), errTest)
		require.Equal(t, fuse.Open, b.State())

		fellBack := false
		err = b.DoWithFallback(context.Background(),
			succeeding,
			func(ctx context.Context) error {
				fellBack = true
				return nil
			},
		)

		require.True(t, fuse.IsOpen(err), "rejections surface directly")
		require.False(t, fellBack)
	})

	t.Run("probe failure reopens while the caller sees the fallback", func(t *testing.T) {
		b, err := fuse.New("test", fuse.WithFailureThreshold(1), fuse.WithResetDelay(time.Hour))
		require.NoError(t, err)
		defer b.Stop()

		require.ErrorIs(t, b.Do(context.Background(), failing), errTest)
		b.Recover()
		require.Equal(t, fuse.HalfOpen, b.State())

		err = b.DoWithFallback(context.Background(),
			failing,
			func(ctx context.Context) error { return nil },
		)

		require.NoError(t, err)
		require.Equal(t, fuse.Open, b.State(), "the primary outcome drives the transition")
	})

	t.Run("rejected probe contenders do not run the fallback", func(t *testing.T) {
		b, err := fuse.New("test",
			fuse.WithFailureThreshold(1),
			fuse.WithResetDelay(time.Hour),
			fuse.WithCallTimeout(time.Hour),
		)
		require.NoError(t, err)
		defer b.Stop()

		require.ErrorIs(t, b.Do(context.Background(), failing), errTest)
		b.Recover()

		started := make(chan struct{})
		release := make(chan struct{})
		probeErr := make(chan error, 1)
		go func() {
			probeErr <- b.Do(context.Background(), func(ctx context.Context) error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		fellBack := false
		err = b.DoWithFallback(context.Background(),
			succeeding,
			func(ctx context.Context) error {
				fellBack = true
				return nil
			},
		)
		require.True(t, fuse.IsOpen(err))
		require.False(t, fellBack)

		close(release)
		require.NoError(t, <-probeErr)
	})
}
