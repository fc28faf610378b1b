package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug", "test")
	assert.Equal(t, "test", logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = SetupLogger("bogus", "test")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestGracefulShutdownOnParentCancel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	logger := SetupLogger("error", "test")

	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(parent, logger, time.Second, func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		close(cleaned)
	})

	cancel()
	WaitForShutdown(ctx, done)

	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
