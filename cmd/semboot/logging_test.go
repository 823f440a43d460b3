package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	logger := setupLogger("debug", "json")
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = setupLogger("error", "text")
	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))

	// Unknown levels fall back to info rather than going quiet.
	logger = setupLogger("loud", "json")
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
}
