package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/fjod/go_bookstore/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestRunBestEffort_RunsEveryTask(t *testing.T) {
	logs := &syncBuffer{}
	log := logger.New("test", logs, slog.LevelInfo)

	var ran atomic.Int32
	tasks := []bestEffortTask{
		{name: "ok", run: func(context.Context) error { ran.Add(1); return nil }},
		{name: "first", run: func(context.Context) error { ran.Add(1); return errors.New("boom") }},
		{name: "second", run: func(context.Context) error { ran.Add(1); return errors.New("bang") }},
	}

	err := runBestEffort(context.Background(), log, "cleanup", tasks)

	assert.Equal(t, int32(3), ran.Load())
	assert.ErrorContains(t, err, "first: boom")
	assert.ErrorContains(t, err, "second: bang")
	assert.Contains(t, logs.String(), `"failed":2`)
	assert.Contains(t, logs.String(), `"batch":"cleanup"`)
}

func TestRunBestEffort_NoFailuresNoLog(t *testing.T) {
	logs := &syncBuffer{}
	log := logger.New("test", logs, slog.LevelInfo)

	err := runBestEffort(context.Background(), log, "noop", []bestEffortTask{
		{name: "ok", run: func(context.Context) error { return nil }},
	})
	assert.NoError(t, err)
	assert.Empty(t, logs.String())
	assert.NoError(t, runBestEffort(context.Background(), log, "empty", nil))
}
