package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	assert.Empty(t, r.Toasts())
	assert.NotNil(t, r.Toasts())

	r.Notify("Failed to search bricks", Danger)
	r.Notify("Saved", Success)

	toasts := r.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, "Failed to search bricks", toasts[0].Message)
	assert.Equal(t, Danger, toasts[0].Severity)
	assert.Equal(t, int64(5000), toasts[0].DurationMS)
	assert.NotEqual(t, toasts[0].ID, toasts[1].ID)

	// snapshots are copies
	toasts[0].Message = "changed"
	assert.Equal(t, "Failed to search bricks", r.Toasts()[0].Message)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewLogNotifier(zap.New(core).Sugar())

	n.Notify("boom", Danger)
	n.Notify("careful", Warning)
	n.Notify("fyi", Info)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.InfoLevel, entries[2].Level)
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	var calls int
	m := Multi(a, nil, b, Func(func(string, Severity) { calls++ }))

	m.Notify("hello", Info)

	assert.Len(t, a.Toasts(), 1)
	assert.Len(t, b.Toasts(), 1)
	assert.Equal(t, 1, calls)
}

func TestRecorderContext(t *testing.T) {
	assert.Nil(t, RecorderFromContext(context.Background()))

	rec := NewRecorder()
	ctx := WithRecorder(context.Background(), rec)
	assert.Same(t, rec, RecorderFromContext(ctx))
}
