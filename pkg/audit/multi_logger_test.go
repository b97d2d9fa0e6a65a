package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiLogger_Sync(t *testing.T) {
	first := &recordingLogger{err: errors.New("first failed")}
	second := &recordingLogger{}

	multi := NewMultiLogger(first, second)
	err := multi.Log(context.Background(), &AuditEvent{EventType: EventTypeAuthLogin})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1, "a failing sink must not stop the others")
}

func TestMultiLogger_Async(t *testing.T) {
	failing := &recordingLogger{err: errors.New("sink down")}
	ok := &recordingLogger{}

	multi := NewMultiLogger(failing, ok)
	multi.SetAsync(true)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, multi.Log(ctx, &AuditEvent{EventType: EventTypeAuthLogout}))
	cancel()
	multi.Wait()

	assert.Len(t, ok.events, 1)
	errs := multi.GetErrors()
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "sink down")

	require.NoError(t, multi.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestMultiLogger_Empty(t *testing.T) {
	assert.NoError(t, NewMultiLogger().Log(context.Background(), &AuditEvent{}))
}
