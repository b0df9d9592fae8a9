package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionController_BeginTracksActive(t *testing.T) {
	s := NewSessionController()

	assert.Zero(t, s.Active())

	ctx, id, done := s.Begin(42, context.Background())
	defer done()

	require.NotEmpty(t, id)
	assert.Equal(t, 42, s.Active())
	assert.NoError(t, ctx.Err())
}

func TestSessionController_BeginCancelsPredecessor(t *testing.T) {
	s := NewSessionController()

	first, firstID, firstDone := s.Begin(1, context.Background())
	defer firstDone()

	second, secondID, secondDone := s.Begin(2, context.Background())
	defer secondDone()

	require.NotEqual(t, firstID, secondID)

	// The predecessor's signal fires without waiting for it to finish.
	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first workflow was not cancelled")
	}

	assert.NoError(t, second.Err())
	assert.Equal(t, 2, s.Active())
}

func TestSessionController_Cancel(t *testing.T) {
	s := NewSessionController()

	assert.False(t, s.Cancel())

	ctx, _, done := s.Begin(7, context.Background())
	defer done()

	assert.True(t, s.Cancel())

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("workflow was not cancelled")
	}

	assert.Zero(t, s.Active())
	assert.False(t, s.Cancel())
}

func TestSessionController_BeginMergesParents(t *testing.T) {
	s := NewSessionController()

	request, dropRequest := context.WithCancel(context.Background())
	shutdown, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	ctx, _, done := s.Begin(9, request, shutdown)
	defer done()

	// Either parent stops the workflow.
	dropRequest()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("workflow did not observe parent cancellation")
	}
}

func TestSessionController_DoneClearsOnlyOwnEntry(t *testing.T) {
	s := NewSessionController()

	_, _, firstDone := s.Begin(1, context.Background())
	_, _, secondDone := s.Begin(2, context.Background())

	// The stale workflow's done callback must not clear the replacement.
	firstDone()
	assert.Equal(t, 2, s.Active())

	secondDone()
	assert.Zero(t, s.Active())
}
