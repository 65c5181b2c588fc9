package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skillhub.io/skill-exchange/internal/store"
)

func TestSnapshotFullOnZeroCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sr := env.newSwap(t)
	conv, err := env.conversations.FindOrCreate(ctx, env.alice.ID, env.bob.ID, &sr.ID)
	require.NoError(t, err)
	_, err = env.conversations.Send(ctx, conv.ID, env.bob.ID, "hi", store.MessageTypeText)
	require.NoError(t, err)

	snap, err := env.sync.SnapshotFor(ctx, env.alice.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, snap.Swaps, 1)
	assert.Equal(t, sr.ID, snap.Swaps[0].ID)
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, 1, snap.Conversations[0].UnreadCount)
	assert.False(t, snap.ServerTime.IsZero())
	assert.Equal(t, 5, snap.ConversationPollSeconds)
	assert.Equal(t, 2, snap.OpenChatPollSeconds)
}

func TestSnapshotEmptyWhenNothingChanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.newSwap(t)
	first, err := env.sync.SnapshotFor(ctx, env.alice.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, first.Swaps, 1)

	time.Sleep(5 * time.Millisecond)
	second, err := env.sync.SnapshotFor(ctx, env.alice.ID, first.ServerTime)
	require.NoError(t, err)
	assert.Empty(t, second.Swaps)
	assert.Empty(t, second.Conversations)
}

func TestSnapshotPicksUpChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sr := env.newSwap(t)
	conv, err := env.conversations.FindOrCreate(ctx, env.alice.ID, env.bob.ID, nil)
	require.NoError(t, err)

	base, err := env.sync.SnapshotFor(ctx, env.alice.ID, time.Time{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// A transition and a message both bump their aggregate past the cursor.
	_, err = env.swaps.Transition(ctx, sr.ID, env.bob.ID, store.StatusAccepted)
	require.NoError(t, err)
	_, err = env.conversations.Send(ctx, conv.ID, env.bob.ID, "accepted!", store.MessageTypeText)
	require.NoError(t, err)

	snap, err := env.sync.SnapshotFor(ctx, env.alice.ID, base.ServerTime)
	require.NoError(t, err)
	require.Len(t, snap.Swaps, 1)
	assert.Equal(t, store.StatusAccepted, snap.Swaps[0].Status)
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, conv.ID, snap.Conversations[0].ID)

	// The other side sees the same changes from its own snapshot.
	bobSnap, err := env.sync.SnapshotFor(ctx, env.bob.ID, base.ServerTime)
	require.NoError(t, err)
	require.Len(t, bobSnap.Swaps, 1)
}
