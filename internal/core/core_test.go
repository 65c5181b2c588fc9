package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"skillhub.io/skill-exchange/internal/store"
)

// testEnv wires every service against a fresh in-memory store with two users
// who each own one skill, the minimum cast for a swap.
type testEnv struct {
	store         *store.SQLiteStore
	users         *UserService
	swaps         *SwapService
	conversations *ConversationService
	ratings       *RatingService
	sync          *SyncService

	alice      *store.User
	bob        *store.User
	aliceSkill *store.Skill
	bobSkill   *store.Skill
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	env := &testEnv{
		store:         dbStore,
		users:         NewUserService(dbStore),
		swaps:         NewSwapService(dbStore),
		conversations: NewConversationService(dbStore),
		ratings:       NewRatingService(dbStore),
		sync:          NewSyncService(dbStore),
	}

	ctx := context.Background()
	env.alice, err = dbStore.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	env.bob, err = dbStore.CreateUser(ctx, "bob", "hash")
	require.NoError(t, err)

	env.aliceSkill, err = dbStore.CreateSkill(ctx, env.alice.ID, "Guitar lessons", "Music")
	require.NoError(t, err)
	env.bobSkill, err = dbStore.CreateSkill(ctx, env.bob.ID, "Spanish conversation", "Languages")
	require.NoError(t, err)

	return env
}

func (e *testEnv) addUser(t *testing.T, name string) *store.User {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), name, "hash")
	require.NoError(t, err)
	return user
}

// newSwap creates a PENDING alice -> bob request.
func (e *testEnv) newSwap(t *testing.T) *store.SwapRequest {
	t.Helper()
	sr, err := e.swaps.Create(context.Background(), e.alice.ID, e.bob.ID, e.aliceSkill.ID, e.bobSkill.ID, nil)
	require.NoError(t, err)
	return sr
}

// completedSwap walks a request through accept and complete.
func (e *testEnv) completedSwap(t *testing.T) *store.SwapRequest {
	t.Helper()
	ctx := context.Background()
	sr := e.newSwap(t)
	_, err := e.swaps.Transition(ctx, sr.ID, e.bob.ID, store.StatusAccepted)
	require.NoError(t, err)
	sr, err = e.swaps.Transition(ctx, sr.ID, e.alice.ID, store.StatusCompleted)
	require.NoError(t, err)
	return sr
}
