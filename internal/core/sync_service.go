package core

import (
	"context"
	"fmt"
	"time"

	"skillhub.io/skill-exchange/internal/store"
)

// Poll cadences advertised to clients. There is no push channel; views stay
// current by refetching at these intervals and after every local mutation.
const (
	ConversationListPollInterval = 5 * time.Second
	OpenConversationPollInterval = 2 * time.Second
)

// Snapshot is one poll response: everything of the user's that changed after
// the cursor, plus the server clock to use as the next cursor.
type Snapshot struct {
	Swaps                   []store.SwapRequest         `json:"swaps"`
	Conversations           []store.ConversationSummary `json:"conversations"`
	ServerTime              time.Time                   `json:"server_time"`
	ConversationPollSeconds int                         `json:"conversation_poll_seconds"`
	OpenChatPollSeconds     int                         `json:"open_chat_poll_seconds"`
}

// SyncService is the read side of the polling contract. It never mutates
// anything: reconciliation is pull-based, a client refetches after its own
// writes and on the advertised cadence.
type SyncService struct {
	dbStore *store.SQLiteStore
}

func NewSyncService(db *store.SQLiteStore) *SyncService {
	return &SyncService{dbStore: db}
}

// SnapshotFor returns the user's swaps and conversations touched after
// `since`. A zero cursor returns the full state. Reads both sets from the
// same store, so anything written before the call is visible in the result.
func (s *SyncService) SnapshotFor(ctx context.Context, userID string, since time.Time) (*Snapshot, error) {
	swaps, err := s.dbStore.ListSwapRequestsUpdatedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load changed swaps: %w", err)
	}

	conversations, err := s.dbStore.ListConversationSummaries(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load changed conversations: %w", err)
	}

	return &Snapshot{
		Swaps:                   swaps,
		Conversations:           conversations,
		ServerTime:              time.Now(),
		ConversationPollSeconds: int(ConversationListPollInterval / time.Second),
		OpenChatPollSeconds:     int(OpenConversationPollInterval / time.Second),
	}, nil
}
