package core

import (
	"context"
	"fmt"

	"skillhub.io/skill-exchange/internal/store"
)

// SwapService owns the swap request state machine:
//
//	PENDING  -> ACCEPTED | REJECTED | CANCELLED
//	ACCEPTED -> COMPLETED | CANCELLED
//
// REJECTED, CANCELLED and COMPLETED are terminal.
type SwapService struct {
	dbStore *store.SQLiteStore
}

func NewSwapService(db *store.SQLiteStore) *SwapService {
	return &SwapService{dbStore: db}
}

var swapTransitions = map[string][]string{
	store.StatusPending:  {store.StatusAccepted, store.StatusRejected, store.StatusCancelled},
	store.StatusAccepted: {store.StatusCompleted, store.StatusCancelled},
}

func transitionAllowed(from, to string) bool {
	for _, t := range swapTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Create validates participants and skill ownership against the store and
// persists a new PENDING request. Ownership is re-checked here even though
// the CRUD layer above also enforces it; callers are not trusted.
func (s *SwapService) Create(ctx context.Context, fromUserID, toUserID, skillOfferedID, skillWantedID string, message *string) (*store.SwapRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrInvalidParticipants
	}

	if _, err := s.requireUser(ctx, toUserID); err != nil {
		return nil, err
	}

	offered, err := s.dbStore.GetSkillByID(ctx, skillOfferedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load offered skill: %w", err)
	}
	if offered == nil {
		return nil, ErrNotFound
	}
	if offered.OwnerID != fromUserID {
		return nil, ErrSkillOwnershipMismatch
	}

	wanted, err := s.dbStore.GetSkillByID(ctx, skillWantedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wanted skill: %w", err)
	}
	if wanted == nil {
		return nil, ErrNotFound
	}
	if wanted.OwnerID != toUserID {
		return nil, ErrSkillOwnershipMismatch
	}

	sr := &store.SwapRequest{
		FromUserID:     fromUserID,
		ToUserID:       toUserID,
		SkillOfferedID: skillOfferedID,
		SkillWantedID:  skillWantedID,
		Message:        message,
	}
	if err := s.dbStore.CreateSwapRequest(ctx, sr); err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}
	return sr, nil
}

// Transition applies targetStatus on behalf of actorID. The counterparty
// accepts or rejects; either participant cancels or completes. The store
// update re-checks the observed status, so the loser of a concurrent
// transition gets ErrIllegalTransition rather than silently overwriting.
func (s *SwapService) Transition(ctx context.Context, requestID, actorID, targetStatus string) (*store.SwapRequest, error) {
	sr, err := s.dbStore.GetSwapRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load swap request: %w", err)
	}
	if sr == nil || !sr.IsParticipant(actorID) {
		return nil, ErrNotFound
	}

	switch targetStatus {
	case store.StatusAccepted, store.StatusRejected:
		// Only the counterparty answers a request.
		if actorID != sr.ToUserID {
			return nil, ErrIllegalTransition
		}
	case store.StatusCancelled, store.StatusCompleted:
		// Either participant; already established above.
	default:
		return nil, ErrIllegalTransition
	}

	if !transitionAllowed(sr.Status, targetStatus) {
		return nil, ErrIllegalTransition
	}

	ok, err := s.dbStore.UpdateSwapStatus(ctx, sr.ID, sr.Status, targetStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update swap status: %w", err)
	}
	if !ok {
		// A concurrent transition won the race.
		return nil, ErrIllegalTransition
	}

	return s.dbStore.GetSwapRequestByID(ctx, sr.ID)
}

// ListFor returns the user's swap requests most-recent-first. direction is
// "sent" or "received".
func (s *SwapService) ListFor(ctx context.Context, userID, direction string) ([]store.SwapRequest, error) {
	switch direction {
	case "sent":
		return s.dbStore.ListSwapRequestsSent(ctx, userID)
	case "received":
		return s.dbStore.ListSwapRequestsReceived(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
}

func (s *SwapService) requireUser(ctx context.Context, userID string) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
