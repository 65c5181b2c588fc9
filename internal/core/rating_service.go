package core

import (
	"context"
	"fmt"

	"skillhub.io/skill-exchange/internal/store"
)

// RatingService records one rating per (swap, rater) pair, gated on the swap
// being COMPLETED.
type RatingService struct {
	dbStore *store.SQLiteStore
}

func NewRatingService(db *store.SQLiteStore) *RatingService {
	return &RatingService{dbStore: db}
}

// Rate files raterID's rating for a completed swap. The counterparty is
// derived from the swap record, never supplied by the caller.
func (s *RatingService) Rate(ctx context.Context, swapID, raterID string, rating int, comment *string) (*store.Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	swap, err := s.dbStore.GetSwapRequestByID(ctx, swapID)
	if err != nil {
		return nil, fmt.Errorf("failed to load swap: %w", err)
	}
	if swap == nil {
		return nil, ErrNotFound
	}
	if !swap.IsParticipant(raterID) {
		return nil, ErrNotParticipant
	}
	if swap.Status != store.StatusCompleted {
		return nil, ErrSwapNotCompleted
	}

	existing, err := s.dbStore.GetRatingForSwapByRater(ctx, swapID, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing rating: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateRating
	}

	r := &store.Rating{
		SwapID:     swapID,
		FromUserID: raterID,
		ToUserID:   swap.Counterparty(raterID),
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.dbStore.CreateRating(ctx, r); err != nil {
		if store.IsUniqueViolation(err) {
			// A concurrent rate() for the same pair got there first; the
			// unique index is the backstop behind the read above.
			return nil, ErrDuplicateRating
		}
		return nil, fmt.Errorf("failed to store rating: %w", err)
	}
	return r, nil
}

// Update overwrites rating and comment in place. Only the original rater may
// update; created_at and the swap linkage are immutable.
func (s *RatingService) Update(ctx context.Context, ratingID, actorID string, rating int, comment *string) (*store.Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	r, err := s.dbStore.GetRatingByID(ctx, ratingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if r.FromUserID != actorID {
		return nil, ErrNotOwner
	}

	if err := s.dbStore.UpdateRating(ctx, ratingID, rating, comment); err != nil {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}
	r.Rating = rating
	r.Comment = comment
	return r, nil
}

// AverageFor returns the mean of ratings received by userID and how many
// there are. No ratings yields 0, never an error.
func (s *RatingService) AverageFor(ctx context.Context, userID string) (float64, int, error) {
	return s.dbStore.AverageRatingFor(ctx, userID)
}
