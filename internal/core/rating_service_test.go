package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skillhub.io/skill-exchange/internal/store"
)

func TestRateCompletedSwap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sr := env.completedSwap(t)

	comment := "great teacher"
	rating, err := env.ratings.Rate(ctx, sr.ID, env.alice.ID, 5, &comment)
	require.NoError(t, err)
	assert.Equal(t, env.alice.ID, rating.FromUserID)
	assert.Equal(t, env.bob.ID, rating.ToUserID, "counterparty derived from the swap")
	assert.Equal(t, 5, rating.Rating)

	avg, count, err := env.ratings.AverageFor(ctx, env.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, count)

	// Second rating for the same (swap, rater) pair fails.
	_, err = env.ratings.Rate(ctx, sr.ID, env.alice.ID, 4, nil)
	assert.ErrorIs(t, err, ErrDuplicateRating)

	// The counterparty still gets their own rating.
	back, err := env.ratings.Rate(ctx, sr.ID, env.bob.ID, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, env.alice.ID, back.ToUserID)
}

func TestRateRequiresCompletedSwap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sr := env.newSwap(t)
	_, err := env.ratings.Rate(ctx, sr.ID, env.alice.ID, 5, nil)
	assert.ErrorIs(t, err, ErrSwapNotCompleted)

	_, err = env.swaps.Transition(ctx, sr.ID, env.bob.ID, store.StatusAccepted)
	require.NoError(t, err)
	_, err = env.ratings.Rate(ctx, sr.ID, env.alice.ID, 5, nil)
	assert.ErrorIs(t, err, ErrSwapNotCompleted)
}

func TestRateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sr := env.completedSwap(t)

	_, err := env.ratings.Rate(ctx, sr.ID, env.alice.ID, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = env.ratings.Rate(ctx, sr.ID, env.alice.ID, 6, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)

	carol := env.addUser(t, "carol")
	_, err = env.ratings.Rate(ctx, sr.ID, carol.ID, 5, nil)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = env.ratings.Rate(ctx, "no-such-swap", env.alice.ID, 5, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRateConcurrentDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sr := env.completedSwap(t)

	var wg sync.WaitGroup
	results := make([]error, 4)
	wg.Add(len(results))
	for i := range results {
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.ratings.Rate(ctx, sr.ID, env.alice.ID, 5, nil)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateRating)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestUpdateRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sr := env.completedSwap(t)

	rating, err := env.ratings.Rate(ctx, sr.ID, env.alice.ID, 2, nil)
	require.NoError(t, err)

	comment := "better after a second session"
	updated, err := env.ratings.Update(ctx, rating.ID, env.alice.ID, 4, &comment)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	require.NotNil(t, updated.Comment)

	stored, err := env.store.GetRatingByID(ctx, rating.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, rating.SwapID, stored.SwapID)
	assert.Equal(t, rating.CreatedAt.Unix(), stored.CreatedAt.Unix(), "created_at immutable")

	// Only the rater may update.
	_, err = env.ratings.Update(ctx, rating.ID, env.bob.ID, 1, nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = env.ratings.Update(ctx, rating.ID, env.alice.ID, 9, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = env.ratings.Update(ctx, "no-such-rating", env.alice.ID, 3, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAverageForNoRatings(t *testing.T) {
	env := newTestEnv(t)

	avg, count, err := env.ratings.AverageFor(context.Background(), env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, count)
}

func TestAverageForMean(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.completedSwap(t)
	second := env.completedSwap(t)

	_, err := env.ratings.Rate(ctx, first.ID, env.alice.ID, 5, nil)
	require.NoError(t, err)
	_, err = env.ratings.Rate(ctx, second.ID, env.alice.ID, 2, nil)
	require.NoError(t, err)

	avg, count, err := env.ratings.AverageFor(ctx, env.bob.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 0.0001)
	assert.Equal(t, 2, count)
}
