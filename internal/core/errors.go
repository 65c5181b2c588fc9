package core

import "errors"

// Caller-facing error kinds. Every invariant violation surfaces one of these;
// handlers translate them to HTTP statuses with errors.Is.
var (
	ErrInvalidParticipants    = errors.New("participants must be two distinct users")
	ErrSkillOwnershipMismatch = errors.New("skill is not owned by the stated user")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrNotFound               = errors.New("not found")
	ErrAccessDenied           = errors.New("access denied")
	ErrEmptyContent           = errors.New("message content cannot be empty")
	ErrSwapNotCompleted       = errors.New("swap is not completed")
	ErrNotParticipant         = errors.New("user is not a participant of this swap")
	ErrDuplicateRating        = errors.New("swap already rated by this user")
	ErrInvalidRating          = errors.New("rating must be an integer between 1 and 5")
	ErrNotOwner               = errors.New("rating belongs to another user")
)
