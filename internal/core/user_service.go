package core

import (
	"context"
	"fmt"

	"skillhub.io/skill-exchange/internal/store"
)

// UserService is the thin identity/profile boundary around the core: account
// registration and the skill facts the swap engine validates against.
type UserService struct {
	dbStore *store.SQLiteStore
}

func NewUserService(db *store.SQLiteStore) *UserService {
	return &UserService{dbStore: db}
}

func (s *UserService) Register(ctx context.Context, displayName, passwordHash string) (*store.User, error) {
	user, err := s.dbStore.CreateUser(ctx, displayName, passwordHash)
	if err != nil {
		return nil, err // unique-violation checked by the caller
	}
	return user, nil
}

func (s *UserService) GetByDisplayName(ctx context.Context, displayName string) (*store.User, error) {
	return s.dbStore.GetUserByDisplayName(ctx, displayName)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*store.User, error) {
	return s.dbStore.GetUserByID(ctx, id)
}

func (s *UserService) AddSkill(ctx context.Context, ownerID, name, category string) (*store.Skill, error) {
	return s.dbStore.CreateSkill(ctx, ownerID, name, category)
}

// SkillsFor lists a user's skills. Unknown users yield ErrNotFound rather
// than an empty list.
func (s *UserService) SkillsFor(ctx context.Context, userID string) ([]store.Skill, error) {
	user, err := s.dbStore.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return s.dbStore.GetSkillsByOwner(ctx, userID)
}
