package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillhub.io/skill-exchange/internal/store"
)

const DefaultMessageLimit = 100

// ConversationService owns conversations, their two-party participant sets
// and message ordering.
type ConversationService struct {
	dbStore *store.SQLiteStore
}

func NewConversationService(db *store.SQLiteStore) *ConversationService {
	return &ConversationService{dbStore: db}
}

// FindOrCreate returns the one conversation for the unordered (userA, userB)
// pair, creating it on first contact. Calling it again, in either order or
// concurrently from both sides, yields the same conversation. swapRequestID
// is attached only when the conversation is created; an existing
// conversation keeps its original linkage.
func (s *ConversationService) FindOrCreate(ctx context.Context, userAID, userBID string, swapRequestID *string) (*store.Conversation, error) {
	if userAID == userBID {
		return nil, ErrInvalidParticipants
	}

	for _, id := range []string{userAID, userBID} {
		user, err := s.dbStore.GetUserByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil {
			return nil, ErrNotFound
		}
	}

	conv, err := s.dbStore.FindOrCreateConversation(ctx, userAID, userBID, swapRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create conversation: %w", err)
	}
	return conv, nil
}

// GetMessages returns the most recent `limit` messages, oldest first.
// limit <= 0 falls back to DefaultMessageLimit.
func (s *ConversationService) GetMessages(ctx context.Context, conversationID, requesterID string, limit int) ([]store.Message, error) {
	if _, err := s.requireParticipant(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return s.dbStore.GetLastMessages(ctx, conversationID, limit)
}

// Send stores a message with a server-assigned id and timestamp and bumps the
// conversation. Not idempotent: a retried send stores a second message.
func (s *ConversationService) Send(ctx context.Context, conversationID, senderID, content, msgType string) (*store.Message, error) {
	if _, err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	if msgType == "" {
		msgType = store.MessageTypeText
	}
	if msgType != store.MessageTypeText && msgType != store.MessageTypeImage {
		return nil, fmt.Errorf("unknown message type %q", msgType)
	}
	if msgType == store.MessageTypeText && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	msg := &store.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
	}
	if err := s.dbStore.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, nil
}

// MarkRead flags every message from the other party as read. Idempotent.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, readerID string) error {
	if _, err := s.requireParticipant(ctx, conversationID, readerID); err != nil {
		return err
	}
	if _, err := s.dbStore.MarkMessagesRead(ctx, conversationID, readerID); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// ListForUser returns the user's conversations ordered by last activity, each
// with its most recent message and the viewer's unread count.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]store.ConversationSummary, error) {
	return s.dbStore.ListConversationSummaries(ctx, userID, time.Time{})
}

func (s *ConversationService) requireParticipant(ctx context.Context, conversationID, userID string) (*store.Conversation, error) {
	conv, err := s.dbStore.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return conv, nil
}
