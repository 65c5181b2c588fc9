package store

import "time"

// Swap request statuses. PENDING and ACCEPTED are the only live states;
// the rest are terminal.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Message types.
const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
)

type User struct {
	ID            string    `json:"id"` // UUID
	DisplayName   string    `json:"display_name"`
	PasswordHash  string    `json:"-"` // Do not expose this in JSON responses
	PublicProfile bool      `json:"public_profile"`
	CreatedAt     time.Time `json:"created_at"`
}

type Skill struct {
	ID        string    `json:"id"` // UUID
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type SwapRequest struct {
	ID             string    `json:"id"` // UUID
	FromUserID     string    `json:"from_user_id"`
	ToUserID       string    `json:"to_user_id"`
	SkillOfferedID string    `json:"skill_offered_id"` // owned by FromUser
	SkillWantedID  string    `json:"skill_wanted_id"`  // owned by ToUser
	Status         string    `json:"status"`
	Message        *string   `json:"message"` // Nullable
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsParticipant reports whether userID is either side of the swap.
func (sr *SwapRequest) IsParticipant(userID string) bool {
	return sr.FromUserID == userID || sr.ToUserID == userID
}

// Counterparty returns the other participant's id.
func (sr *SwapRequest) Counterparty(userID string) string {
	if sr.FromUserID == userID {
		return sr.ToUserID
	}
	return sr.FromUserID
}

// Conversation holds exactly two participants, stored in normalized order so
// the unordered pair maps to a single row.
type Conversation struct {
	ID            string    `json:"id"` // UUID
	UserLowID     string    `json:"user_low_id"`
	UserHighID    string    `json:"user_high_id"`
	SwapRequestID *string   `json:"swap_request_id"` // Nullable, set at creation only
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"` // bumped on every new message
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

func (c *Conversation) OtherParticipant(userID string) string {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

type Message struct {
	Seq            int64     `json:"-"` // commit-order sequence, assigned by the store
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"` // "TEXT" or "IMAGE"
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

type Rating struct {
	ID         string    `json:"id"` // UUID
	SwapID     string    `json:"swap_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Rating     int       `json:"rating"` // 1..5
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationSummary is the list-view shape: the conversation annotated with
// its most recent message and the number of unread messages for the viewer.
type ConversationSummary struct {
	Conversation
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}
