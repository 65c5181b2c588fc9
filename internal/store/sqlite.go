package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; one pooled connection avoids SQLITE_BUSY
	// and keeps :memory: databases on a single handle.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        display_name TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        public_profile BOOLEAN DEFAULT TRUE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS skills (
        id TEXT PRIMARY KEY, -- UUID
        owner_id TEXT NOT NULL,
        name TEXT NOT NULL,
        category TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (owner_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS swap_requests (
        id TEXT PRIMARY KEY, -- UUID
        from_user_id TEXT NOT NULL,
        to_user_id TEXT NOT NULL,
        skill_offered_id TEXT NOT NULL,
        skill_wanted_id TEXT NOT NULL,
        status TEXT NOT NULL CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED', 'CANCELLED', 'COMPLETED')),
        message TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (from_user_id) REFERENCES users (id),
        FOREIGN KEY (to_user_id) REFERENCES users (id),
        FOREIGN KEY (skill_offered_id) REFERENCES skills (id),
        FOREIGN KEY (skill_wanted_id) REFERENCES skills (id)
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user_low_id TEXT NOT NULL,
        user_high_id TEXT NOT NULL,
        swap_request_id TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_low_id, user_high_id),
        FOREIGN KEY (user_low_id) REFERENCES users (id),
        FOREIGN KEY (user_high_id) REFERENCES users (id),
        FOREIGN KEY (swap_request_id) REFERENCES swap_requests (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT, -- commit order
        id TEXT UNIQUE NOT NULL, -- UUID
        conversation_id TEXT NOT NULL,
        sender_id TEXT NOT NULL,
        content TEXT NOT NULL,
        type TEXT NOT NULL CHECK (type IN ('TEXT', 'IMAGE')),
        is_read BOOLEAN DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id),
        FOREIGN KEY (sender_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS ratings (
        id TEXT PRIMARY KEY, -- UUID
        swap_id TEXT NOT NULL,
        from_user_id TEXT NOT NULL,
        to_user_id TEXT NOT NULL,
        rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
        comment TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (swap_id, from_user_id),
        FOREIGN KEY (swap_id) REFERENCES swap_requests (id),
        FOREIGN KEY (from_user_id) REFERENCES users (id),
        FOREIGN KEY (to_user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure from
// the driver.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// User methods

func (s *SQLiteStore) CreateUser(ctx context.Context, displayName, passwordHash string) (*User, error) {
	user := &User{
		ID:            uuid.NewString(),
		DisplayName:   displayName,
		PasswordHash:  passwordHash,
		PublicProfile: true,
		CreatedAt:     time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, display_name, password_hash, public_profile, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.DisplayName, user.PasswordHash, user.PublicProfile, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, display_name, password_hash, public_profile, created_at FROM users WHERE id = ?", id))
}

func (s *SQLiteStore) GetUserByDisplayName(ctx context.Context, displayName string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, display_name, password_hash, public_profile, created_at FROM users WHERE display_name = ?", displayName))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.DisplayName, &user.PasswordHash, &user.PublicProfile, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Skill methods

func (s *SQLiteStore) CreateSkill(ctx context.Context, ownerID, name, category string) (*Skill, error) {
	skill := &Skill{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Category:  category,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO skills (id, owner_id, name, category, created_at) VALUES (?, ?, ?, ?, ?)",
		skill.ID, skill.OwnerID, skill.Name, skill.Category, skill.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert skill: %w", err)
	}
	return skill, nil
}

func (s *SQLiteStore) GetSkillByID(ctx context.Context, id string) (*Skill, error) {
	var skill Skill
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, category, created_at FROM skills WHERE id = ?", id).
		Scan(&skill.ID, &skill.OwnerID, &skill.Name, &skill.Category, &skill.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query skill: %w", err)
	}
	return &skill, nil
}

func (s *SQLiteStore) GetSkillsByOwner(ctx context.Context, ownerID string) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, name, category, created_at FROM skills WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var skill Skill
		if err := rows.Scan(&skill.ID, &skill.OwnerID, &skill.Name, &skill.Category, &skill.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill row: %w", err)
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

// SwapRequest methods

func (s *SQLiteStore) CreateSwapRequest(ctx context.Context, sr *SwapRequest) error {
	sr.ID = uuid.NewString()
	sr.Status = StatusPending
	now := time.Now()
	sr.CreatedAt = now
	sr.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO swap_requests (id, from_user_id, to_user_id, skill_offered_id, skill_wanted_id, status, message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.FromUserID, sr.ToUserID, sr.SkillOfferedID, sr.SkillWantedID, sr.Status, sr.Message, sr.CreatedAt, sr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert swap request: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSwapRequestByID(ctx context.Context, id string) (*SwapRequest, error) {
	var sr SwapRequest
	var message sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, from_user_id, to_user_id, skill_offered_id, skill_wanted_id, status, message, created_at, updated_at
         FROM swap_requests WHERE id = ?`, id).
		Scan(&sr.ID, &sr.FromUserID, &sr.ToUserID, &sr.SkillOfferedID, &sr.SkillWantedID, &sr.Status, &message, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query swap request: %w", err)
	}
	if message.Valid {
		sr.Message = &message.String
	}
	return &sr, nil
}

// UpdateSwapStatus moves a swap request from expectedStatus to newStatus.
// The WHERE clause re-checks the stored status, so a concurrent transition
// that got there first leaves this update with zero affected rows.
func (s *SQLiteStore) UpdateSwapStatus(ctx context.Context, id, expectedStatus, newStatus string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE swap_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		newStatus, time.Now(), id, expectedStatus)
	if err != nil {
		return false, fmt.Errorf("failed to execute swap status update: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *SQLiteStore) ListSwapRequestsSent(ctx context.Context, userID string) ([]SwapRequest, error) {
	return s.querySwapRequests(ctx,
		"WHERE from_user_id = ?", userID)
}

func (s *SQLiteStore) ListSwapRequestsReceived(ctx context.Context, userID string) ([]SwapRequest, error) {
	return s.querySwapRequests(ctx,
		"WHERE to_user_id = ?", userID)
}

// ListSwapRequestsUpdatedSince returns swaps in either direction touched after
// the given cursor, for poll-based reconciliation.
func (s *SQLiteStore) ListSwapRequestsUpdatedSince(ctx context.Context, userID string, since time.Time) ([]SwapRequest, error) {
	return s.querySwapRequests(ctx,
		"WHERE (from_user_id = ? OR to_user_id = ?) AND updated_at > ?", userID, userID, since)
}

func (s *SQLiteStore) querySwapRequests(ctx context.Context, where string, args ...interface{}) ([]SwapRequest, error) {
	query := `SELECT id, from_user_id, to_user_id, skill_offered_id, skill_wanted_id, status, message, created_at, updated_at
        FROM swap_requests ` + where + ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query swap requests: %w", err)
	}
	defer rows.Close()

	var requests []SwapRequest
	for rows.Next() {
		var sr SwapRequest
		var message sql.NullString
		if err := rows.Scan(&sr.ID, &sr.FromUserID, &sr.ToUserID, &sr.SkillOfferedID, &sr.SkillWantedID, &sr.Status, &message, &sr.CreatedAt, &sr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan swap request row: %w", err)
		}
		if message.Valid {
			sr.Message = &message.String
		}
		requests = append(requests, sr)
	}
	return requests, rows.Err()
}

// Conversation methods

// FindOrCreateConversation returns the single conversation for the unordered
// (userA, userB) pair, creating it when absent. The UNIQUE(user_low_id,
// user_high_id) index plus INSERT OR IGNORE means a concurrent first contact
// from both sides still produces exactly one row; the loser re-selects the
// winner's conversation. swapRequestID is only applied on creation, an
// existing conversation is never re-linked.
func (s *SQLiteStore) FindOrCreateConversation(ctx context.Context, userAID, userBID string, swapRequestID *string) (*Conversation, error) {
	low, high := userAID, userBID
	if low > high {
		low, high = high, low
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, user_low_id, user_high_id, swap_request_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), low, high, swapRequestID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	conv, err := s.getConversationByPair(ctx, low, high)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation missing after find-or-create for pair (%s, %s)", low, high)
	}
	return conv, nil
}

func (s *SQLiteStore) getConversationByPair(ctx context.Context, low, high string) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx,
		`SELECT id, user_low_id, user_high_id, swap_request_id, created_at, updated_at
         FROM conversations WHERE user_low_id = ? AND user_high_id = ?`, low, high))
}

func (s *SQLiteStore) GetConversationByID(ctx context.Context, id string) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx,
		`SELECT id, user_low_id, user_high_id, swap_request_id, created_at, updated_at
         FROM conversations WHERE id = ?`, id))
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*Conversation, error) {
	var conv Conversation
	var swapID sql.NullString
	err := row.Scan(&conv.ID, &conv.UserLowID, &conv.UserHighID, &swapID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	if swapID.Valid {
		conv.SwapRequestID = &swapID.String
	}
	return &conv, nil
}

// Message methods

// CreateMessage stores the message and bumps the conversation's updated_at in
// the same transaction. ID and CreatedAt are assigned here, never taken from
// the caller.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	msg.Read = false

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, type, is_read, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.Type, msg.Read, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.Seq, _ = res.LastInsertId()

	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", msg.CreatedAt, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to bump conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// GetLastMessages returns the most recent `limit` messages of a conversation
// in ascending commit order, so callers render oldest-first without
// re-sorting.
func (s *SQLiteStore) GetLastMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, conversation_id, sender_id, content, type, is_read, created_at
         FROM messages WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Type, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into ascending order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) GetLastMessage(ctx context.Context, conversationID string) (*Message, error) {
	msgs, err := s.GetLastMessages(ctx, conversationID, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// MarkMessagesRead flags every message not sent by readerID as read. Repeat
// calls match zero rows and are no-ops.
func (s *SQLiteStore) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET is_read = TRUE WHERE conversation_id = ? AND sender_id != ? AND is_read = FALSE",
		conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *SQLiteStore) CountUnread(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id != ? AND is_read = FALSE",
		conversationID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// ListConversationSummaries returns the user's conversations ordered by
// updated_at descending, each with unread count and most recent message.
// A zero `since` returns everything; otherwise only conversations touched
// after the cursor.
func (s *SQLiteStore) ListConversationSummaries(ctx context.Context, userID string, since time.Time) ([]ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.user_low_id, c.user_high_id, c.swap_request_id, c.created_at, c.updated_at,
            (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.sender_id != ? AND m.is_read = FALSE)
         FROM conversations c
         WHERE (c.user_low_id = ? OR c.user_high_id = ?) AND c.updated_at > ?
         ORDER BY c.updated_at DESC`,
		userID, userID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var swapID sql.NullString
		if err := rows.Scan(&sum.ID, &sum.UserLowID, &sum.UserHighID, &swapID, &sum.CreatedAt, &sum.UpdatedAt, &sum.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if swapID.Valid {
			sum.SwapRequestID = &swapID.String
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		last, err := s.GetLastMessage(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].LastMessage = last
	}
	return summaries, nil
}

// Rating methods

func (s *SQLiteStore) CreateRating(ctx context.Context, r *Rating) error {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings (id, swap_id, from_user_id, to_user_id, rating, comment, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SwapID, r.FromUserID, r.ToUserID, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return err // caller maps this to its duplicate error
		}
		return fmt.Errorf("failed to insert rating: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRatingByID(ctx context.Context, id string) (*Rating, error) {
	return s.scanRating(s.db.QueryRowContext(ctx,
		`SELECT id, swap_id, from_user_id, to_user_id, rating, comment, created_at FROM ratings WHERE id = ?`, id))
}

func (s *SQLiteStore) GetRatingForSwapByRater(ctx context.Context, swapID, raterID string) (*Rating, error) {
	return s.scanRating(s.db.QueryRowContext(ctx,
		`SELECT id, swap_id, from_user_id, to_user_id, rating, comment, created_at
         FROM ratings WHERE swap_id = ? AND from_user_id = ?`, swapID, raterID))
}

func (s *SQLiteStore) scanRating(row *sql.Row) (*Rating, error) {
	var r Rating
	var comment sql.NullString
	err := row.Scan(&r.ID, &r.SwapID, &r.FromUserID, &r.ToUserID, &r.Rating, &comment, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query rating: %w", err)
	}
	if comment.Valid {
		r.Comment = &comment.String
	}
	return &r, nil
}

// UpdateRating overwrites rating and comment in place; created_at and the
// swap linkage never change.
func (s *SQLiteStore) UpdateRating(ctx context.Context, id string, rating int, comment *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE ratings SET rating = ?, comment = ? WHERE id = ?", rating, comment, id)
	if err != nil {
		return fmt.Errorf("failed to execute rating update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("rating not found, nothing updated")
	}
	return nil
}

// AverageRatingFor returns the mean rating received by userID and the number
// of ratings behind it. No ratings yields (0, 0) rather than an error.
func (s *SQLiteStore) AverageRatingFor(ctx context.Context, userID string) (float64, int, error) {
	var avg float64
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM ratings WHERE to_user_id = ?", userID).
		Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query rating average: %w", err)
	}
	return avg, count, nil
}
