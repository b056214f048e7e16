// Package storage persists users, their chat history and bearer tokens,
// and the conversation history of channels without accounts.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interfaces
// - Allows swapping between memory and SQLite without API changes

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/richinex/swasth/llm"
)

var (
	// ErrNotFound is returned when a user or token does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already registered")
)

// ConversationStorage keeps message history per session. Sessions are
// opaque keys such as a Telegram chat ID or a CLI profile name.
type ConversationStorage interface {
	// Append adds messages to the end of a session's history.
	Append(ctx context.Context, sessionID string, messages ...llm.ChatMessage) error

	// Load returns the last limit messages in chronological order, or all
	// of them when limit <= 0. Returns an empty slice for unknown sessions.
	Load(ctx context.Context, sessionID string, limit int) ([]llm.ChatMessage, error)

	// Delete removes a session and its history.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// User is a registered account.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	HashedPassword string    `json:"-"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is a user with their message count.
type UserSummary struct {
	User
	TotalMessages int `json:"total_messages"`
}

// Message is one stored chat message of a user.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage converts a stored message for the agent.
func (m Message) ChatMessage() llm.ChatMessage {
	return llm.ChatMessage{Role: m.Role, Content: m.Content}
}

// Stats summarizes platform usage.
type Stats struct {
	TotalUsers         int     `json:"total_users"`
	TotalMessages      int     `json:"total_messages"`
	TotalAdmins        int     `json:"total_admins"`
	NewUsersThisWeek   int     `json:"new_users_this_week"`
	AvgMessagesPerUser float64 `json:"avg_messages_per_user"`
}

// UserStore manages accounts, their chat history and bearer tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]UserSummary, error)
	DeleteUser(ctx context.Context, id int64) error
	SetAdmin(ctx context.Context, id int64, admin bool) error
	Stats(ctx context.Context, now time.Time) (Stats, error)

	AddMessages(ctx context.Context, userID int64, messages ...llm.ChatMessage) error
	RecentMessages(ctx context.Context, userID int64, limit int) ([]Message, error)
	Messages(ctx context.Context, userID int64) ([]Message, error)
	ClearMessages(ctx context.Context, userID int64) error

	SaveToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	TokenUser(ctx context.Context, token string, now time.Time) (int64, error)
	DeleteToken(ctx context.Context, token string) error
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
