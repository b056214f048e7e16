package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/richinex/swasth/llm"
)

const userColumns = "id, username, full_name, hashed_password, is_admin, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.HashedPassword, &u.IsAdmin, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser inserts a user and returns it with its ID. CreatedAt defaults
// to now.
func (s *SqliteStorage) CreateUser(ctx context.Context, u User) (User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, full_name, hashed_password, is_admin, created_at) VALUES (?, ?, ?, ?, ?)",
		u.Username, u.FullName, u.HashedPassword, u.IsAdmin, u.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("failed to read user id: %w", err)
	}
	u.CreatedAt = time.Unix(u.CreatedAt.Unix(), 0).UTC()
	return u, nil
}

// UserByID returns ErrNotFound when no user has the ID.
func (s *SqliteStorage) UserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UserByUsername returns ErrNotFound when the username is unknown.
func (s *SqliteStorage) UserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first, with message counts.
func (s *SqliteStorage) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.full_name, u.hashed_password, u.is_admin, u.created_at,
			(SELECT COUNT(*) FROM messages m WHERE m.user_id = u.id)
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []UserSummary{}
	for rows.Next() {
		var us UserSummary
		var created int64
		if err := rows.Scan(&us.ID, &us.Username, &us.FullName, &us.HashedPassword, &us.IsAdmin, &created, &us.TotalMessages); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		us.CreatedAt = time.Unix(created, 0).UTC()
		users = append(users, us)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user with their messages and tokens.
func (s *SqliteStorage) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tokens WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetAdmin grants or revokes admin rights.
func (s *SqliteStorage) SetAdmin(ctx context.Context, id int64, admin bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE id = ?", admin, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts users and messages. New users are those created in the
// seven days before now.
func (s *SqliteStorage) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM users WHERE is_admin = 1),
			(SELECT COUNT(*) FROM users WHERE created_at >= ?)`,
		weekAgo).Scan(&st.TotalUsers, &st.TotalMessages, &st.TotalAdmins, &st.NewUsersThisWeek)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	if st.TotalUsers > 0 {
		avg := float64(st.TotalMessages) / float64(st.TotalUsers)
		st.AvgMessagesPerUser = math.Round(avg*100) / 100
	}
	return st, nil
}

// AddMessages stores messages for a user in one transaction.
func (s *SqliteStorage) AddMessages(ctx context.Context, userID int64, messages ...llm.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (user_id, role, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, msg := range messages {
		if _, err := stmt.ExecContext(ctx, userID, msg.Role, msg.Content, now); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a user, oldest first.
func (s *SqliteStorage) RecentMessages(ctx context.Context, userID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryMessages(ctx, `
		SELECT id, user_id, role, content, created_at FROM (
			SELECT id, user_id, role, content, created_at FROM messages
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, userID, limit)
}

// Messages returns all messages of a user, oldest first.
func (s *SqliteStorage) Messages(ctx context.Context, userID int64) ([]Message, error) {
	return s.RecentMessages(ctx, userID, 0)
}

func (s *SqliteStorage) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var created int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// ClearMessages deletes a user's chat history.
func (s *SqliteStorage) ClearMessages(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// SaveToken records a bearer token for a user.
func (s *SqliteStorage) SaveToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// TokenUser resolves a token that has not expired at now.
func (s *SqliteStorage) TokenUser(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id FROM tokens WHERE token = ? AND expires_at > ?",
		token, now.Unix()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up token: %w", err)
	}
	return userID, nil
}

// DeleteToken revokes a token.
func (s *SqliteStorage) DeleteToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens deletes tokens expired at now and reports how many.
func (s *SqliteStorage) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
