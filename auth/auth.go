// Package auth registers users, checks passwords and issues the opaque
// bearer tokens the HTTP API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/richinex/swasth/storage"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrUnauthorized is returned for a missing, unknown or expired token.
	ErrUnauthorized = errors.New("could not validate credentials")
	// ErrForbidden is returned when a non-admin asks for admin access.
	ErrForbidden = errors.New("admin access required")
	// ErrUsernameTaken is returned when signing up with a registered username.
	ErrUsernameTaken = storage.ErrUsernameTaken
)

// ValidationError describes a rejected signup field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Token is the login response.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// Service implements signup, login and token checks over a UserStore.
type Service struct {
	store  storage.UserStore
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a service issuing tokens valid for ttl.
func NewService(store storage.UserStore, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &Service{
		store:  store,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashPassword returns the bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeUsername validates a username and returns it lowercased.
// Usernames are 3 to 50 letters or digits; underscores and hyphens are
// allowed.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return "", &ValidationError{Field: "username", Reason: "must be 3 to 50 characters"}
	}
	for _, r := range username {
		if r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", &ValidationError{Field: "username", Reason: "must be alphanumeric (underscores and hyphens allowed)"}
		}
	}
	return strings.ToLower(username), nil
}

func validateSignup(fullName, password string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(fullName)); n < 2 || n > 100 {
		return &ValidationError{Field: "full_name", Reason: "must be 2 to 100 characters"}
	}
	if utf8.RuneCountInString(password) < 6 {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	return nil
}

// Signup registers a user and logs them in.
func (s *Service) Signup(ctx context.Context, username, fullName, password string) (Token, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return Token{}, err
	}
	if err := validateSignup(fullName, password); err != nil {
		return Token{}, err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return Token{}, err
	}

	u, err := s.store.CreateUser(ctx, storage.User{
		Username:       username,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hash,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return Token{}, err
	}
	s.logger.Info("user registered", zap.String("username", u.Username), zap.Int64("user_id", u.ID))
	return s.issue(ctx, u)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.store.UserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, storage.ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, err
	}
	if !CheckPassword(u.HashedPassword, password) {
		s.logger.Debug("login rejected", zap.String("username", u.Username))
		return Token{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

func (s *Service) issue(ctx context.Context, u storage.User) (Token, error) {
	tok := Token{
		AccessToken: uuid.NewString(),
		TokenType:   "bearer",
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.store.SaveToken(ctx, tok.AccessToken, u.ID, tok.ExpiresAt); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (storage.User, error) {
	if token == "" {
		return storage.User{}, ErrUnauthorized
	}
	id, err := s.store.TokenUser(ctx, token, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, ErrUnauthorized
	}
	if err != nil {
		return storage.User{}, err
	}
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, ErrUnauthorized
	}
	return u, err
}

// RequireAdmin resolves a token and checks that its user is an admin.
func (s *Service) RequireAdmin(ctx context.Context, token string) (storage.User, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return storage.User{}, err
	}
	if !u.IsAdmin {
		return storage.User{}, ErrForbidden
	}
	return u, nil
}

// Logout revokes a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteToken(ctx, token)
}

// CreateAdmin registers an admin, or promotes the user if the username
// already exists.
func (s *Service) CreateAdmin(ctx context.Context, username, fullName, password string) (storage.User, bool, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return storage.User{}, false, err
	}
	if existing, err := s.store.UserByUsername(ctx, username); err == nil {
		if err := s.store.SetAdmin(ctx, existing.ID, true); err != nil {
			return storage.User{}, false, err
		}
		existing.IsAdmin = true
		s.logger.Info("user promoted to admin", zap.String("username", username))
		return existing, false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, false, err
	}

	if err := validateSignup(fullName, password); err != nil {
		return storage.User{}, false, err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return storage.User{}, false, err
	}
	u, err := s.store.CreateUser(ctx, storage.User{
		Username:       username,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hash,
		IsAdmin:        true,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return storage.User{}, false, err
	}
	s.logger.Info("admin created", zap.String("username", username))
	return u, true, nil
}

// PurgeExpired deletes expired tokens.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpiredTokens(ctx, s.now())
}
