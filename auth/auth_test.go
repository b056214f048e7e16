package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/richinex/swasth/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *clock) {
	t.Helper()
	store, err := storage.NewSqliteInMemory()
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	c := &clock{t: time.Now()}
	return NewService(store, time.Hour, WithClock(c.now), WithBcryptCost(bcrypt.MinCost)), c
}

func TestSignupLoginAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.Signup(ctx, "Asha_Devi", "Asha Devi", "secret1")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Errorf("token = %+v", tok)
	}

	u, err := svc.Authenticate(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Username != "asha_devi" || u.FullName != "Asha Devi" {
		t.Errorf("user = %+v", u)
	}

	login, err := svc.Login(ctx, "ASHA_DEVI", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.AccessToken == tok.AccessToken {
		t.Error("login reused the signup token")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Signup(ctx, "ravi", "Ravi Kumar", "secret1"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := svc.Login(ctx, "ravi", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name, username, fullName, password, field string
	}{
		{"short username", "ab", "Full Name", "secret1", "username"},
		{"symbols", "bad name!", "Full Name", "secret1", "username"},
		{"short password", "gooduser", "Full Name", "12345", "password"},
		{"short name", "gooduser", "X", "secret1", "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.username, tt.fullName, tt.password)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("err = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestSignupDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Signup(ctx, "mina", "Mina", "secret1"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "MINA", "Mina Two", "secret2"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()
	tok, err := svc.Signup(ctx, "sita", "Sita", "secret1")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	c.t = c.t.Add(2 * time.Hour)
	if _, err := svc.Authenticate(ctx, tok.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expired token: %v", err)
	}
	if n, err := svc.PurgeExpired(ctx); err != nil || n != 1 {
		t.Errorf("PurgeExpired = %d, %v", n, err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("empty token: %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tok, _ := svc.Signup(ctx, "gopal", "Gopal", "secret1")

	if err := svc.Logout(ctx, tok.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, tok.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked token: %v", err)
	}
}

func TestCreateAdminAndRequireAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	userTok, _ := svc.Signup(ctx, "plain", "Plain User", "secret1")
	if _, err := svc.RequireAdmin(ctx, userTok.AccessToken); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin: %v", err)
	}

	admin, created, err := svc.CreateAdmin(ctx, "root", "Root Admin", "secret1")
	if err != nil || !created || !admin.IsAdmin {
		t.Fatalf("CreateAdmin = %+v, %v, %v", admin, created, err)
	}
	adminTok, _ := svc.Login(ctx, "root", "secret1")
	if _, err := svc.RequireAdmin(ctx, adminTok.AccessToken); err != nil {
		t.Errorf("admin rejected: %v", err)
	}

	promoted, created, err := svc.CreateAdmin(ctx, "plain", "", "")
	if err != nil || created || !promoted.IsAdmin {
		t.Errorf("promote = %+v, %v, %v", promoted, created, err)
	}
	if _, err := svc.RequireAdmin(ctx, userTok.AccessToken); err != nil {
		t.Errorf("promoted user rejected: %v", err)
	}
}

func TestCheckPassword(t *testing.T) {
	svc := NewService(nil, 0, WithBcryptCost(bcrypt.MinCost))
	hash, err := svc.HashPassword("namaste")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "namaste") || CheckPassword(hash, "Namaste") {
		t.Error("CheckPassword mismatch")
	}
}
