package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/config"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/storage"
)

func testApp(t *testing.T, dbPath string) *App {
	t.Helper()
	var settings config.Settings
	settings.Database.Path = dbPath
	app, err := newApp(settings, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestHistoryWithoutDatabaseFileIsInMemory(t *testing.T) {
	for _, path := range []string{"", ":memory:"} {
		app := testApp(t, path)
		history, err := app.History()
		if err != nil {
			t.Fatalf("History(%q): %v", path, err)
		}
		if _, ok := history.(*storage.InMemoryStorage); !ok {
			t.Errorf("History(%q) = %T, want *storage.InMemoryStorage", path, history)
		}

		ctx := context.Background()
		if err := history.Append(ctx, "cli:x", llm.UserMessage("hi")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		again, _ := app.History()
		if msgs, _ := again.Load(ctx, "cli:x", 0); len(msgs) != 1 {
			t.Errorf("History(%q) is not shared across calls", path)
		}

		if _, err := app.Store(); err != nil {
			t.Errorf("Store(%q): %v", path, err)
		}
	}
}

func TestHistoryWithDatabaseFileIsSqlite(t *testing.T) {
	app := testApp(t, filepath.Join(t.TempDir(), "swasth.db"))
	history, err := app.History()
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	store, err := app.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if history != storage.ConversationStorage(store) {
		t.Errorf("History = %T, want the SQLite store", history)
	}
}

func TestAgentWithoutCredentialsIsNotConfigured(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	app := testApp(t, "")
	app.Settings.LLM.Provider = "gemini"

	if _, err := app.Agent.Get(); !errors.Is(err, agent.ErrNotConfigured) {
		t.Errorf("Get err = %v, want ErrNotConfigured", err)
	}
}
