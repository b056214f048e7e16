// Application wiring shared by the CLI commands.

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/config"
	"github.com/richinex/swasth/storage"
	"github.com/richinex/swasth/tools"
)

// App holds the long-lived components built from settings.
type App struct {
	Settings config.Settings
	Logger   *zap.Logger
	Registry *tools.Registry
	Agent    *agent.Lazy

	store   *storage.SqliteStorage
	history *storage.InMemoryStorage
}

// NewApp loads settings and builds the logger, tool registry and agent.
// The model provider is resolved on first use, so commands that never
// chat work without credentials.
func NewApp(configPath string) (*App, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := settings.Logger()
	if err != nil {
		return nil, err
	}
	return newApp(settings, logger)
}

func newApp(settings config.Settings, logger *zap.Logger) (*App, error) {
	registry, err := tools.Default(settings.ToolsConfig(), logger.Named("tools"))
	if err != nil {
		return nil, err
	}
	app := &App{
		Settings: settings,
		Logger:   logger,
		Registry: registry,
	}
	app.Agent = agent.NewLazy(app.buildAgent)
	return app, nil
}

func (a *App) buildAgent() (*agent.Agent, error) {
	provider, err := a.Settings.NewProvider()
	if err != nil {
		a.Logger.Warn("model provider unavailable",
			zap.String("provider", a.Settings.LLM.Provider),
			zap.Error(err),
		)
		return nil, err
	}
	a.Logger.Info("model provider ready",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
	)
	cfg := a.Settings.AgentConfig()
	return agent.NewBuilder(provider).
		Name(cfg.Name).
		Toolbox(a.Registry).
		Logger(a.Logger).
		MaxIterations(cfg.MaxIterations).
		MaxHistory(cfg.MaxHistory).
		ModelTimeout(cfg.ModelTimeout).
		ParallelTools(cfg.ParallelTools).
		EmergencyGuard(cfg.EmergencyGuard).
		Build()
}

// Store opens the SQLite database on first call. An empty path or
// ":memory:" gives a private in-memory database.
func (a *App) Store() (*storage.SqliteStorage, error) {
	if a.store != nil {
		return a.store, nil
	}
	var (
		store *storage.SqliteStorage
		err   error
	)
	if ephemeral(a.Settings.Database.Path) {
		store, err = storage.NewSqliteInMemory()
	} else {
		store, err = storage.OpenSqlite(a.Settings.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store
	return store, nil
}

// History returns the conversation store used by the chat REPL and the
// Telegram bot. Without a database file, history lives in process memory.
func (a *App) History() (storage.ConversationStorage, error) {
	if ephemeral(a.Settings.Database.Path) {
		if a.history == nil {
			a.history = storage.NewInMemoryStorage()
		}
		return a.history, nil
	}
	return a.Store()
}

func ephemeral(path string) bool {
	return path == "" || path == ":memory:"
}

// Close releases the database and flushes the logger.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	_ = a.Logger.Sync()
	return err
}
