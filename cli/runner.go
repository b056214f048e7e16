// Command execution for the swasth CLI.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/auth"
	"github.com/richinex/swasth/config"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/server"
	"github.com/richinex/swasth/storage"
	"github.com/richinex/swasth/telegram"
	"github.com/richinex/swasth/tools"
)

const (
	// DefaultSession is the chat session used when none is given.
	DefaultSession = "cli:default"
	purgeInterval  = time.Hour
)

// Chatter answers one user message given the prior conversation.
type Chatter interface {
	Chat(ctx context.Context, userMessage string, history []llm.ChatMessage) (string, error)
}

// Executor runs one turn and reports how it went.
type Executor interface {
	Execute(ctx context.Context, userMessage string, history []llm.ChatMessage) agent.Response
}

// ChatSession is an interactive conversation persisted under Session.
type ChatSession struct {
	Chat         Chatter
	History      storage.ConversationStorage
	Session      string
	HistoryLimit int
}

// Run reads lines from in until EOF, "exit" or "quit". "/clear" wipes the
// session history.
func (s ChatSession) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	session := s.Session
	if session == "" {
		session = DefaultSession
	}
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = agent.DefaultMaxHistory
	}

	if ok, err := s.History.Exists(ctx, session); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	} else if ok {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("Resuming session '%s'", session)))
	}
	fmt.Fprintf(out, "%s\n\n", headerStyle.Render(agent.Greeting()))
	fmt.Fprintln(out, dimStyle.Render("Type 'exit' to quit, '/clear' to start over."))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			if err := s.History.Delete(ctx, session); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintf(out, "%s\n\n", successStyle.Render("Conversation cleared."))
			continue
		}

		history, err := s.History.Load(ctx, session, limit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		reply, err := s.Chat.Chat(ctx, input, history)
		if err != nil {
			fmt.Fprintf(out, "\n%s\n\n", errorStyle.Render(describeError(err)))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintf(out, "\n%s\n\n", reply)

		if err := s.History.Append(ctx, session, llm.UserMessage(input), llm.AssistantMessage(reply)); err != nil {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Warning: failed to save history: %v", err)))
		}
	}
	return scanner.Err()
}

func describeError(err error) string {
	if errors.Is(err, agent.ErrNotConfigured) {
		return fmt.Sprintf("AI service not configured: %v", err)
	}
	return fmt.Sprintf("Error: %v", err)
}

// Ask runs one question without history and prints the reply. With verbose
// set it also prints the turn's metadata.
func Ask(ctx context.Context, exec Executor, question string, verbose bool, out io.Writer) error {
	resp := exec.Execute(ctx, question, nil)
	if !resp.IsSuccess() {
		fmt.Fprintln(out, errorStyle.Render(describeError(resp.Err)))
		return resp.Err
	}

	fmt.Fprintf(out, "%s\n", resp.Text)
	if verbose {
		printMetadata(out, resp)
	}
	return nil
}

func printMetadata(out io.Writer, resp agent.Response) {
	meta := resp.Metadata
	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render("--- Turn ---"))
	fmt.Fprintf(out, "Result: %s\n", resp.Type)
	fmt.Fprintf(out, "Provider: %s\n", meta.Provider)
	fmt.Fprintf(out, "Iterations: %d\n", meta.Iterations)
	fmt.Fprintf(out, "Duration: %dms\n", meta.ExecutionTimeMs)
	fmt.Fprintf(out, "Tokens: %d (prompt %d, completion %d)\n",
		meta.TokenUsage.TotalTokens, meta.TokenUsage.PromptTokens, meta.TokenUsage.CompletionTokens)
	if meta.Emergency {
		fmt.Fprintln(out, warnStyle.Render("Emergency guidance given"))
	}
	for _, tc := range meta.ToolCalls {
		status := successStyle.Render("ok")
		if !tc.Success {
			status = errorStyle.Render("failed")
		}
		fmt.Fprintf(out, "  %s [%s] attempts=%d %dms\n", tc.Name, status, tc.Attempts, tc.DurationMs)
	}
}

// ListTools lists the tools in the registry.
func ListTools(out io.Writer, registry *tools.Registry, verbose bool) {
	fmt.Fprintln(out, headerStyle.Render("Available tools:"))
	fmt.Fprintln(out)

	for _, meta := range registry.List() {
		fmt.Fprintf(out, "  %s\n", promptStyle.Render(meta.Name))
		fmt.Fprintf(out, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(out, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(out, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(out)
	}
}

// RunTool invokes a single tool with JSON arguments, outside any agent turn.
func RunTool(ctx context.Context, out io.Writer, registry *tools.Registry, name, args string) error {
	if !registry.Has(name) {
		return fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(registry.Names(), ", "))
	}
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	inv := registry.Dispatch(ctx, llm.ToolCall{
		ID:        uuid.NewString(),
		Name:      name,
		Arguments: []byte(args),
	})
	fmt.Fprintln(out, inv.Output)
	if !inv.Metrics.Success {
		return fmt.Errorf("tool %s did not succeed", name)
	}
	return nil
}

// ShowConfig prints the effective settings as YAML with secrets masked.
func ShowConfig(out io.Writer, settings config.Settings) error {
	data, err := yaml.Marshal(settings.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	authSvc := auth.NewService(store, app.Settings.Auth.TokenTTL, auth.WithLogger(app.Logger.Named("auth")))

	srv := server.New(app.Agent, authSvc, store, server.Options{
		Provider:     app.Settings.LLM.Provider,
		HistoryLimit: app.Settings.Agent.MaxHistory,
		Logger:       app.Logger.Named("http"),
	})

	go purgeTokens(ctx, authSvc, app.Logger)

	app.Logger.Info("starting server",
		zap.String("addr", app.Settings.Server.Addr()),
		zap.String("provider", app.Settings.LLM.Provider),
	)
	return srv.Start(ctx, app.Settings.Server.Addr())
}

func purgeTokens(ctx context.Context, authSvc *auth.Service, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authSvc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("failed to purge expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired tokens", zap.Int64("count", n))
			}
		}
	}
}

// Telegram runs the Telegram bot until ctx is cancelled.
func Telegram(ctx context.Context, app *App) error {
	token := app.Settings.Telegram.BotToken
	if token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	bot, err := telegram.Connect(token)
	if err != nil {
		return err
	}
	history, err := app.History()
	if err != nil {
		return err
	}

	app.Logger.Info("telegram bot started", zap.String("username", bot.Self.UserName))
	ch := telegram.New(bot, app.Agent, history, telegram.Options{
		HistoryLimit: app.Settings.Agent.MaxHistory,
		Logger:       app.Logger.Named("telegram"),
	})
	return ch.Run(ctx)
}

// CreateAdmin creates an admin account, or promotes an existing user.
func CreateAdmin(ctx context.Context, out io.Writer, users storage.UserStore, username, fullName, password string) error {
	authSvc := auth.NewService(users, auth.DefaultTokenTTL)
	user, created, err := authSvc.CreateAdmin(ctx, username, fullName, password)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Admin user '%s' created", user.Username)))
	} else {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("User '%s' promoted to admin", user.Username)))
	}
	return nil
}
