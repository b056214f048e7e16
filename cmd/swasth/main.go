// Package main provides the swasth CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/cli"
	"github.com/richinex/swasth/config"
)

var configPath string

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "swasth",
		Short: "SwasthAI, a conversational medical assistant",
		Long: `SwasthAI answers health questions with a language model that can call
medical tools: web and Wikipedia search, drug information, BMI, emergency
guidance, nearby facilities and health tips.

It is not a substitute for a doctor. In an emergency call 102, 108 or 112.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML, JSON or TOML); environment variables override it")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(toolCmd())
	rootCmd.AddCommand(greetingCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(telegramCmd())
	rootCmd.AddCommand(adminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp builds the application for one command and closes it afterwards.
func withApp(run func(ctx context.Context, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		app, err := cli.NewApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd.Context(), app)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE:  withApp(cli.Serve),
	}
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session. The conversation is stored in the
SQLite database so it can be resumed with the same --session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				history, err := app.History()
				if err != nil {
					return err
				}
				session := cli.ChatSession{
					Chat:         app.Agent,
					History:      history,
					Session:      "cli:" + sessionID,
					HistoryLimit: app.Settings.Agent.MaxHistory,
				}
				return session.Run(ctx, os.Stdin, os.Stdout)
			})(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "default", "Session ID for conversation persistence")

	return cmd
}

func askCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withApp(func(ctx context.Context, app *cli.App) error {
				a, err := app.Agent.Get()
				if err != nil {
					return fmt.Errorf("AI service not configured: %w", err)
				}
				return cli.Ask(ctx, a, question, verbose, os.Stdout)
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show iterations, tool calls and token usage")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(_ context.Context, app *cli.App) error {
				cli.ListTools(os.Stdout, app.Registry, verboseTools)
				return nil
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func toolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool [name] [json-args]",
		Short: "Run one tool directly",
		Example: `  swasth tool calculate_bmi '{"weight_kg": 70, "height_cm": 175}'
  swasth tool get_emergency_guidance '{"symptom": "chest pain"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, input := args[0], ""
			if len(args) == 2 {
				input = args[1]
			}
			return withApp(func(ctx context.Context, app *cli.App) error {
				return cli.RunTool(ctx, os.Stdout, app.Registry, name, input)
			})(cmd, args)
		},
	}
}

func greetingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "greeting",
		Short: "Print the assistant's greeting",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(agent.Greeting())
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Long: fmt.Sprintf(`Print the effective configuration as YAML. API keys and the bot token
are masked.

Supported providers: %s`, strings.Join(config.SupportedProviders(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return cli.ShowConfig(os.Stdout, settings)
		},
	}
}

func telegramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot",
		RunE:  withApp(cli.Telegram),
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var fullName, password string
	create := &cobra.Command{
		Use:   "create [username]",
		Short: "Create an admin user, or promote an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SWASTH_ADMIN_PASSWORD")
			}
			return withApp(func(ctx context.Context, app *cli.App) error {
				store, err := app.Store()
				if err != nil {
					return err
				}
				return cli.CreateAdmin(ctx, os.Stdout, store, args[0], fullName, password)
			})(cmd, args)
		},
	}
	create.Flags().StringVar(&fullName, "full-name", "Administrator", "Full name for a new admin")
	create.Flags().StringVar(&password, "password", "", "Password for a new admin (or SWASTH_ADMIN_PASSWORD)")

	cmd.AddCommand(create)
	return cmd
}
