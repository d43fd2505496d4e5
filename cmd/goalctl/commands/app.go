// Package commands implements goalctl, a local client for a device-resident goal ledger.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benvon/goalquest/internal/config"
	"github.com/benvon/goalquest/internal/credentials"
	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/storage"
)

// LocalUserID owns every goal in a device store
const LocalUserID = "local"

// skipOpenAnnotation marks commands that never touch the ledger
const skipOpenAnnotation = "goalctl/no-ledger"

// App holds the state shared by every command of one invocation
type App struct {
	storeURL string
	logFile  string
	debug    bool
	name     string

	store        storage.Store
	ownsStore    bool
	completer    ai.Completer
	completerSet bool
	now          func() time.Time
	logger       *zap.Logger

	ledger    *ledger.Ledger
	assistant *ai.Assistant
}

// Option configures an App
type Option func(*App)

// WithStore uses an already opened store; the app will not close it
func WithStore(store storage.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithCompleter replaces the OpenAI completer resolved from configuration.
// A nil completer leaves the assistant unconfigured.
func WithCompleter(c ai.Completer) Option {
	return func(a *App) {
		a.completer = c
		a.completerSet = true
	}
}

// WithClock fixes the ledger clock
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// NewApp creates an App with the given options
func NewApp(opts ...Option) *App {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".goalquest"
	}
	return filepath.Join(home, ".goalquest")
}

// NewRootCmd builds the goalctl command tree around app
func NewRootCmd(app *App) *cobra.Command {
	dataDir := defaultDataDir()

	rootCmd := &cobra.Command{
		Use:           "goalctl",
		Short:         "Track goals and plan sub-tasks from the terminal",
		Long:          "goalctl keeps a goal ledger on this device and talks to the AI assistant with a key held in the OS keyring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipOpenAnnotation] != "" {
				return nil
			}
			return app.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.storeURL, "store", envOr("STORE_URL", "sqlite://"+filepath.Join(dataDir, "goalquest.db")), "goal store URL")
	flags.StringVar(&app.logFile, "log-file", filepath.Join(dataDir, "goalctl.log"), "log file; empty disables logging")
	flags.BoolVar(&app.debug, "debug", false, "enable debug logging, including LLM request previews")
	flags.StringVar(&app.name, "name", os.Getenv("USER"), "first name the assistant greets you by")

	rootCmd.AddCommand(newGoalsCmd(app))
	rootCmd.AddCommand(newChatCmd(app))
	rootCmd.AddCommand(newSubtasksCmd(app))
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newKeyCmd())

	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// open wires the ledger and the assistant. Logs go to a rotating file so the terminal stays clean.
func (a *App) open(ctx context.Context) error {
	if a.ledger != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a.logger = zap.NewNop()
	if a.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(a.logFile), 0o700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		a.logger = logger.New(logger.Options{Debug: a.debug, File: a.logFile})
	}

	if a.store == nil {
		if err := ensureSQLiteDir(a.storeURL); err != nil {
			return err
		}
		store, err := storage.Open(ctx, a.storeURL)
		if err != nil {
			return fmt.Errorf("failed to open goal store: %w", err)
		}
		a.store = store
		a.ownsStore = true
	}

	var ledgerOpts []ledger.Option
	if a.now != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(a.now))
	}
	a.ledger = ledger.New(database.NewGoalRepository(a.store), a.logger, ledgerOpts...)

	completer := a.completer
	if !a.completerSet {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		key, source := credentials.Resolve(cfg.OpenAIKey)
		completer = ai.NewCompleter(ai.OpenAIConfig{
			APIKey:    key,
			BaseURL:   cfg.AIBaseURL,
			Model:     cfg.AIModel,
			Timeout:   cfg.AITimeout,
			Logger:    a.logger,
			DebugMode: a.debug,
		})
		a.logger.Debug("ai_key_resolved", zap.String("key_source", string(source)))
	}
	a.assistant = ai.NewAssistant(completer, a.logger)
	return nil
}

func (a *App) close() error {
	if a.logger != nil {
		_ = logger.Sync(a.logger)
	}
	if a.ownsStore && a.store != nil {
		err := a.store.Close()
		a.store = nil
		a.ownsStore = false
		a.ledger = nil
		if err != nil {
			return fmt.Errorf("failed to close goal store: %w", err)
		}
	}
	return nil
}

// user is the identity the assistant addresses on this device
func (a *App) user() *models.User {
	return &models.User{ID: LocalUserID, FirstName: a.name}
}

// ensureSQLiteDir creates the parent directory of a sqlite store path
func ensureSQLiteDir(storeURL string) error {
	path, ok := strings.CutPrefix(storeURL, "sqlite://")
	if !ok || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
