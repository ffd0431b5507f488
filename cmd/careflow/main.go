package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dhruvj7/careflow/internal/api"
	"github.com/dhruvj7/careflow/internal/assistant"
	"github.com/dhruvj7/careflow/internal/lockfile"
	"github.com/dhruvj7/careflow/internal/store"
	"github.com/dhruvj7/careflow/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CareFlow state data
	DefaultStateDir = "/var/lib/careflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "careflow.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// File-based storage cannot be shared between instances
	if usesFileStorage(*flags.dbDSN) {
		lock, err := lockfile.Acquire(*flags.stateDir)
		if err != nil {
			slog.Error("Failed to lock state directory", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	st, err := store.NewFromDSN(*flags.dbDSN)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	assistantOpts := buildAssistantOptions(flags)
	apiOpts := buildAPIOptions(flags, st, assistant.NewClient(assistantOpts...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping CareFlow with configured modules")
	slog.Debug("Final configuration", "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "assistant_url", *flags.assistantURL)
	if err := api.NewServer(apiOpts...).Run(ctx); err != nil {
		slog.Error("CareFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CareFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	APIAddr          string
	AssistantURL     string
	AssistantTimeout string
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	apiAddr          *string
	assistantURL     *string
	assistantTimeout *string
}

// initializeLogger sets up structured logging. CAREFLOW_DEBUG=true lowers the
// level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CAREFLOW_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("CAREFLOW_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		AssistantURL:     os.Getenv("ASSISTANT_URL"),
		AssistantTimeout: os.Getenv("ASSISTANT_TIMEOUT"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CAREFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CAREFLOW_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"ASSISTANT_URL", config.AssistantURL,
		"ASSISTANT_TIMEOUT", config.AssistantTimeout)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", config.StateDir, "state directory for CareFlow data (overrides $CAREFLOW_STATE_DIR)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN: SQLite path, postgres:// or redis:// URL (overrides $DATABASE_URL)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		assistantURL:     flag.String("assistant-url", config.AssistantURL, "assistant backend base URL (overrides $ASSISTANT_URL)"),
		assistantTimeout: flag.String("assistant-timeout", config.AssistantTimeout, "assistant request timeout, e.g. 30s (overrides $ASSISTANT_TIMEOUT)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"assistantURL", *flags.assistantURL,
		"assistantTimeout", *flags.assistantTimeout)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// usesFileStorage reports whether the DSN points at the local filesystem.
func usesFileStorage(dsn string) bool {
	return dsn != "" && !strings.Contains(dsn, "://") && !strings.Contains(dsn, "host=")
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	dsn := *flags.dbDSN
	if !usesFileStorage(dsn) {
		return nil
	}
	stateDir := filepath.Dir(dsn)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildAssistantOptions constructs assistant client configuration options
func buildAssistantOptions(flags Flags) []assistant.Option {
	var opts []assistant.Option
	if *flags.assistantURL != "" {
		opts = append(opts, assistant.WithBaseURL(*flags.assistantURL))
	}
	if *flags.assistantTimeout != "" {
		if d, err := time.ParseDuration(*flags.assistantTimeout); err == nil {
			opts = append(opts, assistant.WithTimeout(d))
		} else {
			slog.Warn("Invalid assistant timeout, using default", "value", *flags.assistantTimeout, "error", err)
		}
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, st store.Store, client *assistant.Client) []api.Option {
	opts := []api.Option{
		api.WithStore(st),
		api.WithAssistant(client),
	}
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}
