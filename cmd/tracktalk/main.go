package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/TrackWise/TrackTalk/internal/api"
	"github.com/TrackWise/TrackTalk/internal/engine"
	"github.com/TrackWise/TrackTalk/internal/events"
	"github.com/TrackWise/TrackTalk/internal/genai"
	"github.com/TrackWise/TrackTalk/internal/intake"
	"github.com/TrackWise/TrackTalk/internal/otp"
	"github.com/TrackWise/TrackTalk/internal/session"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/TrackWise/TrackTalk/internal/tracking"
	"github.com/TrackWise/TrackTalk/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TrackTalk state data
	DefaultStateDir = "/var/lib/tracktalk"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "tracktalk.db"
	// DefaultEventExchange is the topic exchange for tracking lifecycle events
	DefaultEventExchange = "tracktalk.trackings"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	publisher := buildPublisher(flags)
	trackings := tracking.NewManager(st, publisher)

	genaiClient := buildGenAIClient(flags)
	intakeClient, err := intake.NewClient(buildIntakeOptions(flags)...)
	if err != nil {
		slog.Error("Failed to configure intake client", "error", err)
		os.Exit(1)
	}

	eng := engine.NewEngine(genaiClient, intakeClient, trackings)
	sessions := session.NewManager(st, eng, nil)
	defer sessions.CloseAll()

	server := api.NewServer(sessions, trackings, buildAPIOptions(flags)...)

	slog.Info("Bootstrapping TrackTalk with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := server.Start(); err != nil {
		slog.Error("TrackTalk failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("TrackTalk exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	OpenAIKey      string
	APIAddr        string
	IntakeEndpoint string
	IntakeAPIKey   string
	AMQPURL        string
	TwilioSID      string
	TwilioToken    string
	TwilioVerify   string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	openaiKey      *string
	apiAddr        *string
	intakeEndpoint *string
	intakeAPIKey   *string
	amqpURL        *string
}

// initializeLogger sets up structured logging. TRACKTALK_DEBUG=true enables
// debug level output.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("TRACKTALK_DEBUG", false) {
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
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("TRACKTALK_STATE_DIR"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		APIAddr:        os.Getenv("API_ADDR"),
		IntakeEndpoint: os.Getenv("INTAKE_ENDPOINT"),
		IntakeAPIKey:   os.Getenv("INTAKE_API_KEY"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		TwilioSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioVerify:   os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No TRACKTALK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TRACKTALK_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"INTAKE_ENDPOINT_SET", config.IntakeEndpoint != "",
		"AMQP_URL_SET", config.AMQPURL != "",
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "" && config.TwilioVerify != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for TrackTalk data (overrides $TRACKTALK_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the session and tracking store (overrides $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		intakeEndpoint: flag.String("intake-endpoint", config.IntakeEndpoint, "tracking intake endpoint (overrides $INTAKE_ENDPOINT)"),
		intakeAPIKey:   flag.String("intake-api-key", config.IntakeAPIKey, "tracking intake API key (overrides $INTAKE_API_KEY)"),
		amqpURL:        flag.String("amqp-url", config.AMQPURL, "AMQP broker URL for lifecycle events (overrides $AMQP_URL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"intakeEndpoint", *flags.intakeEndpoint,
		"amqpURL_set", *flags.amqpURL != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !isPostgresDSN(*flags.dbDSN) {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func isPostgresDSN(dsn string) bool {
	return strings.Contains(dsn, "postgres://") || strings.Contains(dsn, "host=")
}

// buildStore opens the store matching the configured DSN.
func buildStore(flags Flags) (store.Store, error) {
	if isPostgresDSN(*flags.dbDSN) {
		slog.Debug("Using Postgres store", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Using SQLite store", "path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildPublisher connects the lifecycle event publisher, falling back to the
// logging publisher when no broker is configured.
func buildPublisher(flags Flags) events.Publisher {
	if *flags.amqpURL == "" {
		slog.Info("No AMQP broker configured, lifecycle events will be logged only")
		return events.NewFallback()
	}
	pub, err := events.New(*flags.amqpURL, DefaultEventExchange)
	if err != nil {
		slog.Error("Failed to connect event broker, falling back to logging publisher", "error", err)
		return events.NewFallback()
	}
	return pub
}

// buildGenAIClient configures the AI collaborator. A missing key leaves the
// engine on its scripted fallbacks.
func buildGenAIClient(flags Flags) genai.ClientInterface {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("GenAI client not configured, using scripted fallbacks", "error", err)
		return nil
	}
	return client
}

// buildIntakeOptions constructs intake client configuration options
func buildIntakeOptions(flags Flags) []intake.Option {
	var opts []intake.Option
	if *flags.intakeEndpoint != "" {
		opts = append(opts, intake.WithEndpoint(*flags.intakeEndpoint))
	}
	if *flags.intakeAPIKey != "" {
		opts = append(opts, intake.WithAPIKey(*flags.intakeAPIKey))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if verifier, err := otp.NewClient(); err != nil {
		slog.Warn("Phone verification not configured", "error", err)
	} else {
		opts = append(opts, api.WithOTPSender(verifier))
	}
	return opts
}
