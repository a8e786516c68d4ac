package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
)

// EnvPrefix prefixes every environment variable the CLI reads, except the
// LOG_* variables shared with the logging package.
const EnvPrefix = "LEGISYNC"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Catalog store
	DatabaseDriver string
	DatabaseDSN    string
	AutoMigrate    bool

	// Import lock; a local lock is used when RedisURL is empty
	RedisURL string
	LockTTL  time.Duration

	// Sponsor activity notifications; logged when no brokers are set
	KafkaBrokers []string
	KafkaTopic   string

	// Feed
	ListURL     string
	BillURL     string
	HTTPTimeout time.Duration

	// Imports
	ImportInterval time.Duration
	ImportTimeout  time.Duration
	MetricsAddr    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables (LEGISYNC_*)
//  3. .env files
//  4. Config file (~/.legisync.yaml or --config)
//  5. Defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile loads configuration, reading the named config file
// instead of searching the standard locations when path is set.
func LoadConfigFile(path string) (*Config, error) {
	// .env files are loaded before viper binds the environment
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+path, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".legisync")
		// A missing config file is fine
		_ = v.ReadInConfig()
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Output:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		DatabaseDriver: v.GetString("database.driver"),
		DatabaseDSN:    v.GetString("database.dsn"),
		AutoMigrate:    v.GetBool("database.auto_migrate"),

		RedisURL: v.GetString("redis.url"),
		LockTTL:  v.GetDuration("redis.lock_ttl"),

		KafkaBrokers: splitList(v.GetStringSlice("kafka.brokers")),
		KafkaTopic:   v.GetString("kafka.topic"),

		ListURL:     v.GetString("feed.list_url"),
		BillURL:     v.GetString("feed.bill_url"),
		HTTPTimeout: v.GetDuration("feed.timeout"),

		ImportInterval: v.GetDuration("import.interval"),
		ImportTimeout:  v.GetDuration("import.timeout"),
		MetricsAddr:    v.GetString("metrics.addr"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log.level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log.format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log.output")),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", constants.DefaultDriver)
	v.SetDefault("database.dsn", constants.DefaultDatabasePath)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.lock_ttl", constants.LockTTL)
	v.SetDefault("kafka.topic", constants.DefaultKafkaTopic)
	v.SetDefault("feed.list_url", constants.SessionBillsURL)
	v.SetDefault("feed.bill_url", constants.BillDetailsURL)
	v.SetDefault("feed.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("import.interval", constants.DefaultImportInterval)
	v.SetDefault("import.timeout", constants.ImportTimeout)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if output != "" {
		c.Output = output
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// godotenv never overrides variables that are already set, so .env.local
// is loaded first to take precedence over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// splitList flattens comma separated entries, as they arrive from env vars.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
