// ABOUTME: Configuration loading and parsing for slack-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete slack-relay configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Slack   SlackConfig   `yaml:"slack"`
	Google  GoogleConfig  `yaml:"google"`
	Agent   AgentConfig   `yaml:"agent"`
	Dedupe  DedupeConfig  `yaml:"dedupe"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	ShutdownGrace    time.Duration `yaml:"-"`
	ShutdownGraceRaw string        `yaml:"shutdown_grace"`
}

// SlackConfig holds Slack integration configuration.
// BotToken and SigningSecret may be left empty in the file and resolved
// from Secret Manager at startup instead.
type SlackConfig struct {
	EventsPath    string `yaml:"events_path"`
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
}

// GoogleConfig holds Google Cloud project configuration
type GoogleConfig struct {
	ProjectID     string `yaml:"project_id"`
	Location      string `yaml:"location"`
	StagingBucket string `yaml:"staging_bucket"`

	// SecretName is the Secret Manager secret holding the bot credentials
	// as a JSON payload. Required unless slack.bot_token, slack.signing_secret
	// and agent.resource_id are all set inline.
	SecretName string `yaml:"secret_name"`
}

// AgentConfig holds remote agent engine configuration
type AgentConfig struct {
	// ResourceID is the full agent engine resource name, e.g.
	// "projects/p/locations/us-central1/reasoningEngines/123".
	// May be left empty and resolved from the bot secret instead.
	ResourceID string `yaml:"resource_id"`

	Greeting string `yaml:"greeting"`
	Ack      string `yaml:"ack"`
	Fallback string `yaml:"fallback"`

	AckDelay    time.Duration `yaml:"-"`
	AckDelayRaw string        `yaml:"ack_delay"`
}

// DedupeConfig holds event deduplication cache configuration
type DedupeConfig struct {
	MaxSize int `yaml:"max_size"`

	TTL    time.Duration `yaml:"-"`
	TTLRaw string        `yaml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after parsing for fields the file may omit.
const (
	DefaultAckDelay      = 2 * time.Second
	DefaultDedupeTTL     = 5 * time.Minute
	DefaultDedupeMaxSize = 4096
	DefaultShutdownGrace = 30 * time.Second
	DefaultEventsPath    = "/slack/events"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Slack.EventsPath == "" {
		c.Slack.EventsPath = DefaultEventsPath
	}
	if c.Agent.AckDelayRaw == "" {
		c.Agent.AckDelay = DefaultAckDelay
	}
	if c.Dedupe.TTLRaw == "" {
		c.Dedupe.TTL = DefaultDedupeTTL
	}
	if c.Dedupe.MaxSize == 0 {
		c.Dedupe.MaxSize = DefaultDedupeMaxSize
	}
	if c.Server.ShutdownGraceRaw == "" {
		c.Server.ShutdownGrace = DefaultShutdownGrace
	}
	if c.Agent.Greeting == "" {
		c.Agent.Greeting = "Hi, <@%s>, I am Data-Scientist. Nice to see you! Today is %s."
	}
	if c.Agent.Ack == "" {
		c.Agent.Ack = "Thanks for your request, I am working on it which will take some time. Appreciate your patience."
	}
	if c.Agent.Fallback == "" {
		c.Agent.Fallback = "I couldn't generate a response."
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// Startup is fail-fast: a Config that does not validate never serves traffic.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Google.ProjectID == "" {
		return fmt.Errorf("google.project_id is required")
	}
	if c.Google.Location == "" {
		return fmt.Errorf("google.location is required")
	}
	if c.Google.SecretName == "" {
		// Without a secret to resolve, every credential must be inline.
		if c.Slack.BotToken == "" {
			return fmt.Errorf("slack.bot_token is required when google.secret_name is unset")
		}
		if c.Slack.SigningSecret == "" {
			return fmt.Errorf("slack.signing_secret is required when google.secret_name is unset")
		}
		if c.Agent.ResourceID == "" {
			return fmt.Errorf("agent.resource_id is required when google.secret_name is unset")
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Agent.AckDelayRaw != "" {
		cfg.Agent.AckDelay, err = time.ParseDuration(cfg.Agent.AckDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing ack_delay %q: %w", cfg.Agent.AckDelayRaw, err)
		}
	}

	if cfg.Dedupe.TTLRaw != "" {
		cfg.Dedupe.TTL, err = time.ParseDuration(cfg.Dedupe.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe ttl %q: %w", cfg.Dedupe.TTLRaw, err)
		}
	}

	if cfg.Server.ShutdownGraceRaw != "" {
		cfg.Server.ShutdownGrace, err = time.ParseDuration(cfg.Server.ShutdownGraceRaw)
		if err != nil {
			return fmt.Errorf("parsing shutdown_grace %q: %w", cfg.Server.ShutdownGraceRaw, err)
		}
	}

	return nil
}
