package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Masumi      MasumiConfig    `toml:"masumi"`
	Pricing     PricingConfig   `toml:"pricing"`
	Monitor     MonitorConfig   `toml:"monitor"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// MasumiConfig contains the Masumi payment service connection settings
type MasumiConfig struct {
	PaymentServiceURL string `toml:"payment_service_url"` // Base URL of the Masumi payment service
	APIKey            string `toml:"api_key"`             // Payment service API key (or AESTIMO_MASUMI_API_KEY env)
	AgentIdentifier   string `toml:"agent_identifier"`    // Registered agent identifier on the Masumi network
	SellerVKey        string `toml:"seller_vkey"`         // Seller verification key echoed in submit responses
	Network           string `toml:"network"`             // Cardano network: "Preprod" or "Mainnet"
	Timeout           string `toml:"timeout"`             // HTTP request timeout as duration string
	RateLimit         int    `toml:"rate_limit"`          // Max payment-service requests per second
}

// PricingConfig contains the payment amounts quoted per task kind
type PricingConfig struct {
	RiskAmount     string `toml:"risk_amount"`     // Price for risk assessment jobs (in Unit)
	ResearchAmount string `toml:"research_amount"` // Price for generic research jobs (in Unit)
	Unit           string `toml:"unit"`            // Payment unit (default: "lovelace")
}

// MonitorConfig controls payment monitoring and deadline enforcement
type MonitorConfig struct {
	PollInterval   string `toml:"poll_interval"`   // How often each session polls payment status (e.g., "10s")
	ExpirySchedule string `toml:"expiry_schedule"` // Cron schedule for the pay-by deadline sweep
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (or ANTHROPIC_API_KEY env)
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "claude")
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	SendRate     float64 `toml:"send_rate"`     // Max events per second pushed to each client
	SendBurst    int     `toml:"send_burst"`    // Burst allowance per client
	RecentEvents int     `toml:"recent_events"` // Ring buffer size for GET /events/recent
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in aestimo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Masumi: MasumiConfig{
			PaymentServiceURL: "http://localhost:3001/api/v1",
			Network:           "Preprod",
			Timeout:           "30s",
			RateLimit:         10,
		},
		Pricing: PricingConfig{
			RiskAmount:     "20000",
			ResearchAmount: "10000000",
			Unit:           "lovelace",
		},
		Monitor: MonitorConfig{
			PollInterval:   "10s",
			ExpirySchedule: "*/5 * * * *", // Sweep expired payment deadlines every 5 minutes
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			RateLimit:   "4s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		WebSocket: WebSocketConfig{
			SendRate:     20,
			SendBurst:    40,
			RecentEvents: 100,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: AESTIMO_ENV, fallback: GO_ENV)
	if env := os.Getenv("AESTIMO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AESTIMO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AESTIMO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("AESTIMO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("AESTIMO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("AESTIMO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Masumi payment service configuration
	if url := os.Getenv("AESTIMO_PAYMENT_SERVICE_URL"); url != "" {
		config.Masumi.PaymentServiceURL = url
	} else if url := os.Getenv("PAYMENT_SERVICE_URL"); url != "" {
		config.Masumi.PaymentServiceURL = url
	}
	if key := os.Getenv("AESTIMO_MASUMI_API_KEY"); key != "" {
		config.Masumi.APIKey = key
	} else if key := os.Getenv("PAYMENT_API_KEY"); key != "" {
		config.Masumi.APIKey = key
	}
	if agent := os.Getenv("AESTIMO_AGENT_IDENTIFIER"); agent != "" {
		config.Masumi.AgentIdentifier = agent
	} else if agent := os.Getenv("AGENT_IDENTIFIER"); agent != "" {
		config.Masumi.AgentIdentifier = agent
	}
	if vkey := os.Getenv("AESTIMO_SELLER_VKEY"); vkey != "" {
		config.Masumi.SellerVKey = vkey
	} else if vkey := os.Getenv("SELLER_VKEY"); vkey != "" {
		config.Masumi.SellerVKey = vkey
	}
	if network := os.Getenv("AESTIMO_NETWORK"); network != "" {
		config.Masumi.Network = network
	} else if network := os.Getenv("NETWORK"); network != "" {
		config.Masumi.Network = network
	}

	// Pricing configuration
	if amount := os.Getenv("AESTIMO_RISK_PAYMENT_AMOUNT"); amount != "" {
		config.Pricing.RiskAmount = amount
	}
	if amount := os.Getenv("AESTIMO_PAYMENT_AMOUNT"); amount != "" {
		config.Pricing.ResearchAmount = amount
	}
	if unit := os.Getenv("AESTIMO_PAYMENT_UNIT"); unit != "" {
		config.Pricing.Unit = unit
	}

	// Monitor configuration
	if interval := os.Getenv("AESTIMO_MONITOR_POLL_INTERVAL"); interval != "" {
		config.Monitor.PollInterval = interval
	}
	if schedule := os.Getenv("AESTIMO_MONITOR_EXPIRY_SCHEDULE"); schedule != "" {
		config.Monitor.ExpirySchedule = schedule
	}

	// LLM provider configuration
	if provider := os.Getenv("AESTIMO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if model := os.Getenv("AESTIMO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if model := os.Getenv("AESTIMO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> config fallback -> error.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"AESTIMO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"AESTIMO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"masumi_api_key":    {"AESTIMO_MASUMI_API_KEY", "PAYMENT_API_KEY"},
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// PollInterval parses the monitor poll interval, falling back to 10s on error.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Monitor.PollInterval)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ValidateExpirySchedule validates the deadline sweep cron expression.
// An empty schedule is valid and means the sweep is disabled.
func ValidateExpirySchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
