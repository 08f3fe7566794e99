// Package config assembles process-wide configuration from environment
// variables at startup into an immutable structure passed by value/pointer
// to handlers, following haasonsaas-nexus's internal/config pattern of a
// top-level Config aggregating typed sub-structs, each with its own
// defaults function, plus an applyEnvOverrides pass (spec.md section 9:
// "Process-wide config... Do not use module-level mutable state beyond the
// three backing-store client handles").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the evalserver process.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Search        SearchConfig
	RateLimit     RateLimitConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Providers     ProvidersConfig
	Client        ClientConfig
}

// ServerConfig configures the two listeners spec.md section 6 names.
type ServerConfig struct {
	// Port is the HTTP listener port (OTLP/JSON, OTLP/Protobuf, REST).
	Port int
	// GRPCPort is the OTLP/gRPC TraceService listener port.
	GRPCPort int
	// MetricsPort serves /metrics and /healthz.
	MetricsPort int
	// ShutdownGracePeriod bounds graceful drain before a gRPC force-stop
	// (spec.md section 5: "a 2 s budget").
	ShutdownGracePeriod time.Duration
}

// DatabaseConfig points at the SQL store (spec.md section 6: DATABASE_URL).
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// SearchConfig points at the search-engine store (spec.md section 6:
// ELASTICSEARCH_URL).
type SearchConfig struct {
	URL string
}

// RateLimitConfig points at the rate-limiter's backing store (spec.md
// section 6: REDIS_URL).
type RateLimitConfig struct {
	RedisURL string
}

// AuthConfig configures bearer-JWT verification (spec.md section 6's auth
// surface; API-key hashing needs no config beyond the store itself).
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// LoggingConfig configures internal/observability.Logger.
type LoggingConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// ObservabilityConfig configures the service's own operational tracing and
// metrics, distinct from the AIQA spans it ingests.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// TraceEndpoint is the OTLP/gRPC collector this process exports its own
	// spans to. Empty disables export.
	TraceEndpoint string
}

// ProvidersConfig carries the LLM-as-judge provider credentials (spec.md
// section 4.6: "call the provider adapter").
type ProvidersConfig struct {
	OpenAIAPIKey string

	AzureOpenAIAPIKey  string
	AzureOpenAIBaseURL string
	AzureOpenAIAPIVer  string

	AnthropicAPIKey string

	GeminiAPIKey string

	// DefaultProvider is used when a metric leaves Provider empty.
	DefaultProvider string
}

// ClientConfig carries the client-side environment variables spec.md
// section 6 names for SDK/runner use (AIQA_ADMIN_EMAIL, AIQA_API_KEY,
// AIQA_SERVER_URL); the server process itself does not consume these but
// loads them so a single binary can serve both `serve` and client-facing
// tooling.
type ClientConfig struct {
	AdminEmail string
	APIKey     string
	ServerURL  string
}

// Load builds a Config from the process environment, applying the
// teacher's default-then-override-then-validate sequence.
func Load() (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Server = ServerConfig{
		Port:                4318,
		GRPCPort:            4317,
		MetricsPort:         9090,
		ShutdownGracePeriod: 2 * time.Second,
	}
	cfg.Database = DatabaseConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
	cfg.Auth = AuthConfig{TokenExpiry: 24 * time.Hour}
	cfg.Logging = LoggingConfig{Level: "info", Format: "json"}
	cfg.Observability = ObservabilityConfig{
		ServiceName: "evalserver",
		Environment: "production",
	}
	cfg.Providers = ProvidersConfig{DefaultProvider: "openai"}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("GRPC_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.GRPCPort = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = parsed
		}
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("ELASTICSEARCH_URL")); v != "" {
		cfg.Search.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RateLimit.RedisURL = v
	}

	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_TOKEN_EXPIRY")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenExpiry = parsed
		}
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}

	if v := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); v != "" {
		cfg.Observability.ServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.Observability.TraceEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ENVIRONMENT")); v != "" {
		cfg.Observability.Environment = v
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Providers.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY")); v != "" {
		cfg.Providers.AzureOpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AZURE_OPENAI_BASE_URL")); v != "" {
		cfg.Providers.AzureOpenAIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_VERSION")); v != "" {
		cfg.Providers.AzureOpenAIAPIVer = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.Providers.AnthropicAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Providers.GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_DEFAULT_PROVIDER")); v != "" {
		cfg.Providers.DefaultProvider = v
	}

	if v := strings.TrimSpace(os.Getenv("AIQA_ADMIN_EMAIL")); v != "" {
		cfg.Client.AdminEmail = v
	}
	if v := strings.TrimSpace(os.Getenv("AIQA_API_KEY")); v != "" {
		cfg.Client.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AIQA_SERVER_URL")); v != "" {
		cfg.Client.ServerURL = v
	}
}

// ValidationError collects every configuration problem found, rather than
// failing on the first one, matching the teacher's ConfigValidationError
// pattern.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string

	if strings.TrimSpace(cfg.Database.URL) == "" {
		issues = append(issues, "DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.Search.URL) == "" {
		issues = append(issues, "ELASTICSEARCH_URL is required")
	}
	if strings.TrimSpace(cfg.RateLimit.RedisURL) == "" {
		issues = append(issues, "REDIS_URL is required")
	}
	if cfg.Server.Port <= 0 {
		issues = append(issues, "PORT must be positive")
	}
	if cfg.Server.GRPCPort <= 0 {
		issues = append(issues, "GRPC_PORT must be positive")
	}
	if cfg.Server.Port == cfg.Server.GRPCPort {
		issues = append(issues, "PORT and GRPC_PORT must differ")
	}
	if jwt := strings.TrimSpace(cfg.Auth.JWTSecret); jwt != "" && len(jwt) < 32 {
		issues = append(issues, "JWT_SECRET must be at least 32 characters for security")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("LOG_FORMAT must be \"json\" or \"text\", got %q", cfg.Logging.Format))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
