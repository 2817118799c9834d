package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vitovidale/video-notes-service/domain"
)

const (
	// DefaultConfigPath is read when present; every value can also come from the environment.
	DefaultConfigPath = "config.yaml"

	defaultPort             = "5001"
	defaultEnv              = "development"
	defaultBrightDataURL    = "https://api.brightdata.com/datasets/v3"
	defaultBrightDataset    = "gd_lk56epmy2i5g7lzu0k"
	defaultProviderTimeout  = 30 * time.Second
	defaultAIProvider       = "openai"
	defaultAIModel          = "gpt-4o-mini"
	defaultAITimeout        = 60 * time.Second
	defaultStaleAfter       = 30 * time.Minute
	defaultSweepInterval    = time.Minute
	defaultMetadataCacheTTL = 24 * time.Hour
)

type Config struct {
	Port          string           `yaml:"port"`
	Env           string           `yaml:"env"`
	APIBaseURL    string           `yaml:"api_base_url"`
	JWTSecret     string           `yaml:"jwt_secret"`
	WebhookSecret string           `yaml:"webhook_secret"`
	Database      DatabaseConfig   `yaml:"database"`
	RedisURL      string           `yaml:"redis_url"`
	RabbitMQURL   string           `yaml:"rabbitmq_url"`
	YouTubeAPIKey string           `yaml:"youtube_api_key"`
	BrightData    BrightDataConfig `yaml:"bright_data"`
	AI            AIConfig         `yaml:"ai"`
	Plans         map[string]int   `yaml:"plans"`
	Pipeline      PipelineConfig   `yaml:"pipeline"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type BrightDataConfig struct {
	APIToken  string        `yaml:"api_token"`
	DatasetID string        `yaml:"dataset_id"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type AIConfig struct {
	// Provider is "openai" (also any OpenAI-compatible endpoint via BaseURL) or "anthropic".
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	SummarizeAsync   bool           `yaml:"summarize_async"`
	ReuseTranscripts *bool          `yaml:"reuse_transcripts"`
	StaleAfter       *time.Duration `yaml:"stale_after"`
	SweepInterval    time.Duration  `yaml:"sweep_interval"`
	MetadataCacheTTL time.Duration  `yaml:"metadata_cache_ttl"`
}

// Load reads .env, then the YAML file at path (optional), then environment overrides.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.APIBaseURL, "API_BASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.WebhookSecret, "WEBHOOK_AUTH_SECRET")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASS")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.RabbitMQURL, "RABBITMQ_URL")
	setString(&cfg.YouTubeAPIKey, "YOUTUBE_API_KEY")

	setString(&cfg.BrightData.APIToken, "BRIGHT_DATA_AUTH_TOKEN")
	setString(&cfg.BrightData.DatasetID, "BRIGHT_DATA_DATASET_ID")
	setString(&cfg.BrightData.BaseURL, "BRIGHT_DATA_BASE_URL")
	setDuration(&cfg.BrightData.Timeout, "BRIGHT_DATA_TIMEOUT")

	setString(&cfg.AI.Provider, "AI_PROVIDER")
	setString(&cfg.AI.Model, "AI_MODEL")
	setString(&cfg.AI.BaseURL, "AI_BASE_URL")
	setDuration(&cfg.AI.Timeout, "AI_TIMEOUT")
	setString(&cfg.AI.APIKey, "AI_API_KEY")
	if cfg.AI.APIKey == "" {
		setString(&cfg.AI.APIKey, "OPENAI_API_KEY")
	}

	if v, ok := os.LookupEnv("SUMMARIZE_ASYNC"); ok {
		cfg.Pipeline.SummarizeAsync, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("REUSE_TRANSCRIPTS"); ok {
		b, _ := strconv.ParseBool(v)
		cfg.Pipeline.ReuseTranscripts = &b
	}
	if v, ok := os.LookupEnv("STALE_JOB_AFTER"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.StaleAfter = &d
		}
	}
	setDuration(&cfg.Pipeline.SweepInterval, "STALE_SWEEP_INTERVAL")
	setDuration(&cfg.Pipeline.MetadataCacheTTL, "METADATA_CACHE_TTL")
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.URL == "" {
		d := &cfg.Database
		d.Host = orDefault(d.Host, "db")
		d.Port = orDefault(d.Port, "5432")
		d.User = orDefault(d.User, "user")
		d.Password = orDefault(d.Password, "password")
		d.Name = orDefault(d.Name, "video_notes")
		d.SSLMode = orDefault(d.SSLMode, "disable")
	}
	if cfg.BrightData.BaseURL == "" {
		cfg.BrightData.BaseURL = defaultBrightDataURL
	}
	if cfg.BrightData.DatasetID == "" {
		cfg.BrightData.DatasetID = defaultBrightDataset
	}
	if cfg.BrightData.Timeout <= 0 {
		cfg.BrightData.Timeout = defaultProviderTimeout
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = defaultAIProvider
	}
	if cfg.AI.Model == "" && cfg.AI.Provider == defaultAIProvider {
		cfg.AI.Model = defaultAIModel
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = defaultAITimeout
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = map[string]int{
			string(domain.PlanFree):  30,
			string(domain.PlanPro):   100,
			string(domain.PlanElite): 300,
		}
	}
	if cfg.Pipeline.ReuseTranscripts == nil {
		reuse := true
		cfg.Pipeline.ReuseTranscripts = &reuse
	}
	if cfg.Pipeline.StaleAfter == nil {
		staleAfter := defaultStaleAfter
		cfg.Pipeline.StaleAfter = &staleAfter
	}
	if cfg.Pipeline.SweepInterval <= 0 {
		cfg.Pipeline.SweepInterval = defaultSweepInterval
	}
	if cfg.Pipeline.MetadataCacheTTL <= 0 {
		cfg.Pipeline.MetadataCacheTTL = defaultMetadataCacheTTL
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.WebhookSecret == "" {
		problems = append(problems, "WEBHOOK_AUTH_SECRET is required")
	}
	if c.APIBaseURL == "" {
		problems = append(problems, "API_BASE_URL is required")
	}
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.URL == "" {
			problems = append(problems, "DATABASE_URL is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	switch c.AI.Provider {
	case "openai":
	case "anthropic":
		if c.AI.Model == "" {
			problems = append(problems, "AI_MODEL is required for anthropic")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported AI provider %q", c.AI.Provider))
	}
	if _, ok := c.Plans[string(domain.PlanFree)]; !ok {
		problems = append(problems, "plans must define a free tier")
	}
	if c.Pipeline.SummarizeAsync && c.RabbitMQURL == "" {
		problems = append(problems, "RABBITMQ_URL is required when summarize_async is enabled")
	}
	if c.Pipeline.StaleAfter != nil && *c.Pipeline.StaleAfter < 0 {
		problems = append(problems, "stale_after must not be negative")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// PostgresDSN returns DATABASE_URL or builds a keyword DSN from the discrete fields.
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// PlanCatalog converts the configured plans into the domain lookup.
func (c *Config) PlanCatalog() domain.PlanCatalog {
	catalog := make(domain.PlanCatalog, len(c.Plans))
	for tier, limit := range c.Plans {
		if limit < 0 {
			limit = domain.Unlimited
		}
		catalog[domain.NormalizePlanTier(tier)] = limit
	}
	return catalog
}

// WebhookURL is where the provider delivers transcripts.
func (c *Config) WebhookURL() string {
	return c.baseURL() + "/api/webhooks/brightdata"
}

// NotifyURL is where the provider reports snapshot status changes.
func (c *Config) NotifyURL() string {
	return c.baseURL() + "/api/webhooks/brightdata/notify"
}

func (c *Config) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if u, err := url.Parse(base); err == nil {
		return strings.TrimRight(u.String(), "/")
	}
	return base
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
