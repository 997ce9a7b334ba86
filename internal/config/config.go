package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Services   ServicesConfig   `yaml:"services"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Booking    BookingConfig    `yaml:"booking"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Bot        BotConfig        `yaml:"bot"`
}

type BotConfig struct {
	RateLimitMessages int     `yaml:"rate_limit_messages"`
	RateLimitWindow   int     `yaml:"rate_limit_window"`
	Managers          []int64 `yaml:"managers"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// ServicesConfig holds the endpoints of the external collaborators.
type ServicesConfig struct {
	AvailabilityURL string        `yaml:"availability_url"`
	CatalogURL      string        `yaml:"catalog_url"`
	TaxURL          string        `yaml:"tax_url"`
	OrdersURL       string        `yaml:"orders_url"`
	EventsURL       string        `yaml:"events_url"`
	BranchMatchURL  string        `yaml:"branch_match_url"`
	Timeout         time.Duration `yaml:"timeout"`
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`
}

// PricingConfig optionally overrides the built-in price tables.
type PricingConfig struct {
	BasePrices  map[string]float64 `yaml:"base_prices"`
	Multipliers map[string]float64 `yaml:"multipliers"`
	Addons      map[string]float64 `yaml:"addons"`
}

type BookingConfig struct {
	WindowDays    int             `yaml:"window_days"`
	DefaultBranch string          `yaml:"default_branch"`
	SessionTTL    time.Duration   `yaml:"session_ttl"`
	Branches      []models.Branch `yaml:"branches"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	OrdersSpreadSheetID   string `yaml:"orders_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Services.AvailabilityURL == "" {
		return errors.New("services.availability_url is required")
	}
	if c.Services.OrdersURL == "" {
		return errors.New("services.orders_url is required")
	}
	if c.Booking.WindowDays < 0 {
		return errors.New("booking.window_days must not be negative")
	}

	return ValidateBranches(c.Booking.Branches, c.Booking.DefaultBranch)
}

func ValidateBranches(branches []models.Branch, defaultBranch string) error {
	ids := make(map[string]bool)
	for _, b := range branches {
		if b.ID == "" {
			return fmt.Errorf("branch '%s' has empty ID", b.Name)
		}
		if ids[b.ID] {
			return fmt.Errorf("duplicate branch ID found: %s", b.ID)
		}
		ids[b.ID] = true
	}
	if defaultBranch != "" && len(branches) > 0 && !ids[defaultBranch] {
		return fmt.Errorf("default branch %s is not configured", defaultBranch)
	}
	return nil
}

// Branch returns the configured branch with the given ID.
func (c *Config) Branch(id string) (models.Branch, bool) {
	for _, b := range c.Booking.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return models.Branch{}, false
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Services.Timeout == 0 {
		c.Services.Timeout = 10 * time.Second
	}
	if c.Services.CatalogCacheTTL == 0 {
		c.Services.CatalogCacheTTL = models.CatalogCacheTTL * time.Second
	}

	if c.Booking.WindowDays == 0 {
		c.Booking.WindowDays = models.DefaultWindowDays
	}
	if c.Booking.SessionTTL == 0 {
		c.Booking.SessionTTL = models.DefaultSessionTTL * time.Second
	}
	if c.Booking.DefaultBranch == "" && len(c.Booking.Branches) > 0 {
		c.Booking.DefaultBranch = c.Booking.Branches[0].ID
	}

	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/orders.db"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}
