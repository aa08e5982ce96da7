package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Environment names accepted by the Webpay section.
const (
	EnvIntegration = "integration"
	EnvProduction  = "production"
)

// Transbank's published Webpay Plus integration credentials. Safe to ship as
// defaults; production credentials must always come from config or environment.
const (
	integrationCommerceCode = "597055555532"
	integrationAPIKey       = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"
	integrationHost         = "https://webpay3gint.transbank.cl"
	productionHost          = "https://webpay3g.transbank.cl"
)

// Config holds the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Webpay   WebpayConfig   `yaml:"webpay" mapstructure:"webpay"`
	BCentral BCentralConfig `yaml:"bcentral" mapstructure:"bcentral"`
	Herd     HerdConfig     `yaml:"herd" mapstructure:"herd"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr        string   `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// WebpayConfig configures the payment gateway client.
type WebpayConfig struct {
	Environment    string `yaml:"environment" mapstructure:"environment"`
	CommerceCode   string `yaml:"commerce_code" mapstructure:"commerce_code"`
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	ReturnURL      string `yaml:"return_url" mapstructure:"return_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// BCentralConfig configures the central-bank data client.
type BCentralConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// HerdConfig configures livestock storage.
type HerdConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present: integration Webpay credentials and a local listener.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:8080",
				"http://localhost:8081",
				"http://127.0.0.1:5500",
			},
		},
		Webpay: WebpayConfig{
			Environment:    EnvIntegration,
			CommerceCode:   integrationCommerceCode,
			APIKey:         integrationAPIKey,
			ReturnURL:      "http://localhost:8000/webpay/return",
			TimeoutSeconds: 30,
		},
		BCentral: BCentralConfig{
			BaseURL: "https://si3.bcentral.cl/SieteRestWS/SieteRestWS.ashx",
		},
		Herd: HerdConfig{
			DBPath: "./cowtracker.db",
		},
	}
}

// Load merges, in order of increasing precedence: built-in defaults, an
// optional YAML config file, and environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("config.yaml"); err == nil {
		if err := loadFile("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to load config.yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("COWTRACKER_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitAndTrim(origins)
	}

	cfg.Webpay.Environment = getEnv("WEBPAY_ENVIRONMENT", cfg.Webpay.Environment)
	if cfg.Webpay.Environment == EnvProduction {
		cfg.Webpay.CommerceCode = getEnv("WEBPAY_COMMERCE_CODE_PROD", cfg.Webpay.CommerceCode)
		cfg.Webpay.APIKey = getEnv("WEBPAY_API_KEY_PROD", cfg.Webpay.APIKey)
	} else {
		cfg.Webpay.CommerceCode = getEnv("WEBPAY_COMMERCE_CODE", cfg.Webpay.CommerceCode)
		cfg.Webpay.APIKey = getEnv("WEBPAY_API_KEY", cfg.Webpay.APIKey)
	}
	cfg.Webpay.ReturnURL = getEnv("WEBPAY_RETURN_URL", cfg.Webpay.ReturnURL)
	if timeout := os.Getenv("WEBPAY_TIMEOUT_SECONDS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && n > 0 {
			cfg.Webpay.TimeoutSeconds = n
		}
	}

	cfg.BCentral.BaseURL = getEnv("BCENTRAL_BASE_URL", cfg.BCentral.BaseURL)
	cfg.BCentral.User = getEnv("BCENTRAL_USER", cfg.BCentral.User)
	cfg.BCentral.Password = getEnv("BCENTRAL_PASSWORD", cfg.BCentral.Password)

	cfg.Herd.DBPath = getEnv("HERD_DB_PATH", cfg.Herd.DBPath)
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Webpay.Environment {
	case EnvIntegration, EnvProduction:
	default:
		return fmt.Errorf("invalid webpay environment %q (want %q or %q)",
			c.Webpay.Environment, EnvIntegration, EnvProduction)
	}

	if c.Webpay.Environment == EnvProduction {
		if c.Webpay.CommerceCode == "" || c.Webpay.CommerceCode == integrationCommerceCode {
			return fmt.Errorf("WEBPAY_COMMERCE_CODE_PROD is required in production")
		}
		if c.Webpay.APIKey == "" || c.Webpay.APIKey == integrationAPIKey {
			return fmt.Errorf("WEBPAY_API_KEY_PROD is required in production")
		}
	}

	if c.Webpay.TimeoutSeconds <= 0 {
		return fmt.Errorf("webpay timeout must be positive, got %d", c.Webpay.TimeoutSeconds)
	}
	return nil
}

// WebpayHost returns the gateway base URL for the configured environment.
func (c *Config) WebpayHost() string {
	if c.Webpay.Environment == EnvProduction {
		return productionHost
	}
	return integrationHost
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
