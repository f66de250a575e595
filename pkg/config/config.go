package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration, read from the environment
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DataPath    string `mapstructure:"DATA_PATH"`

	RedisURL       string        `mapstructure:"REDIS_URL"`
	ReportCacheTTL time.Duration `mapstructure:"REPORT_CACHE_TTL"`

	ReportAPIURL   string        `mapstructure:"REPORT_API_URL"`
	ReportAPIToken string        `mapstructure:"REPORT_API_TOKEN"`
	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	MaxRangeDays   int           `mapstructure:"MAX_RANGE_DAYS"`

	TargetsFile        string `mapstructure:"TARGETS_FILE"`
	DefaultShiftTarget int    `mapstructure:"DEFAULT_SHIFT_TARGET"`

	JWTSecret       string `mapstructure:"JWT_SECRET"`
	APIMasterSecret string `mapstructure:"API_MASTER_SECRET"`
	AdminUsername   string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword   string `mapstructure:"ADMIN_PASSWORD"`
}

var keys = []string{
	"PORT", "GIN_MODE", "DATABASE_URL", "DATA_PATH", "REDIS_URL", "REPORT_CACHE_TTL",
	"REPORT_API_URL", "REPORT_API_TOKEN", "FETCH_TIMEOUT", "MAX_RANGE_DAYS",
	"TARGETS_FILE", "DEFAULT_SHIFT_TARGET", "JWT_SECRET", "API_MASTER_SECRET",
	"ADMIN_USERNAME", "ADMIN_PASSWORD",
}

// LoadDotEnv loads the first .env found in the working directory or its parents
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads the configuration from the environment, applying defaults
func Load() (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DATA_PATH", "compliance.db")
	v.SetDefault("REPORT_CACHE_TTL", 10*time.Minute)
	v.SetDefault("REPORT_API_URL", "http://localhost:3000/api/reportes/puestos")
	v.SetDefault("FETCH_TIMEOUT", 15*time.Second)
	v.SetDefault("MAX_RANGE_DAYS", 62)
	v.SetDefault("DEFAULT_SHIFT_TARGET", 3)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
