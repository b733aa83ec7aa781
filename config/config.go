package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mohammad-safakhou/polisight/internal/source"
)

// Config holds all configuration for the polisight system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Sources    []SourceConfig   `mapstructure:"sources"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	Listen         string        `mapstructure:"listen"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
}

// SourceConfig is one configured origin of political content. Validated and
// frozen into a source.Registry at startup.
type SourceConfig struct {
	ID          string        `mapstructure:"id"`
	Category    string        `mapstructure:"category"`
	Endpoint    string        `mapstructure:"endpoint"`
	Weight      float64       `mapstructure:"weight"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Rendered    bool          `mapstructure:"rendered"`
}

// Normalize applies per-source defaults for unset values.
func (s SourceConfig) Normalize() SourceConfig {
	if s.MinInterval <= 0 {
		s.MinInterval = time.Second
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 3
	}
	if s.Weight == 0 {
		s.Weight = 0.5
	}
	return s
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds the Postgres connection string.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// ClassifierConfig configures the external semantic classifier.
type ClassifierConfig struct {
	Provider    string        `mapstructure:"provider"` // openai or heuristic
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

func (c ClassifierConfig) Validate() error {
	switch c.Provider {
	case "", "heuristic":
		return nil
	case "openai":
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("classifier.api_key required for provider openai")
		}
		return nil
	default:
		return fmt.Errorf("classifier.provider must be openai or heuristic, got %q", c.Provider)
	}
}

// CacheConfig controls the dedup/cache layer.
type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	SweepCron string        `mapstructure:"sweep_cron"`
}

// Normalize applies cache defaults.
func (c CacheConfig) Normalize() CacheConfig {
	if c.TTL <= 0 {
		c.TTL = 6 * time.Hour
	}
	if strings.TrimSpace(c.SweepCron) == "" {
		c.SweepCron = "@hourly"
	}
	return c
}

// PredictionConfig controls the forecast engine.
type PredictionConfig struct {
	TotalSeats         int      `mapstructure:"total_seats"`
	RulingParties      []string `mapstructure:"ruling_parties"`
	DefaultHorizonDays int      `mapstructure:"default_horizon_days"`
}

// Normalize applies prediction defaults.
func (p PredictionConfig) Normalize() PredictionConfig {
	if p.TotalSeats <= 0 {
		p.TotalSeats = 465
	}
	if len(p.RulingParties) == 0 {
		p.RulingParties = []string{"ldp", "komeito"}
	}
	if p.DefaultHorizonDays <= 0 {
		p.DefaultHorizonDays = 30
	}
	return p
}

func (p PredictionConfig) Validate() error {
	if p.TotalSeats <= 0 {
		return fmt.Errorf("prediction.total_seats must be > 0")
	}
	if p.DefaultHorizonDays <= 0 {
		return fmt.Errorf("prediction.default_horizon_days must be > 0")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// Normalize applies telemetry defaults.
func (t TelemetryConfig) Normalize() TelemetryConfig {
	if t.ReportInterval <= 0 {
		t.ReportInterval = 5 * time.Minute
	}
	return t
}

// Registry validates the configured sources and freezes them into a registry.
func (c *Config) Registry() (*source.Registry, error) {
	sources := make([]source.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		sc = sc.Normalize()
		sources = append(sources, source.Source{
			ID:          sc.ID,
			Category:    source.Category(sc.Category),
			Endpoint:    sc.Endpoint,
			Weight:      sc.Weight,
			MinInterval: sc.MinInterval,
			MaxRetries:  sc.MaxRetries,
			Rendered:    sc.Rendered,
		})
	}
	return source.NewRegistry(sources)
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.listen", ":10002")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("classifier.provider", "heuristic")
	viper.SetDefault("classifier.model", "gpt-4o-mini")
	viper.SetDefault("classifier.timeout", "20s")
	viper.SetDefault("cache.ttl", "6h")
	viper.SetDefault("cache.sweep_cron", "@hourly")
	viper.SetDefault("prediction.total_seats", 465)
	viper.SetDefault("prediction.default_horizon_days", 30)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("POLISIGHT")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (POLISIGHT_*)

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// unmarshal config
	var config Config

	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	for i := range config.Sources {
		config.Sources[i] = config.Sources[i].Normalize()
	}
	config.Cache = config.Cache.Normalize()
	config.Prediction = config.Prediction.Normalize()
	config.Telemetry = config.Telemetry.Normalize()

	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Classifier.Validate(); err != nil {
		panic(err)
	}
	if err := config.Prediction.Validate(); err != nil {
		panic(err)
	}
	return &config
}
