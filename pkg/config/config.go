package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Data       DataConfig
	Prediction PredictionConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	BodyLimit       int
	AllowOrigins    string
	ShutdownTimeout int
}

type DataConfig struct {
	DatasetPath   string
	ModelPath     string
	ModelKind     string
	ModelEndpoint string
	ModelTimeout  time.Duration
}

const (
	ModelKindLocal  = "local"
	ModelKindRemote = "remote"
)

type PredictionConfig struct {
	Defaults map[string]float64
	Ordinals map[string][]string
	CacheTTL time.Duration
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml from path (or the standard search paths when empty),
// overlays ATTRITION_* environment variables and fills defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/attrition")
	}

	v.SetEnvPrefix("ATTRITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Data.ModelKind {
	case ModelKindLocal:
		if c.Data.ModelPath == "" {
			return errors.New("data.modelPath is required for a local model")
		}
	case ModelKindRemote:
		if c.Data.ModelEndpoint == "" {
			return errors.New("data.modelEndpoint is required for a remote model")
		}
	default:
		return fmt.Errorf("data.modelKind must be %q or %q, got %q", ModelKindLocal, ModelKindRemote, c.Data.ModelKind)
	}
	if c.Data.DatasetPath == "" {
		return errors.New("data.datasetPath is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowOrigins", "*")
	v.SetDefault("server.shutdownTimeout", 10)

	v.SetDefault("data.datasetPath", "./data/HR_comma_sep.csv")
	v.SetDefault("data.modelPath", "./data/model.json")
	v.SetDefault("data.modelKind", ModelKindLocal)
	v.SetDefault("data.modelEndpoint", "")
	v.SetDefault("data.modelTimeout", 5*time.Second)

	v.SetDefault("prediction.defaults", map[string]float64{
		"work_accident":         0,
		"promotion_last_5years": 0,
	})
	v.SetDefault("prediction.ordinals", map[string][]string{
		"salary": {"low", "medium", "high"},
	})
	v.SetDefault("prediction.cacheTTL", 10*time.Minute)

	v.SetDefault("sqlite.enabled", false)
	v.SetDefault("sqlite.path", "./data/attrition.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.maxRequests", 60)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
