package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Session    SessionConfig
	Auth       AuthConfig
	Knowledge  KnowledgeConfig
	Chat       ChatConfig
	Speech     SpeechConfig
	RateLimit  RateLimitConfig
	Validation ValidationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store      string
	TTLMinutes int
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
	ResetPassword string
	UsersFile     string
	MinPassword   int
}

type KnowledgeConfig struct {
	// Dir overrides the embedded knowledge base when set.
	Dir string
}

type ChatConfig struct {
	ThinkingDelayMs int
	HistoryLimit    int
}

type SpeechConfig struct {
	Enabled         bool
	APIKey          string
	Model           string
	DefaultVoice    string
	Voices          map[string]string
	TimeoutSec      int
	CacheTTLMinutes int
	SampleRate      int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type ValidationConfig struct {
	MaxMessageLength int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the server configuration and rejects it when required
// secrets are missing.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is required")
	}
	return cfg, nil
}

// LoadForTools reads the same configuration for offline tooling, which
// never issues tokens.
func LoadForTools() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/maxicoach")

	v.SetEnvPrefix("MAXICOACH")
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

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Session.Store {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("session store redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Speech.Enabled && c.Speech.APIKey == "" {
		return fmt.Errorf("speech.apiKey is required when speech is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("server.development", false)

	v.SetDefault("sqlite.path", "./data/maxicoach.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttlMinutes", 480)

	// Registered so env-only values are seen by Unmarshal.
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.usersFile", "")
	v.SetDefault("auth.tokenTTLHours", 12)
	v.SetDefault("auth.resetPassword", "Pass1234")
	v.SetDefault("auth.minPassword", 4)

	v.SetDefault("knowledge.dir", "")

	v.SetDefault("chat.thinkingDelayMs", 1500)
	v.SetDefault("chat.historyLimit", 50)

	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.apiKey", "")
	v.SetDefault("speech.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("speech.defaultVoice", "Zephyr")
	v.SetDefault("speech.voices", map[string]string{
		"basico": "Zephyr",
		"oscuro": "Charon",
		"falcon": "Kore",
	})
	v.SetDefault("speech.timeoutSec", 30)
	v.SetDefault("speech.cacheTTLMinutes", 1440)
	v.SetDefault("speech.sampleRate", 24000)

	v.SetDefault("rateLimit.maxRequestsPerMinute", 60)

	v.SetDefault("validation.maxMessageLength", 2000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
	v.SetDefault("logging.maxSizeMB", 10)
	v.SetDefault("logging.maxBackups", 5)
	v.SetDefault("logging.maxAgeDays", 30)
	v.SetDefault("logging.compress", true)
}
