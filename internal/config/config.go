package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	StoreShov   = "shov"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// drivers lists the backends each driver rule accepts, keyed by validation tag.
var drivers = map[string][]string{
	"store_driver":    {StoreShov, StoreMySQL, StoreMemory},
	"sessions_driver": {SessionsMemory, SessionsRedis},
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Inference InferenceConfig `mapstructure:"inference"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Local     LocalConfig     `mapstructure:"local"`
	Client    ClientConfig    `mapstructure:"client"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	Mode string     `mapstructure:"mode" validate:"oneof=debug release test"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver" validate:"store_driver"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Project string        `mapstructure:"project"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type InferenceConfig struct {
	BaseURL          string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	MaxRetryAttempts uint   `mapstructure:"max_retry_attempts"`
}

type TemplatesConfig struct {
	LessonPromptTemplate string `mapstructure:"lesson_prompt_template" validate:"omitempty,file"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	RemoteTokenTTL time.Duration `mapstructure:"remote_token_ttl" validate:"gt=0"`
	LocalTokenTTL  time.Duration `mapstructure:"local_token_ttl" validate:"gt=0"`
	BcryptCost     int           `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

type RetryConfig struct {
	MaxAttempts          int           `mapstructure:"max_attempts" validate:"min=1"`
	BaseDelay            time.Duration `mapstructure:"base_delay"`
	MaxJitter            time.Duration `mapstructure:"max_jitter"`
	Deadline             time.Duration `mapstructure:"deadline"`
	VerifyChecks         int           `mapstructure:"verify_checks" validate:"min=0"`
	VerifyInterval       time.Duration `mapstructure:"verify_interval"`
	SignupSettle         time.Duration `mapstructure:"signup_settle"`
	CustomLessonAttempts int           `mapstructure:"custom_lesson_attempts" validate:"min=1"`
	CustomLessonInterval time.Duration `mapstructure:"custom_lesson_interval"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type SessionsConfig struct {
	Driver        string `mapstructure:"driver" validate:"sessions_driver"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string `mapstructure:"redis_password"`
}

type LocalConfig struct {
	Path       string `mapstructure:"path"`
	MaxLessons int    `mapstructure:"max_lessons" validate:"min=1"`
}

type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url" validate:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=dev prod"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("newValidator() > %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wandrr")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

// Load is a shorthand for NewConfigLoader(configFile).Load().
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("store.driver", StoreShov)
	v.SetDefault("store.base_url", "https://shov.com/api")
	v.SetDefault("store.timeout", 15*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "wandrr")
	v.SetDefault("database.username", "user")
	v.SetDefault("inference.base_url", "https://api.openai.com/v1")
	v.SetDefault("inference.model", "gpt-4o-mini")
	v.SetDefault("inference.max_retry_attempts", 2)
	// Template is optional - the embedded prompt is used when empty
	v.SetDefault("templates.lesson_prompt_template", "")
	v.SetDefault("auth.remote_token_ttl", time.Hour)
	v.SetDefault("auth.local_token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_jitter", time.Second)
	v.SetDefault("retry.deadline", 60*time.Second)
	v.SetDefault("retry.verify_checks", 3)
	v.SetDefault("retry.verify_interval", 500*time.Millisecond)
	v.SetDefault("retry.signup_settle", 500*time.Millisecond)
	v.SetDefault("retry.custom_lesson_attempts", 3)
	v.SetDefault("retry.custom_lesson_interval", 800*time.Millisecond)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)
	v.SetDefault("sessions.driver", SessionsMemory)
	v.SetDefault("sessions.redis_addr", "")
	v.SetDefault("local.path", "wandrr-local.db")
	v.SetDefault("local.max_lessons", 50)
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 90*time.Second)
	v.SetDefault("log.mode", "dev")

	// Secrets are read from environment variables only
	for key, env := range map[string]string{
		"store.api_key":           "SHOV_API_KEY",
		"store.project":           "SHOV_PROJECT",
		"auth.jwt_secret":         "JWT_SECRET",
		"inference.api_key":       "INFERENCE_API_KEY",
		"database.password":       "DB_PASSWORD",
		"sessions.redis_password": "REDIS_PASSWORD",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("v.BindEnv(%s) > %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("validator.Struct() > %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
