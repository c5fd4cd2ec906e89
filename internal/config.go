package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env           string              `mapstructure:"env" envconfig:"APP_ENV" default:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DB"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"REDIS"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Notification  NotificationConfig  `mapstructure:"notification" envconfig:"NOTIFICATION"`
	Storage       StorageConfig       `mapstructure:"storage" envconfig:"STORAGE"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT" default:"8080"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL" default:"http://localhost:8080"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	AuthRateLimit     int           `mapstructure:"auth_rate_limit" envconfig:"AUTH_RATE_LIMIT" default:"20"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME" default:"5m"`
	Source          string        `mapstructure:"source" envconfig:"SOURCE" required:"true"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	DB       int    `mapstructure:"db" envconfig:"DB" default:"0"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" envconfig:"REFRESH_TOKEN_SECRET" required:"true"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" envconfig:"ACCESS_TOKEN_DURATION" default:"15m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" envconfig:"REFRESH_TOKEN_DURATION" default:"168h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"12"`
	ResetCodeTTL         time.Duration `mapstructure:"reset_code_ttl" envconfig:"RESET_CODE_TTL" default:"15m"`
}

type NotificationConfig struct {
	Mailer         string `mapstructure:"mailer" envconfig:"MAILER" default:"log"`
	SMTPHost       string `mapstructure:"smtp_host" envconfig:"SMTP_HOST" default:"127.0.0.1"`
	SMTPPort       int    `mapstructure:"smtp_port" envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername   string `mapstructure:"smtp_username" envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `mapstructure:"smtp_password" envconfig:"SMTP_PASSWORD"`
	From           string `mapstructure:"from" envconfig:"FROM" default:"no-reply@transit241.com"`
	RelaySchedule  string `mapstructure:"relay_schedule" envconfig:"RELAY_SCHEDULE" default:"@every 5s"`
	RelayBatchSize int    `mapstructure:"relay_batch_size" envconfig:"RELAY_BATCH_SIZE" default:"100"`
	MaxRetry       int    `mapstructure:"max_retry" envconfig:"MAX_RETRY" default:"5"`
	PurgeSchedule  string `mapstructure:"purge_schedule" envconfig:"PURGE_SCHEDULE" default:"@hourly"`
	Concurrency    int    `mapstructure:"concurrency" envconfig:"CONCURRENCY" default:"5"`
}

type StorageConfig struct {
	Driver          string `mapstructure:"driver" envconfig:"DRIVER" default:"filesystem"`
	Bucket          string `mapstructure:"bucket" envconfig:"BUCKET"`
	Region          string `mapstructure:"region" envconfig:"REGION" default:"us-east-1"`
	Endpoint        string `mapstructure:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID     string `mapstructure:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	LocalDir        string `mapstructure:"local_dir" envconfig:"LOCAL_DIR" default:"./media"`
	PublicBaseURL   string `mapstructure:"public_base_url" envconfig:"PUBLIC_BASE_URL" default:"/media"`
	AgeRecipient    string `mapstructure:"age_recipient" envconfig:"AGE_RECIPIENT"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED" default:"true"`
	Path    string `mapstructure:"path" envconfig:"PATH" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL" default:"info"`
	Format string `mapstructure:"format" envconfig:"FORMAT" default:"json"`
}

// LoadConfigFromEnv reads the whole configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	switch c.Mailer {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPPort == 0 {
			return errors.New("smtp_host and smtp_port are required for the smtp mailer")
		}
	default:
		return fmt.Errorf("unknown mailer %q", c.Mailer)
	}
	if c.MaxRetry < 0 {
		return errors.New("max_retry cannot be negative")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "memory":
	case "filesystem":
		if c.LocalDir == "" {
			return errors.New("local_dir is required for the filesystem driver")
		}
	case "s3":
		if c.Bucket == "" {
			return errors.New("bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}
