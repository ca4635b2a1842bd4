package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Cookie    CookieConfig    `mapstructure:"cookie"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxBodyBytes    int64         `mapstructure:"maxBodyBytes"`
}

// DatabaseConfig holds pool tuning from the file. The connection string
// only ever comes from the environment.
type DatabaseConfig struct {
	URL             string        `mapstructure:"-"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type SessionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type CookieConfig struct {
	Secure bool   `mapstructure:"secure"`
	Domain string `mapstructure:"domain"`
}

// RateLimitConfig limits the credential endpoints per client address.
type RateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requestsPerMinute"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"fromAddress"`
	FromName    string `mapstructure:"fromName"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type AuditConfig struct {
	RetentionDays   int           `mapstructure:"retentionDays"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
}

// env is the part of the configuration that must come from the process
// environment.
type env struct {
	DatabaseURL  string `envconfig:"DATABASE_URL" required:"true"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
}

// ErrMissingDatabaseURL is returned when DATABASE_URL is unset.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL must be set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.requestTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.maxBodyBytes", 1<<20)

	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)

	v.SetDefault("session.sweepInterval", 5*time.Minute)

	v.SetDefault("rateLimit.requestsPerMinute", 10.0)
	v.SetDefault("rateLimit.burst", 10)

	v.SetDefault("cors.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.fromName", "Lab")

	v.SetDefault("logging.level", "info")

	v.SetDefault("audit.retentionDays", 90)
	v.SetDefault("audit.cleanupInterval", 24*time.Hour)
}

// LoadConfig reads config.yaml from the given directories (the working
// directory and ./config when none are given), applies LAB_* environment
// overrides and requires DATABASE_URL. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("LAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDatabaseURL, err)
	}
	if strings.TrimSpace(e.DatabaseURL) == "" {
		return nil, ErrMissingDatabaseURL
	}
	config.Database.URL = e.DatabaseURL
	if e.SMTPPassword != "" {
		config.SMTP.Password = e.SMTPPassword
	}

	return &config, nil
}
