package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Report    ReportConfig    `mapstructure:"report"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`

	// Supabase is read from the process environment under its original names.
	Supabase SupabaseEnv `mapstructure:"-"`
}

type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	Mode                   string `mapstructure:"mode"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	MetricsNamespace       string `mapstructure:"metrics_namespace"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type ArchiveConfig struct {
	BatchSize      int    `mapstructure:"batch_size"`
	RetentionYears int    `mapstructure:"retention_years"`
	Schedule       string `mapstructure:"schedule"`
	IncludeFiles   bool   `mapstructure:"include_files"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type ReportConfig struct {
	PythonBin      string `mapstructure:"python_bin"`
	Script         string `mapstructure:"script"`
	TmpDir         string `mapstructure:"tmp_dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AuthConfig struct {
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// SupabaseEnv holds the hosted project settings.
type SupabaseEnv struct {
	URL               string `envconfig:"SUPABASE_URL"`
	AnonKey           string `envconfig:"SUPABASE_ANON_KEY"`
	ServiceRoleKey    string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret         string `envconfig:"SUPABASE_JWT_SECRET"`
	DBURL             string `envconfig:"SUPABASE_DB_URL"`
	S3Endpoint        string `envconfig:"SUPABASE_S3_ENDPOINT"`
	S3Region          string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	S3AccessKeyID     string `envconfig:"SUPABASE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"SUPABASE_S3_SECRET_ACCESS_KEY"`
	CORSOrigin        string `envconfig:"CORS_ORIGIN"`
	XrayBucket        string `envconfig:"XRAY_BUCKET" default:"xray-results"`
	XrayArchivePrefix string `envconfig:"XRAY_ARCHIVE_PREFIX" default:"archive"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.metrics_namespace", "healthtrack")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("archive.batch_size", 200)
	v.SetDefault("archive.retention_years", 5)
	v.SetDefault("archive.schedule", "0 2 * * *")
	v.SetDefault("archive.include_files", true)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 50.0)
	v.SetDefault("ratelimit.burst", 100)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("report.python_bin", "python")
	v.SetDefault("report.script", "tools/generate_medical_report_digital.py")
	v.SetDefault("report.tmp_dir", "tmp")
	v.SetDefault("report.timeout_seconds", 60)

	v.SetDefault("auth.role_cache_ttl", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
}

// LoadConfig reads .env, config.yaml (optional) and the environment.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config.Supabase); err != nil {
		return nil, fmt.Errorf("failed to read supabase environment: %w", err)
	}
	if config.Supabase.DBURL != "" && config.Database.URL == "" {
		config.Database.URL = config.Supabase.DBURL
	}

	return &config, nil
}

// DSN returns the connection string for lib/pq.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// StorageEnabled reports whether the S3 compatible storage endpoint is configured.
func (s SupabaseEnv) StorageEnabled() bool {
	return s.S3Endpoint != "" && s.S3AccessKeyID != "" && s.S3SecretAccessKey != ""
}

// CORSOrigins splits CORS_ORIGIN on commas.
func (s SupabaseEnv) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
