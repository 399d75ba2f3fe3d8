// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	JWT        JWTConfig        `koanf:"jwt"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	Otel       OtelConfig       `koanf:"otel"`
	Membership MembershipConfig `koanf:"membership"`
	Notify     NotifyConfig     `koanf:"notify"`
	Storage    StorageConfig    `koanf:"storage"`
	Reconcile  ReconcileConfig  `koanf:"reconcile"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
	KeyPrefix    string `koanf:"key_prefix"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// MembershipConfig holds the two business constants the original drafts
// disagreed on. Neither value is assumed correct; both are deploy-time
// settings.
type MembershipConfig struct {
	PricePerShare       string `koanf:"price_per_share"`
	ActivationThreshold int    `koanf:"activation_threshold"`
	ActivationRule      string `koanf:"activation_rule"`
}

type NotifyConfig struct {
	Driver      string     `koanf:"driver"`
	QueueSize   int        `koanf:"queue_size"`
	Workers     int        `koanf:"workers"`
	FromAddress string     `koanf:"from_address"`
	OrgName     string     `koanf:"org_name"`
	SMTP        SMTPConfig `koanf:"smtp"`
}

type SMTPConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	ImplicitTLS bool          `koanf:"implicit_tls"`
	Timeout     time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	UploadDir      string `koanf:"upload_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
}

type ReconcileConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

const (
	ActivationRuleFee    = "activation_fee"
	ActivationRuleShares = "share_threshold"
	ActivationRuleEither = "either"

	NotifyDriverLog  = "log"
	NotifyDriverSMTP = "smtp"
)

var ActivationRules = []string{ActivationRuleFee, ActivationRuleShares, ActivationRuleEither}

// Load layers built-in defaults, the optional YAML file at configPath and
// the mapped environment variables, then validates the result.
func Load(configPath string) (*Config, error) {
	return load(configPath)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Pamoja Membership API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       false,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.key_prefix":     "pamoja",

		"jwt.access_token_expire": "30m",
		"jwt.issuer":              "pamoja-api",
		"jwt.audience":            "pamoja-members",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "pamoja-api",

		"membership.price_per_share":      "25",
		"membership.activation_threshold": 20,
		"membership.activation_rule":      ActivationRuleFee,

		"notify.driver":            NotifyDriverLog,
		"notify.queue_size":        256,
		"notify.workers":           2,
		"notify.from_address":      "noreply@pamojakenyamn.org",
		"notify.org_name":          "Pamoja Kenya MN",
		"notify.smtp.port":         587,
		"notify.smtp.implicit_tls": false,
		"notify.smtp.timeout":      "15s",

		"storage.upload_dir":       "uploads",
		"storage.max_upload_bytes": 10 << 20,

		"reconcile.enabled":  true,
		"reconcile.schedule": "0 3 * * *",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"REDIS_KEY_PREFIX":            "redis.key_prefix",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"PRICE_PER_SHARE":             "membership.price_per_share",
	"ACTIVATION_THRESHOLD":        "membership.activation_threshold",
	"ACTIVATION_RULE":             "membership.activation_rule",
	"NOTIFY_DRIVER":               "notify.driver",
	"NOTIFY_FROM_ADDRESS":         "notify.from_address",
	"SMTP_HOST":                   "notify.smtp.host",
	"SMTP_PORT":                   "notify.smtp.port",
	"SMTP_USERNAME":               "notify.smtp.username",
	"SMTP_PASSWORD":               "notify.smtp.password",
	"SMTP_IMPLICIT_TLS":           "notify.smtp.implicit_tls",
	"UPLOAD_DIR":                  "storage.upload_dir",
	"RECONCILE_ENABLED":           "reconcile.enabled",
	"RECONCILE_SCHEDULE":          "reconcile.schedule",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

// validate reports every problem at once so a bad deploy is fixed in one
// pass.
func validate(c *Config) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Database.URL == "" {
		fail("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		fail("REDIS_URL is required")
	}
	if c.JWT.PrivateKeyPath == "" {
		fail("JWT_PRIVATE_KEY_PATH is required")
	}
	if c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*") {
		fail("cors: wildcard origin cannot be combined with credentials")
	}
	if c.IsProduction() && c.Otel.Enabled && c.Otel.Insecure {
		fail("OTEL_INSECURE must be false in production")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		fail("server read and write timeouts must be positive")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		fail("rate_limit.requests and rate_limit.window must be positive")
	}

	if _, err := c.Membership.SharePrice(); err != nil {
		errs = append(errs, err)
	}
	if c.Membership.ActivationThreshold < 1 {
		fail("membership.activation_threshold must be positive")
	}
	if !slices.Contains(ActivationRules, c.Membership.ActivationRule) {
		fail("membership.activation_rule %q is not one of %v", c.Membership.ActivationRule, ActivationRules)
	}

	switch c.Notify.Driver {
	case NotifyDriverLog:
	case NotifyDriverSMTP:
		if c.Notify.SMTP.Host == "" {
			fail("SMTP_HOST is required when notify.driver is smtp")
		}
	default:
		fail("notify.driver %q must be log or smtp", c.Notify.Driver)
	}
	if c.Notify.QueueSize < 1 || c.Notify.Workers < 1 {
		fail("notify.queue_size and notify.workers must be positive")
	}

	if c.Storage.MaxUploadBytes < 1 {
		fail("storage.max_upload_bytes must be positive")
	}
	if c.Reconcile.Enabled {
		if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
			fail("reconcile.schedule: %w", err)
		}
	}

	return errors.Join(errs...)
}

// SharePrice parses the configured price per share.
func (m MembershipConfig) SharePrice() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(m.PricePerShare)
	if err != nil {
		return decimal.Zero, fmt.Errorf("membership.price_per_share: %w", err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("membership.price_per_share must be positive")
	}
	return price, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
