package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	DB            DBConfig            `mapstructure:"db"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Scope         ScopeConfig         `mapstructure:"scope"`
	Session       SessionConfig       `mapstructure:"session"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Delivery      DeliveryConfig      `mapstructure:"delivery"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type LoggerConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// URL builds the connection string the way pgxpool expects it.
func (c DBConfig) URL() string {
	u := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
	if c.SSLMode != "" {
		u += "?sslmode=" + c.SSLMode
	}
	return u
}

// BackendConfig selects the data service: "postgres" uses DB, "memory"
// runs against an empty in-process store.
type BackendConfig struct {
	Driver string `mapstructure:"driver"`
}

type RealtimeConfig struct {
	// Driver is one of postgres, kafka or memory.
	Driver  string      `mapstructure:"driver"`
	Channel string      `mapstructure:"channel"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	GroupPrefix string   `mapstructure:"group_prefix"`
}

type ScopeConfig struct {
	StoreDSN string `mapstructure:"store_dsn"`
}

// SessionConfig is the operator the process acts for.
type SessionConfig struct {
	Role     string `mapstructure:"role"`
	BranchID string `mapstructure:"branch_id"`
}

type NotificationsConfig struct {
	Limit    int           `mapstructure:"limit"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type DeliveryConfig struct {
	StrictTransitions bool `mapstructure:"strict_transitions"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

var defaults = map[string]any{
	"app.env":                     "development",
	"app.auto_migrate":            false,
	"logger.level":                "info",
	"logger.encoding":             "console",
	"logger.development":          false,
	"logger.disable_caller":       false,
	"logger.disable_stacktrace":   true,
	"db.host":                     "localhost",
	"db.port":                     5432,
	"db.user":                     "postgres",
	"db.password":                 "",
	"db.name":                     "delivery",
	"db.sslmode":                  "disable",
	"db.max_conns":                10,
	"backend.driver":              "postgres",
	"realtime.driver":             "postgres",
	"realtime.channel":            "console_changes",
	"realtime.kafka.brokers":      []string{"localhost:9092"},
	"realtime.kafka.topic":        "console.changes",
	"realtime.kafka.group_prefix": "food-console",
	"scope.store_dsn":             "file://.food-console/scope.json",
	"session.role":                "admin",
	"session.branch_id":           "",
	"notifications.limit":         30,
	"notifications.debounce":      "250ms",
	"delivery.strict_transitions": false,
	"telegram.token":              "",
	"telegram.admin_chat_id":      0,
	"http.addr":                   ":8080",
	"http.shutdown_timeout":       "10s",
}

// Load reads .env (if present), an optional config file at path and the
// environment. Keys map to variables by upper-casing and replacing dots
// with underscores, so db.host is DB_HOST and telegram.admin_chat_id is
// TELEGRAM_ADMIN_CHAT_ID.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown backend.driver %q", c.Backend.Driver)
	}
	switch c.Realtime.Driver {
	case "postgres", "kafka", "memory":
	default:
		return fmt.Errorf("config: unknown realtime.driver %q", c.Realtime.Driver)
	}
	if c.Realtime.Driver == "postgres" && c.Backend.Driver != "postgres" {
		return fmt.Errorf("config: realtime.driver postgres needs backend.driver postgres")
	}
	if c.Realtime.Driver == "kafka" && len(c.Realtime.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: realtime.kafka.brokers is empty")
	}
	if c.Notifications.Limit <= 0 {
		return fmt.Errorf("config: notifications.limit must be positive")
	}
	return nil
}
