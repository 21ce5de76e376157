package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 机器人全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Points    PointsConfig    `mapstructure:"points"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 每个客户端每分钟允许的命令数
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite | postgres
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DiscordConfig struct {
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	// 升级时是否在频道内回复提示
	LevelUpNotice bool `mapstructure:"level_up_notice"`
}

type PointsConfig struct {
	PerMessage        int64         `mapstructure:"per_message"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	PerLevel          int64         `mapstructure:"per_level"`
	MaxLevel          int           `mapstructure:"max_level"`
	LevelUpBonusCoins int64         `mapstructure:"level_up_bonus_coins"`
}

type FeaturesConfig struct {
	EmojiStats      bool `mapstructure:"emoji_stats"`
	ContentAnalysis bool `mapstructure:"content_analysis"`
}

type CacheConfig struct {
	EmojiTTL     time.Duration `mapstructure:"emoji_ttl"`
	UserStatsTTL time.Duration `mapstructure:"user_stats_ttl"`
	BoardTTL     time.Duration `mapstructure:"board_ttl"`
}

type DedupConfig struct {
	Window time.Duration `mapstructure:"window"`
}

type StorageConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// 熔断：连续失败多少次后打开
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	RefreshWorkers  int           `mapstructure:"refresh_workers"`
	RefreshQueue    int           `mapstructure:"refresh_queue"`
}

type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Days     int           `mapstructure:"days"`
	Interval time.Duration `mapstructure:"interval"`
}

type AdminConfig struct {
	UserIDs   []string      `mapstructure:"user_ids"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// IsAdmin 判断用户是否在管理员白名单中
func (c AdminConfig) IsAdmin(userID string) bool {
	for _, id := range c.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load 读取配置：默认值 < 配置文件 < BOT_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// 环境变量传入的逗号分隔列表
	if len(cfg.Admin.UserIDs) == 1 && strings.Contains(cfg.Admin.UserIDs[0], ",") {
		cfg.Admin.UserIDs = splitList(cfg.Admin.UserIDs[0])
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "discordbot")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_per_minute", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/bot.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "error")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("discord.timeout", 10*time.Second)
	v.SetDefault("discord.level_up_notice", true)

	v.SetDefault("points.per_message", 1)
	v.SetDefault("points.cooldown", 30*time.Second)
	v.SetDefault("points.per_level", 100)
	v.SetDefault("points.max_level", 100)
	v.SetDefault("points.level_up_bonus_coins", 25)

	v.SetDefault("features.emoji_stats", true)
	v.SetDefault("features.content_analysis", true)

	v.SetDefault("cache.emoji_ttl", 5*time.Minute)
	v.SetDefault("cache.user_stats_ttl", 2*time.Minute)
	v.SetDefault("cache.board_ttl", time.Minute)

	v.SetDefault("dedup.window", 60*time.Second)

	v.SetDefault("storage.timeout", 5*time.Second)
	v.SetDefault("storage.breaker_failures", 5)
	v.SetDefault("storage.breaker_cooldown", 30*time.Second)
	v.SetDefault("storage.refresh_workers", 2)
	v.SetDefault("storage.refresh_queue", 1024)

	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.days", 365)
	v.SetDefault("retention.interval", 24*time.Hour)

	v.SetDefault("admin.user_ids", []string{})
	v.SetDefault("admin.token_ttl", 12*time.Hour)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "discordbot")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Points.PerMessage < 0 {
		return fmt.Errorf("points.per_message must be >= 0")
	}
	if c.Points.PerLevel <= 0 {
		return fmt.Errorf("points.per_level must be > 0")
	}
	if c.Points.MaxLevel < 1 {
		return fmt.Errorf("points.max_level must be >= 1")
	}
	if c.Points.LevelUpBonusCoins < 0 {
		return fmt.Errorf("points.level_up_bonus_coins must be >= 0")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
