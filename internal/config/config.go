package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Moderation ModerationConfig
	Geo        GeoConfig
}

type AppConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// MaxConns / MinConns размеры пула соединений (0 = по умолчанию)
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host string
	Port string
	// PoolSize / MinIdleConns размеры пула соединений (0 = по умолчанию)
	PoolSize     int
	MinIdleConns int
}

type AuthConfig struct {
	// APIKeys API key -> имя владельца (обычные пользователи)
	APIKeys map[string]string
	// AdminAPIKeys API key -> имя админа
	AdminAPIKeys map[string]string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// ResolveRPS / ResolveBurst отдельный бюджет публичного резолва
	ResolveRPS   float64
	ResolveBurst int
}

type ModerationConfig struct {
	// BlockedDomains домены, банящиеся безусловно. Пусто = встроенный список.
	BlockedDomains []string
}

type GeoConfig struct {
	// BaseURL внешнего geo-lookup сервиса; пусто = geo-lookup выключен
	BaseURL string
	Timeout time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.DB.MaxConns = viper.GetInt32("DB_MAX_CONNS")
	cfg.DB.MinConns = viper.GetInt32("DB_MIN_CONNS")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.PoolSize = viper.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = viper.GetInt("REDIS_MIN_IDLE_CONNS")

	// Auth config - parse API keys from comma-separated string
	// Format: key1:name1,key2:name2
	cfg.Auth.APIKeys = parseAPIKeys(viper.GetString("API_KEYS"))
	cfg.Auth.AdminAPIKeys = parseAPIKeys(viper.GetString("ADMIN_API_KEYS"))

	// Rate limit config
	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}
	cfg.RateLimit.ResolveRPS = viper.GetFloat64("RATE_LIMIT_RESOLVE_RPS")
	if cfg.RateLimit.ResolveRPS == 0 {
		cfg.RateLimit.ResolveRPS = 50
	}
	cfg.RateLimit.ResolveBurst = viper.GetInt("RATE_LIMIT_RESOLVE_BURST")
	if cfg.RateLimit.ResolveBurst == 0 {
		cfg.RateLimit.ResolveBurst = 100
	}

	// Moderation config
	cfg.Moderation.BlockedDomains = parseList(viper.GetString("MODERATION_BLOCKLIST"))

	// Geo lookup config
	cfg.Geo.BaseURL = viper.GetString("GEO_LOOKUP_URL")
	cfg.Geo.Timeout = viper.GetDuration("GEO_LOOKUP_TIMEOUT")
	if cfg.Geo.Timeout == 0 {
		cfg.Geo.Timeout = 2 * time.Second
	}

	return &cfg, nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

// parseList разбирает список значений через запятую
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
