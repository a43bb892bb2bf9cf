// Package config loads the layered configuration: defaults < TOML
// file < environment, via viper with a TOML codec.
package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Telegram Telegram
	Meili    Meili
	Redis    Redis
	Search   Search
	Indexer  Indexer
	Debug    bool
}

type Telegram struct {
	BotToken string
	APIID    string
	APIHash  string
}

type Meili struct {
	Host       string
	MasterKey  string
	Index      string
	Timeout    time.Duration
	MaxRetries int
}

type Redis struct {
	Host           string
	Port           int
	DB             int
	CacheTTL       time.Duration
	SocketTimeout  time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
}

type Search struct {
	DefaultLimit int
	MaxLimit     int
}

type Indexer struct {
	BatchSize          int
	RateLimitDelay     time.Duration
	StateFlushInterval time.Duration
}

// Load builds a Config from defaults, an optional TOML file at path (absent
// is not an error), and environment variables, in that precedence order.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		Telegram: Telegram{
			BotToken: v.GetString("telegram.bot_token"),
			APIID:    v.GetString("telegram.api_id"),
			APIHash:  v.GetString("telegram.api_hash"),
		},
		Meili: Meili{
			Host:       v.GetString("meili.host"),
			MasterKey:  v.GetString("meili.master_key"),
			Index:      v.GetString("meili.index"),
			Timeout:    v.GetDuration("meili.timeout"),
			MaxRetries: v.GetInt("meili.max_retries"),
		},
		Redis: Redis{
			Host:           v.GetString("redis.host"),
			Port:           v.GetInt("redis.port"),
			DB:             v.GetInt("redis.db"),
			CacheTTL:       v.GetDuration("redis.cache_ttl"),
			SocketTimeout:  v.GetDuration("redis.socket_timeout"),
			ConnectTimeout: v.GetDuration("redis.connect_timeout"),
			MaxRetries:     v.GetInt("redis.max_retries"),
		},
		Search: Search{
			DefaultLimit: v.GetInt("search.default_limit"),
			MaxLimit:     v.GetInt("search.max_limit"),
		},
		Indexer: Indexer{
			BatchSize:          v.GetInt("indexer.batch_size"),
			RateLimitDelay:     v.GetDuration("indexer.rate_limit_delay"),
			StateFlushInterval: v.GetDuration("indexer.state_flush_interval"),
		},
		Debug: v.GetBool("debug"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces taxonomy item 1: missing bot token or api id/hash is
// a fatal configuration error at startup.
func (c Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("config: TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.APIID == "" || c.Telegram.APIHash == "" {
		return fmt.Errorf("config: TELEGRAM_API_ID and TELEGRAM_API_HASH are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("meili.index", "telegram_messages")
	v.SetDefault("meili.timeout", 5*time.Second)
	v.SetDefault("meili.max_retries", 3)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", 3600*time.Second)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)

	v.SetDefault("indexer.batch_size", 100)
	v.SetDefault("indexer.rate_limit_delay", 1*time.Second)
	v.SetDefault("indexer.state_flush_interval", 1*time.Second)

	v.SetDefault("debug", false)
}

// bindEnv wires the bit-exact environment variable names from to their
// config keys.
func bindEnv(v *viper.Viper) {
	binds := map[string]string{
		"telegram.bot_token":          "TELEGRAM_BOT_TOKEN",
		"telegram.api_id":             "TELEGRAM_API_ID",
		"telegram.api_hash":           "TELEGRAM_API_HASH",
		"meili.host":                  "MEILI_HOST",
		"meili.master_key":            "MEILI_MASTER_KEY",
		"meili.index":                 "MEILI_INDEX",
		"meili.timeout":               "MEILI_TIMEOUT",
		"meili.max_retries":           "MEILI_MAX_RETRIES",
		"redis.host":                  "REDIS_HOST",
		"redis.port":                  "REDIS_PORT",
		"redis.db":                    "REDIS_DB",
		"redis.cache_ttl":             "REDIS_CACHE_TTL",
		"redis.socket_timeout":        "REDIS_SOCKET_TIMEOUT",
		"redis.connect_timeout":       "REDIS_CONNECT_TIMEOUT",
		"redis.max_retries":           "REDIS_MAX_RETRIES",
		"indexer.state_flush_interval": "STATE_FLUSH_INTERVAL",
		"debug":                       "DEBUG",
	}
	for key, env := range binds {
		v.BindEnv(key, env)
	}
}

// GenerateDefaultTOML renders cfg as a TOML document via go-toml/v2. No
// binary in this module calls it.
func GenerateDefaultTOML(cfg Config) ([]byte, error) {
	type tomlTelegram struct {
		BotToken string `toml:"bot_token"`
		APIID    string `toml:"api_id"`
		APIHash  string `toml:"api_hash"`
	}
	type tomlMeili struct {
		Host       string `toml:"host"`
		Index      string `toml:"index"`
		MaxRetries int    `toml:"max_retries"`
	}
	type tomlRedis struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
		DB   int    `toml:"db"`
	}
	type tomlDoc struct {
		Telegram tomlTelegram `toml:"telegram"`
		Meili    tomlMeili    `toml:"meili"`
		Redis    tomlRedis    `toml:"redis"`
		Debug    bool         `toml:"debug"`
	}

	doc := tomlDoc{
		Telegram: tomlTelegram{BotToken: cfg.Telegram.BotToken, APIID: cfg.Telegram.APIID, APIHash: cfg.Telegram.APIHash},
		Meili:    tomlMeili{Host: cfg.Meili.Host, Index: cfg.Meili.Index, MaxRetries: cfg.Meili.MaxRetries},
		Redis:    tomlRedis{Host: cfg.Redis.Host, Port: cfg.Redis.Port, DB: cfg.Redis.DB},
		Debug:    cfg.Debug,
	}
	return toml.Marshal(doc)
}
