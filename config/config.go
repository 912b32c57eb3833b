package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Database is the name of the database holding guild records.
	Database   string        `mapstructure:"database"`
	// Developers holds Discord user ids. JSON configs should quote them:
	// snowflakes do not survive a round trip through float64.
	Developers []string      `mapstructure:"developers"`
	Discord    DiscordConfig `mapstructure:"discord"`
	Bot        BotConfig     `mapstructure:"bot"`
	Storage    StorageConfig `mapstructure:"storage"`
	Cache      CacheConfig   `mapstructure:"cache"`
	HTTP       HTTPConfig    `mapstructure:"http"`
	Audit      AuditConfig   `mapstructure:"audit"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

type BotConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DevGuildID     string        `mapstructure:"dev_guild_id"` // register commands in this guild only
	RestrictTagAdd bool          `mapstructure:"restrict_tag_add"`
	PingCooldown   time.Duration `mapstructure:"ping_cooldown"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	EmbedColor     int           `mapstructure:"embed_color"`
}

type StorageConfig struct {
	Mode         string        `mapstructure:"mode"` // mongo | sqlite | mysql
	MongoURI     string        `mapstructure:"mongo_uri"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type HTTPConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Port           int     `mapstructure:"port"`
	AdminKey       string  `mapstructure:"admin_key"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MySQLDSN   string `mapstructure:"mysql_dsn"` // takes precedence over sqlite_path
}

// Load reads config from the given file (JSON, YAML or TOML by extension).
// A .env file in the working directory, if present, is loaded first so that
// MONGODB_URI and TOKEN can come from it.
func Load(path string) (*Config, error) {
	_ = godotenv.Overload()

	v := viper.New()
	v.SetConfigFile(path)

	// Defaults
	v.SetDefault("database", "theseus")
	v.SetDefault("bot.debug", false)
	v.SetDefault("bot.restrict_tag_add", false)
	v.SetDefault("bot.ping_cooldown", "30s")
	v.SetDefault("bot.rate_limit_rps", 1)
	v.SetDefault("bot.rate_limit_burst", 5)
	v.SetDefault("bot.embed_color", 0x2b2d31)
	v.SetDefault("storage.mode", "mongo")
	v.SetDefault("storage.sqlite_path", "./data/theseus.db")
	v.SetDefault("storage.mysql_max_open", 20)
	v.SetDefault("storage.mysql_max_idle", 5)
	v.SetDefault("storage.mysql_max_life", "1h")
	v.SetDefault("storage.timeout", "10s")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.rate_limit_rps", 20)
	v.SetDefault("http.rate_limit_burst", 40)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.sqlite_path", "./data/audit.db")

	_ = v.BindEnv("storage.mongo_uri", "MONGODB_URI")
	_ = v.BindEnv("discord.token", "TOKEN")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDeveloper reports whether id is listed under developers.
func (c *Config) IsDeveloper(id int64) bool {
	for _, d := range c.Developers {
		if n, err := strconv.ParseInt(d, 10, 64); err == nil && n == id {
			return true
		}
	}
	return false
}
