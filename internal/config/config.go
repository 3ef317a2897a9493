package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	JQuants  JQuantsConfig  `mapstructure:"jquants"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Universe UniverseConfig `mapstructure:"universe"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	APIToken string `mapstructure:"api_token"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DailySync string `mapstructure:"daily_sync"`
}

// JQuantsConfig configures the market-data provider. RefreshToken is a secret
// and must never be logged.
type JQuantsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RefreshToken   string        `mapstructure:"refresh_token"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AuthTimeout    time.Duration `mapstructure:"auth_timeout"`
	AuthAttempts   int           `mapstructure:"auth_attempts"`
	AuthBackoff    time.Duration `mapstructure:"auth_backoff"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type CacheConfig struct {
	RedisURL string `mapstructure:"redis_url"`
}

type SyncConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	DayMaxPages  int    `mapstructure:"day_max_pages"`
	CodeMaxPages int    `mapstructure:"code_max_pages"`
	MaxRangeDays int    `mapstructure:"max_range_days"`
	LookbackDays int    `mapstructure:"lookback_days"`
	ArchiveDir   string `mapstructure:"archive_dir"`
}

type ScoringConfig struct {
	FactorSet string             `mapstructure:"factor_set"`
	Limit     int                `mapstructure:"limit"`
	MaxLimit  int                `mapstructure:"max_limit"`
	Medium    FactorParamsConfig `mapstructure:"medium"`
	Intraday  FactorParamsConfig `mapstructure:"intraday"`
	Weights   map[string]float64 `mapstructure:"weights"`
}

type FactorParamsConfig struct {
	NRet      int `mapstructure:"n_ret"`
	NMom      int `mapstructure:"n_mom"`
	NVolShort int `mapstructure:"n_vol_short"`
	NVolLong  int `mapstructure:"n_vol_long"`
	NVola     int `mapstructure:"n_vola"`
	MinFloor  int `mapstructure:"min_floor"`
}

type UniverseConfig struct {
	CompanyCSV string `mapstructure:"company_csv"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.api_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "Asia/Tokyo")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_sync", "0 30 18 * * 1-5")

	v.SetDefault("jquants.base_url", "https://api.jquants.com/v1")
	v.SetDefault("jquants.refresh_token", "")
	v.SetDefault("jquants.timeout", "60s")
	v.SetDefault("jquants.request_timeout", "30s")
	v.SetDefault("jquants.auth_timeout", "10s")
	v.SetDefault("jquants.auth_attempts", 3)
	v.SetDefault("jquants.auth_backoff", "300ms")
	v.SetDefault("jquants.token_ttl", "23h")
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("sync.concurrency", 6)
	v.SetDefault("sync.chunk_size", 400)
	v.SetDefault("sync.day_max_pages", 300)
	v.SetDefault("sync.code_max_pages", 200)
	v.SetDefault("sync.max_range_days", 400)
	v.SetDefault("sync.lookback_days", 7)
	v.SetDefault("sync.archive_dir", "")

	v.SetDefault("scoring.factor_set", "medium")
	v.SetDefault("scoring.limit", 50)
	v.SetDefault("scoring.max_limit", 500)
	v.SetDefault("scoring.medium.n_ret", 20)
	v.SetDefault("scoring.medium.n_mom", 20)
	v.SetDefault("scoring.medium.n_vol_short", 5)
	v.SetDefault("scoring.medium.n_vol_long", 20)
	v.SetDefault("scoring.medium.n_vola", 20)
	v.SetDefault("scoring.medium.min_floor", 5)
	v.SetDefault("scoring.intraday.n_vol_short", 5)
	v.SetDefault("scoring.intraday.n_vola", 5)
	v.SetDefault("scoring.intraday.min_floor", 2)
	v.SetDefault("scoring.weights", map[string]float64{})

	v.SetDefault("universe.company_csv", "data/companies.csv")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
