package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	TeamSL    TeamSLConfig    `mapstructure:"teamsl"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Ops       OpsConfig       `mapstructure:"ops"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
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
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CronConfig holds one schedule per horizon. Specs carry a leading seconds field.
type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Location string `mapstructure:"location"`
	W1       string `mapstructure:"w1"`
	W3       string `mapstructure:"w3"`
	All      string `mapstructure:"all"`
}

// Specs returns the cron spec per horizon token. Empty specs are left out.
func (c CronConfig) Specs() map[string]string {
	out := map[string]string{}
	for token, spec := range map[string]string{"w1": c.W1, "w3": c.W3, "all": c.All} {
		if strings.TrimSpace(spec) != "" {
			out[token] = spec
		}
	}
	return out
}

type TeamSLConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RequestRate  float64       `mapstructure:"request_rate"`
	RequestBurst int           `mapstructure:"request_burst"`
	Location     string        `mapstructure:"location"`
}

type SyncConfig struct {
	PageSize          int           `mapstructure:"page_size"`
	MaxPages          int           `mapstructure:"max_pages"`
	BatchSize         int           `mapstructure:"batch_size"`
	BatchPause        time.Duration `mapstructure:"batch_pause"`
	MismatchPolicy    string        `mapstructure:"mismatch_policy"`
	PurgeOnMismatch   bool          `mapstructure:"purge_on_mismatch"`
	DetailEnrichment  bool          `mapstructure:"detail_enrichment"`
	DetailConcurrency int           `mapstructure:"detail_concurrency"`
}

type SchedulerConfig struct {
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AuthConfig struct {
	Disabled  bool   `mapstructure:"disabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type OpsConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Agent   string `mapstructure:"agent"`
}

func Load(path string, envOnly bool) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 5)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "10s")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.location", "Europe/Berlin")
	v.SetDefault("cron.w1", "0 5,10,20,25,35,40,50,55 7-23 * * *")
	v.SetDefault("cron.w3", "0 15,45 7-23 * * *")
	v.SetDefault("cron.all", "0 0,30 7-23 * * *")
	v.SetDefault("teamsl.base_url", "https://www.basketball-bund.net")
	v.SetDefault("teamsl.username", "")
	v.SetDefault("teamsl.password", "")
	v.SetDefault("teamsl.timeout", "30s")
	v.SetDefault("teamsl.request_rate", 10.0)
	v.SetDefault("teamsl.request_burst", 10)
	v.SetDefault("teamsl.location", "Europe/Berlin")
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.max_pages", 50)
	v.SetDefault("sync.batch_size", 10)
	v.SetDefault("sync.batch_pause", "200ms")
	v.SetDefault("sync.mismatch_policy", "warn")
	v.SetDefault("sync.purge_on_mismatch", true)
	v.SetDefault("sync.detail_enrichment", true)
	v.SetDefault("sync.detail_concurrency", 4)
	v.SetDefault("scheduler.run_timeout", "0s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "spielebasar:lock:")
	v.SetDefault("redis.lock_ttl", "30m")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "spielebasar.matches")
	v.SetDefault("kafka.batch_timeout", "100ms")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("ops.agent", "spielebasar-sync")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Sync.MismatchPolicy)) {
	case "", "warn", "retry", "fail":
	default:
		return fmt.Errorf("sync.mismatch_policy: unsupported value %q", c.Sync.MismatchPolicy)
	}
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case "", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("db.driver: unsupported value %q", c.DB.Driver)
	}
	if c.Sync.PageSize < 0 || c.Sync.MaxPages < 0 || c.Sync.BatchSize < 0 {
		return fmt.Errorf("sync: page_size, max_pages and batch_size must not be negative")
	}
	return nil
}
