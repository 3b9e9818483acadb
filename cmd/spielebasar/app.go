package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/collector"
	"spielebasar/internal/config"
	"spielebasar/internal/db"
	"spielebasar/internal/events"
	"spielebasar/internal/logger"
	"spielebasar/internal/opslog"
	"spielebasar/internal/redislock"
	gormrepository "spielebasar/internal/repository/gorm"
	"spielebasar/internal/scheduler"
	"spielebasar/internal/service"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *db.DB
	store     *gormrepository.Store
	settings  *service.SystemSettingsService
	sync      *service.OpenGamesSyncService
	scheduler *scheduler.Scheduler
	opsLog    *opslog.Client
	events    events.Publisher
	redis     *redis.Client
}

func loadConfig() (config.Config, error) {
	cfgPath := os.Getenv("SB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("SB_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	return config.Load(cfgPath, envOnly)
}

// openStore loads config, builds the logger and connects the database.
func openStore() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	conn, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.SetTimezone(conn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	return &app{cfg: cfg, logger: log, db: conn, store: gormrepository.New(conn.Gorm)}, nil
}

// newApp wires the full sync stack on top of openStore.
func newApp(ctx context.Context) (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}
	cfg := a.cfg
	if err := db.AutoMigrate(a.db); err != nil {
		a.close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	a.settings = &service.SystemSettingsService{Repo: a.store}
	if err := a.settings.EnsureDefaultSwitches(ctx); err != nil {
		a.logger.Warn("init default feature switches failed", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.TeamSL.Location)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("teamsl.location: %w", err)
	}
	upstream := teamsl.New(teamsl.Options{
		BaseURL:      cfg.TeamSL.BaseURL,
		Timeout:      cfg.TeamSL.Timeout,
		RequestRate:  cfg.TeamSL.RequestRate,
		RequestBurst: cfg.TeamSL.RequestBurst,
		Location:     loc,
	}, a.logger)
	pages := collector.New(upstream, a.logger, collector.Options{
		PageSize:   cfg.Sync.PageSize,
		MaxPages:   cfg.Sync.MaxPages,
		BatchSize:  cfg.Sync.BatchSize,
		BatchPause: cfg.Sync.BatchPause,
	})

	a.events = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, a.logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.events = pub
		a.logger.Info("match events go to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	a.sync = &service.OpenGamesSyncService{
		Store:     a.store,
		Upstream:  upstream,
		Collector: pages,
		Events:    a.events,
		Logger:    a.logger,
		Options: service.SyncOptions{
			Username:          cfg.TeamSL.Username,
			Password:          cfg.TeamSL.Password,
			MismatchPolicy:    service.ParseMismatchPolicy(cfg.Sync.MismatchPolicy),
			PurgeOnMismatch:   cfg.Sync.PurgeOnMismatch,
			DetailEnrichment:  cfg.Sync.DetailEnrichment,
			DetailConcurrency: cfg.Sync.DetailConcurrency,
		},
	}

	a.opsLog = initOpsLog(cfg.Ops, a.logger)

	a.scheduler = scheduler.New(a.sync, a.logger)
	a.scheduler.Switches = a.settings
	a.scheduler.RunTimeout = cfg.Scheduler.RunTimeout
	a.scheduler.BaseContext = ctx
	if a.opsLog != nil {
		a.scheduler.Notifier = a.opsLog
	}
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.scheduler.Guard = &scheduler.RedisGuard{
			Locker: redislock.New(a.redis, cfg.Redis.KeyPrefix, cfg.Redis.LockTTL),
			Logger: a.logger,
		}
		a.logger.Info("cluster guard enabled", zap.String("redis", addr))
	}
	return a, nil
}

func initOpsLog(cfg config.OpsConfig, log *zap.Logger) *opslog.Client {
	p := opslog.FromConfig(cfg, log)
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.Login(ctx); err != nil {
		log.Warn("ops log login failed (run summaries disabled)", zap.Error(err))
		return nil
	}
	log.Info("ops log login ok")
	return p
}

func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("closing event publisher failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = db.Close(a.db)
	_ = a.logger.Sync()
}
