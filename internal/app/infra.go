package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	_ "github.com/lib/pq"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/config"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/db"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/events"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/redis"
)

type Infra struct {
	DB       *db.DB
	Redis    *redis.Client
	Producer *events.Producer // nil when Kafka is not configured
}

func setupInfra(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.RunKeystoneMigration(ctx, sqlDB); err != nil {
		return nil, err
	}

	log.Info("database ready")

	redisClient, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		return nil, err
	}

	log.Info("redis ready")

	infra := &Infra{
		DB:    &db.DB{DB: sqlDB},
		Redis: redisClient,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		infra.Producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "/identity-service")
		log.Info("kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		log.Info("kafka not configured, event publication disabled")
	}

	return infra, nil
}

func (i *Infra) Close() error {
	if i.Producer != nil {
		_ = i.Producer.Close()
	}
	_ = i.Redis.Close()
	return i.DB.Close()
}
