package app

import (
	"context"
	"errors"
	"fmt"

	"review-service/internal/config"
	"review-service/internal/db"
	"review-service/internal/events"
	"review-service/internal/logger"
	"review-service/internal/redis"
	"review-service/internal/review"
	"review-service/internal/session"
)

type notifier interface {
	review.Notifier
	Close() error
}

type Infra struct {
	DB       *db.DB
	Redis    *redis.Client
	Sessions session.Store
	Notifier notifier
}

func setupInfra(ctx context.Context, cfg config.Config) (_ *Infra, err error) {
	infra := &Infra{}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	infra.DB, err = db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, infra.DB); err != nil {
		return nil, err
	}

	logger.Info("database ready", map[string]any{"driver": cfg.DatabaseDriver})

	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		infra.Redis, err = redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Sessions = session.NewRedisStore(infra.Redis.Client)
		logger.Info("redis ready", nil)
	case config.SessionBackendMemory:
		infra.Sessions = session.NewMemoryStore()
		logger.Warn("using in-memory sessions; logins do not survive a restart", nil)
	default:
		return nil, fmt.Errorf("app: unsupported session backend %q", cfg.SessionBackend)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		infra.Notifier = publisher
		logger.Info("kafka publisher ready", map[string]any{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaTopic,
		})
	} else {
		infra.Notifier = events.Noop{}
	}

	return infra, nil
}

// Close releases everything setupInfra opened.
func (i *Infra) Close() error {
	var errs []error
	if i.Notifier != nil {
		errs = append(errs, i.Notifier.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	return errors.Join(errs...)
}
