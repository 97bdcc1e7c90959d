package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/dashboard"
	"prodtrack-svc/src/internal/models"
)

type Service interface {
	GetSnapshot(ctx context.Context) (*dashboard.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *dashboard.Snapshot) error
	InvalidateSnapshot(ctx context.Context) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) GetSnapshot(ctx context.Context) (*dashboard.Snapshot, error) {
	data, err := c.client.Get(ctx, c.cfg.SnapshotKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.Debug("Dashboard snapshot not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).Error("Failed to get snapshot from cache")
		return nil, models.ErrRedisGet
	}

	var snapshot dashboard.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal snapshot from cache")
		return nil, models.ErrRedisGet
	}

	logrus.Debug("Dashboard snapshot retrieved from cache")
	return &snapshot, nil
}

func (c *cacheService) SaveSnapshot(ctx context.Context, snapshot *dashboard.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal snapshot for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.SnapshotExpirationSeconds) * time.Second
	if err := c.client.Set(ctx, c.cfg.SnapshotKey, data, expiration).Err(); err != nil {
		logrus.WithError(err).Error("Failed to cache snapshot")
		return models.ErrRedisSet
	}
	return nil
}

func (c *cacheService) InvalidateSnapshot(ctx context.Context) error {
	if err := c.client.Del(ctx, c.cfg.SnapshotKey).Err(); err != nil {
		logrus.WithError(err).Error("Failed to invalidate snapshot cache")
		return models.ErrRedisDelete
	}
	return nil
}
