package clients

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"prodtrack-svc/src/internal/config"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Redis) (*RedisClient, error) {
	log.WithField("url", cfg.Url).Info("Connecting to Redis...")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.Db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Error("Failed to ping Redis")
		return nil, err
	}

	log.Infof("Connected to Redis at %s", cfg.Url)

	return &RedisClient{Client: client}, nil
}

func (r *RedisClient) Close() error {
	if err := r.Client.Close(); err != nil {
		log.WithError(err).Error("Failed to close Redis connection")
		return err
	}
	log.Info("Redis connection closed")
	return nil
}
