package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/clients"
	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/dependency"
)

var log = logrus.StandardLogger()

type Server struct {
	cfg  *config.Configuration
	deps *dependency.Manager
}

func New(cfg *config.Configuration) *Server {
	mongodb, err := clients.NewMongoDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}

	redisClient, err := clients.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	rabbitMQ, err := clients.NewRabbitMQ(&cfg.Queue)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	if err := rabbitMQ.SetupExchange(); err != nil {
		log.WithError(err).Fatal("Failed to declare RabbitMQ exchange")
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()

	deps := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, cfg)
	SetupRoutes(deps)

	ensureIndexes(deps)

	return &Server{cfg: cfg, deps: deps}
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.deps.Router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Listening on port %s", s.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
		return err
	}

	s.closeClients(ctx)
	log.Info("Server stopped")
	return nil
}

func (s *Server) closeClients(ctx context.Context) {
	if err := s.deps.RabbitMQ.Close(); err != nil {
		log.WithError(err).Warn("Failed to close RabbitMQ")
	}
	if err := s.deps.Redis.Close(); err != nil {
		log.WithError(err).Warn("Failed to close Redis")
	}
	if err := s.deps.Mongodb.Close(ctx); err != nil {
		log.WithError(err).Warn("Failed to close MongoDB")
	}
}

func ensureIndexes(deps *dependency.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(deps.Config.Database.Timeout)*time.Second)
	defer cancel()

	if err := deps.SessionRepo.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure session indexes")
	}
	if err := deps.CancellationRepo.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure cancellation indexes")
	}
}
