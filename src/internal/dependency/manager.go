package dependency

import (
	"time"

	"github.com/gin-gonic/gin"

	"prodtrack-svc/src/clients"
	"prodtrack-svc/src/internal/cache"
	"prodtrack-svc/src/internal/cancellation"
	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/dashboard"
	"prodtrack-svc/src/internal/events"
	"prodtrack-svc/src/internal/realtime"
	"prodtrack-svc/src/internal/rfid"
	"prodtrack-svc/src/internal/session"
)

type Manager struct {
	Router              *gin.Engine
	Config              *config.Configuration
	Mongodb             *clients.MongoDB
	Redis               *clients.RedisClient
	RabbitMQ            *clients.RabbitMQ
	Catalog             catalog.Repository
	SessionRepo         session.Repository
	SessionService      session.Service
	SessionHandler      session.Handler
	CancellationRepo    cancellation.Repository
	CancellationService cancellation.Service
	CancellationHandler cancellation.Handler
	Resolver            rfid.Resolver
	RFIDHandler         rfid.Handler
	Aggregator          dashboard.Aggregator
	DashboardHandler    dashboard.Handler
	CacheService        cache.Service
	Hub                 *realtime.Hub
	Dispatcher          *realtime.Dispatcher
	RealtimeHandler     *realtime.Handler
	EventPublisher      *clients.EventPublisher
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	location := cfg.Location()
	timeout := time.Duration(cfg.App.Timeout) * time.Second

	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	catalogRepo := catalog.NewCatalogRepository(mongodb, &cfg.Database.Collections)
	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.Collections.Sessions)
	cancellationRepo := cancellation.NewCancellationRepository(mongodb,
		cfg.Database.Collections.Cancellations, cfg.Database.Collections.Sessions)

	aggregator := dashboard.NewAggregator(sessionRepo, catalogRepo, catalogRepo,
		cfg.Dashboard.SubLineCapacity, location)

	hub := realtime.NewHub()
	throttler := realtime.NewThrottler(time.Duration(cfg.Dashboard.ThrottleSeconds) * time.Second)
	dispatcher := realtime.NewDispatcher(hub, throttler, aggregator, cacheService, timeout)
	realtimeHandler := realtime.NewHandler(hub, dispatcher, timeout)

	eventPublisher := clients.NewEventPublisher(rabbitMQ, cfg)
	publisher := events.Fanout{dispatcher, eventPublisher}

	sessionService := session.NewSessionService(sessionRepo, catalogRepo, publisher, location)
	sessionHandler := session.NewHandler(cfg, sessionService)

	cancellationService := cancellation.NewCancellationService(cancellationRepo,
		sessionRepo, catalogRepo, publisher, location)
	cancellationHandler := cancellation.NewHandler(cfg, cancellationService)

	resolver := rfid.NewResolver(catalogRepo, sessionService)
	rfidHandler := rfid.NewHandler(cfg, resolver)

	dashboardHandler := dashboard.NewHandler(cfg, aggregator, cacheService)

	return &Manager{
		Router:              router,
		Config:              cfg,
		Mongodb:             mongodb,
		Redis:               redisClient,
		RabbitMQ:            rabbitMQ,
		Catalog:             catalogRepo,
		SessionRepo:         sessionRepo,
		SessionService:      sessionService,
		SessionHandler:      sessionHandler,
		CancellationRepo:    cancellationRepo,
		CancellationService: cancellationService,
		CancellationHandler: cancellationHandler,
		Resolver:            resolver,
		RFIDHandler:         rfidHandler,
		Aggregator:          aggregator,
		DashboardHandler:    dashboardHandler,
		CacheService:        cacheService,
		Hub:                 hub,
		Dispatcher:          dispatcher,
		RealtimeHandler:     realtimeHandler,
		EventPublisher:      eventPublisher,
	}
}
