package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"prodtrack-svc/src/clients"
	"prodtrack-svc/src/internal/dependency"
	"prodtrack-svc/src/internal/middleware"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupPublicRoutes(router, deps)
	setupProductionRoutes(router, deps)
	setupRealtimeRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"sessions":  "operational",
					"rfid":      "operational",
					"dashboard": "operational",
					"realtime":  gin.H{"subscribers": deps.Hub.Count()},
				},
			},
		})
	})
}

func setupPublicRoutes(router *gin.Engine, deps *dependency.Manager) {
	// API status endpoint
	router.GET("/api/v1/status", func(c *gin.Context) {
		log.Info("API status requested")
		c.JSON(200, gin.H{
			"api_version": "v1",
			"status":      "operational",
			"service":     deps.Config.App.Name,
		})
	})
}

func setupProductionRoutes(router *gin.Engine, deps *dependency.Manager) {
	deviceAuth := middleware.NewDeviceAuthMiddleware(deps.Config.Security.DeviceJwtKey)

	registro := router.Group("/api/v1/registro")
	{
		registro.POST("/entry",
			setRouteName("openEntry"),
			deps.SessionHandler.OpenEntry)

		registro.POST("/exit",
			setRouteName("closeExit"),
			deps.SessionHandler.CloseExit)

		registro.GET("/open",
			setRouteName("resolveOpen"),
			deps.SessionHandler.ResolveOpen)

		registro.GET("/active",
			setRouteName("listOpenSessions"),
			deps.SessionHandler.ListOpen)

		registro.GET("",
			setRouteName("listSessions"),
			deps.SessionHandler.ListSessions)
	}

	router.POST("/api/v1/rfid/toggle",
		setRouteName("toggleByBadge"),
		deviceAuth.RequireDevice(),
		deps.RFIDHandler.Toggle)

	cancellations := router.Group("/api/v1/cancellations")
	{
		cancellations.POST("",
			setRouteName("cancelSession"),
			deps.CancellationHandler.Cancel)

		cancellations.PATCH("/:id/reason",
			setRouteName("updateCancellationReason"),
			deps.CancellationHandler.UpdateReason)

		cancellations.DELETE("/:id",
			setRouteName("deleteCancellation"),
			deps.CancellationHandler.Delete)

		cancellations.GET("",
			setRouteName("listCancellations"),
			deps.CancellationHandler.List)
	}

	router.GET("/api/v1/dashboard",
		setRouteName("dashboardSnapshot"),
		deps.DashboardHandler.GetSnapshot)
}

func setupRealtimeRoutes(router *gin.Engine, deps *dependency.Manager) {
	router.GET("/ws/dashboard", gin.WrapH(deps.RealtimeHandler.HTTPHandler()))
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
