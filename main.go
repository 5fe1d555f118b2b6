package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"main/handler"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}

	// Check required environment variables
	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"CRON_SECRET",
		"PORT",
	}

	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	if os.Getenv("GO_ENV") != "test" {
		// Initialize MongoDB connection
		utils.InitMongoClient()

		// Notification config cache is optional; run without it if Redis
		// is not configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			cache, err := services.NewConfigCache(redisURL)
			if err != nil {
				log.Printf("Warning: config cache disabled: %v", err)
			} else {
				services.GlobalConfigCache = cache
			}
		}
	}
}

func setupRouter() *gin.Engine {
	// Create default gin router
	router := gin.Default()

	// Initialize repositories
	sessionRepo := repository.GetSessionRepo(utils.MongoClient)
	sessionTypeRepo := repository.GetSessionTypeRepo(utils.MongoClient)
	activityRepo := repository.GetActivitySessionRepo(utils.MongoClient)
	userRepo := repository.GetUserRepo(utils.MongoClient)
	apiKeyRepo := repository.GetAPIKeyRepo(utils.MongoClient)
	configRepo := repository.GetNotificationConfigRepo(utils.MongoClient)

	// Outbound collaborators
	roblox := services.NewRobloxClient()
	var discordChannel services.Channel
	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		channel, err := services.NewDiscordChannel(token)
		if err != nil {
			log.Printf("Warning: discord notifications disabled: %v", err)
		} else {
			discordChannel = channel
		}
	}

	// Notification dispatcher runs deliveries off the request path.
	dispatcher := services.NewDispatcher(configRepo, discordChannel, services.NewWebhookChannel(), sessionRepo)
	dispatcher.Start()

	reconciler := &services.Reconciler{
		Sessions: sessionRepo,
		Types:    sessionTypeRepo,
		Users:    userRepo,
		Notifier: dispatcher,
	}

	ingestor := &services.BulkIngestor{
		Keys:     apiKeyRepo,
		Activity: activityRepo,
		Profiles: userRepo,
		Roblox:   roblox,
		Notifier: dispatcher,
	}

	userSync := &services.UserSync{
		Users:  userRepo,
		Roblox: roblox,
	}

	birthdays := &services.BirthdayNotifier{
		Configs:  configRepo,
		Users:    userRepo,
		Notifier: dispatcher,
	}

	// Middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestSizeLimiter(maxRequestBodySize))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/instance-check", handler.InstanceCheckHandler)

		activity := api.Group("/activity")
		{
			activity.POST("/bulk", func(c *gin.Context) {
				handler.BulkActivityHandler(c, ingestor)
			})
		}

		cron := api.Group("/cron")
		cron.Use(middleware.CronAuthMiddleware())
		{
			cron.POST("/update-sessions", func(c *gin.Context) {
				handler.UpdateSessionsHandler(c, reconciler)
			})
			cron.POST("/update-users", func(c *gin.Context) {
				handler.UpdateUsersHandler(c, userSync)
			})
			cron.POST("/birthdays", func(c *gin.Context) {
				handler.BirthdaysHandler(c, birthdays)
			})
		}
	}

	return router
}

func main() {
	// Ensure storage constraints exist before accepting traffic; the
	// at-most-one-active-session invariant depends on the partial unique
	// index.
	dbName := os.Getenv("MONGO_DB")
	if err := repository.SetupIndexes(utils.MongoClient.Database(dbName)); err != nil {
		log.Fatalf("Failed to set up indexes: %v", err)
	}

	utils.StartSystemMetrics(utils.GetEnvAsDuration("SYSTEM_METRICS_INTERVAL", 15*time.Second))

	// Set up router
	router := setupRouter()

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	serverAddr := fmt.Sprintf(":%s", port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
