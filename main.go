// main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ariebrainware/api-sentinel/config"
	"github.com/ariebrainware/api-sentinel/endpoint"
	"github.com/ariebrainware/api-sentinel/middleware"
	"github.com/ariebrainware/api-sentinel/model"
	"github.com/ariebrainware/api-sentinel/util"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.Use(util.QueryCounter{}); err != nil {
		log.Fatalf("Error installing query counter: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.ClientFingerprint{},
		&model.APIAccessLog{},
		&model.AlertRecipient{},
	); err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}

	// Redis caches session lookups and backs the rate limiter. The server
	// still works without it.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
	}

	if err := util.InitGeoIP(""); err != nil {
		log.Printf("GeoIP database not loaded: %v", err)
	}
	defer util.CloseGeoIP()

	router := util.NewAlertRouter(
		cfg.AlertTypesByRole,
		&util.GormRecipientDirectory{DB: db},
		util.NewSMTPMailerFromConfig(cfg),
	)

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.APIMonitor(cfg, router))

	// Basic HTTP handler for root path
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	r.GET("/token/validate", endpoint.ValidateToken)

	authorized := r.Group("/", middleware.ValidateLoginToken())
	authorized.GET("/log", endpoint.ListAccessLogs)
	authorized.GET("/log/export", endpoint.ExportAccessLogsCSV)
	authorized.GET("/log/stats", endpoint.UsageStats)
	authorized.DELETE("/log", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.PruneAccessLogs)

	authorized.GET("/recipient", endpoint.ListAlertRecipients)
	authorized.POST("/recipient", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.CreateAlertRecipient)
	authorized.PATCH("/recipient/:id", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.UpdateAlertRecipient)
	authorized.DELETE("/recipient/:id", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.DeleteAlertRecipient)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := r.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
