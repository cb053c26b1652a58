package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"hena/stays/internal/api/handlers"
	"hena/stays/internal/api/middleware"
	"hena/stays/internal/config"
	"hena/stays/internal/email"
	"hena/stays/internal/ingest"
	"hena/stays/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, users services.IUserService, pipeline ingest.IPipeline, locker handlers.Locker, refresh handlers.RefreshTrigger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware(cfg.AppURL))
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(users, cfg.JwtSecret, cfg.JwtTTL)
	feedHandler := handlers.NewFeedHandler(pipeline, locker, refresh)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.POST("/auth/login", authHandler.Login)

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret, users))
		{
			authRequired.POST("/feeds", feedHandler.Submit)
			authRequired.GET("/feeds/:id", feedHandler.Get)
			authRequired.POST("/feeds/:id/revalidate", feedHandler.Revalidate)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret, users), middleware.AdminMiddleware())
		{
			adminRequired.GET("/feeds", feedHandler.List)
			adminRequired.POST("/feeds/refresh", feedHandler.Refresh)
			adminRequired.POST("/feeds/:id/revalidate", feedHandler.AdminRevalidate)
			adminRequired.POST("/feeds/:id/approve", feedHandler.Approve)
			adminRequired.POST("/feeds/:id/reject", feedHandler.Reject)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service API used by operators
// and end-to-end tests. rdb backs getTestEmail.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled.")
			}
		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			getTestEmail(c, rdb, email.MockEmailKey(args[1], args[0]))
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail polls for a captured message and consumes it.
func getTestEmail(c *gin.Context, rdb *redis.Client, key string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var raw string
	found := false
	for i := 0; i < 10; i++ {
		var err error
		raw, err = rdb.Get(ctx, key).Result()
		if err == nil {
			found = true
			rdb.Del(ctx, key)
			break
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("Service API: Error getting key %s from Redis: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var emailData map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &emailData); err != nil {
		log.Printf("Service API: Error unmarshalling email data from key %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
}
