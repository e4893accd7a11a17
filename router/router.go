package router

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/newsbrief/newsbrief/controllers"
	"github.com/newsbrief/newsbrief/middlewares"
)

func InitRouter() *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:8080"}
	if raw := os.Getenv("FRONTEND_ORIGINS"); raw != "" {
		split := strings.Split(raw, ",")
		allowedOrigins = allowedOrigins[:0]
		for _, v := range split {
			trimmed := strings.TrimSpace(v)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
		if len(allowedOrigins) == 0 {
			allowedOrigins = []string{"*"}
		}
	}

	allowCreds := true
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		allowCreds = false
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCreds,
		MaxAge:           12 * time.Hour,
	}))

	// Public health endpoint for liveness/readiness checks
	r.GET("/api/health", controllers.Health)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", controllers.Login)
		auth.POST("/register", controllers.Register)
	}

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.POST("/feeds", controllers.CreateFeed)
		api.GET("/feeds", controllers.GetFeeds)
		api.DELETE("/feeds/:id", controllers.DeleteFeed)

		api.POST("/articles/refresh", controllers.RefreshArticles)
		api.POST("/articles/select", controllers.SelectArticles)
		api.GET("/articles/:id", controllers.GetArticleByID)

		newsletters := api.Group("/newsletters")
		{
			newsletters.POST("/prepare", controllers.PrepareNewsletter)
			newsletters.POST("", controllers.CreateNewsletter)
			newsletters.GET("", controllers.GetNewsletters)
			newsletters.GET("/count", controllers.CountNewsletters)
			newsletters.GET("/:id", controllers.GetNewsletterByID)
		}
	}

	return r
}
