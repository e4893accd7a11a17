package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newsbrief/newsbrief/config"
	"github.com/newsbrief/newsbrief/global"
)

// Health reports liveness plus the reachability of the database and Redis.
// A degraded response tells the orchestrator to stop routing traffic while
// the process itself stays up.
func Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	if sqlDB, err := global.DB.DB(); err != nil {
		dbStatus = "unreachable"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unreachable"
	}

	redisStatus := "ok"
	if err := global.RedisDB.Ping(ctx).Err(); err != nil {
		redisStatus = "unreachable"
	}

	status := "ok"
	code := http.StatusOK
	if dbStatus != "ok" || redisStatus != "ok" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   config.AppConfig.App.Name,
		"database":  dbStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().UTC(),
	})
}
