package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/ingest"
	"github.com/newsbrief/newsbrief/store"
)

const feedListCacheTTL = 10 * time.Minute

func feedListCacheKey(userID string) string {
	return "user:" + userID + ":feeds"
}

// invalidateFeedListCache deletes the cached listing before the write
// response is sent. Deleting asynchronously would let a concurrent GetFeeds
// miss re-cache the stale list for the full TTL.
func invalidateFeedListCache(ctx context.Context, userID string) {
	if err := global.RedisDB.Del(ctx, feedListCacheKey(userID)).Err(); err != nil {
		log.Printf("failed to invalidate feed list cache for user %s: %v", userID, err)
	}
}

// CreateFeed subscribes the caller to a feed URL and runs the initial fetch.
// If the initial fetch fails the feed is still created, with empty metadata,
// and will be retried on the next refresh.
func CreateFeed(c *gin.Context) {
	var input struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	result, err := global.Ingest.AddFeed(c.Request.Context(), userID, input.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invalidateFeedListCache(c.Request.Context(), userID)
	c.JSON(http.StatusCreated, result)
}

// GetFeeds returns the caller's feeds with article counts, cached in Redis.
func GetFeeds(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()
	cacheKey := feedListCacheKey(userID)

	var feeds []store.FeedWithCount
	if cachedData, err := global.RedisDB.Get(ctx, cacheKey).Result(); err == nil {
		if err := json.Unmarshal([]byte(cachedData), &feeds); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else if err == redis.Nil {
		feeds, err = global.Ingest.Feeds().ListByUser(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		feedsJSON, err := json.Marshal(feeds)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := global.RedisDB.Set(ctx, cacheKey, feedsJSON, feedListCacheTTL).Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	} else {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, feeds)
}

// DeleteFeed unsubscribes a feed, detaching it from shared articles and
// deleting articles no other feed references.
func DeleteFeed(c *gin.Context) {
	userID := c.GetString("user_id")
	feedID := c.Param("id")

	err := global.Ingest.RemoveFeed(c.Request.Context(), userID, feedID)
	switch {
	case errors.Is(err, ingest.ErrFeedNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ingest.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	invalidateFeedListCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
