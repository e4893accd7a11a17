package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/ingest"
)

type selectArticlesInput struct {
	FeedIDs   []string  `json:"feedIds" binding:"required,min=1"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	Limit     int       `json:"limit"`
}

// RefreshArticles refreshes whatever is stale among the requested feeds and
// reports one outcome per refreshed feed. Per-feed failures are part of the
// payload, never a failed response.
func RefreshArticles(c *gin.Context) {
	var input struct {
		FeedIDs []string `json:"feedIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	outcomes, err := global.Ingest.RefreshStale(c.Request.Context(), userID, input.FeedIDs)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requested": len(input.FeedIDs),
		"refreshed": len(outcomes),
		"outcomes":  outcomes,
	})
}

// SelectArticles returns articles for the caller's feeds within a date range,
// newest first, each annotated with its cross-feed source count.
func SelectArticles(c *gin.Context) {
	var input selectArticlesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	articles, err := global.Ingest.SelectArticles(
		c.Request.Context(), userID, input.FeedIDs, input.StartDate, input.EndDate, input.Limit,
	)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusOK, articles)
}

// GetArticleByID returns one article, provided at least one of its source
// feeds belongs to the caller.
func GetArticleByID(c *gin.Context) {
	userID := c.GetString("user_id")

	article, err := global.Ingest.GetArticle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrNoArticlesFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrFeedNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
