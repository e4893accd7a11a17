package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/models"
)

// PrepareNewsletter refreshes stale feeds and returns the articles for the
// requested range, ready for composition. Responds 404 when the range yields
// no articles, since composition cannot proceed from zero.
func PrepareNewsletter(c *gin.Context) {
	var input selectArticlesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString("user_id")

	outcomes, articles, err := global.Ingest.PrepareArticles(
		c.Request.Context(), userID, input.FeedIDs, input.StartDate, input.EndDate, input.Limit,
	)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
		"articles": articles,
	})
}

// CreateNewsletter persists a composed newsletter for future reference.
func CreateNewsletter(c *gin.Context) {
	var newsletter models.Newsletter
	if err := c.ShouldBindJSON(&newsletter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newsletter.ID = ""
	newsletter.UserID = c.GetString("user_id")

	if err := global.DB.WithContext(c.Request.Context()).Create(&newsletter).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, newsletter)
}

// GetNewsletters lists the caller's newsletters newest first, with optional
// limit/skip pagination.
func GetNewsletters(c *gin.Context) {
	userID := c.GetString("user_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))

	query := global.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if skip > 0 {
		query = query.Offset(skip)
	}

	var newsletters []models.Newsletter
	if err := query.Find(&newsletters).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newsletters)
}

// GetNewsletterByID returns one newsletter, refusing access to records the
// caller does not own.
func GetNewsletterByID(c *gin.Context) {
	userID := c.GetString("user_id")

	var newsletter models.Newsletter
	err := global.DB.WithContext(c.Request.Context()).
		Where("id = ?", c.Param("id")).
		First(&newsletter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "newsletter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if newsletter.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "newsletter does not belong to user"})
		return
	}

	c.JSON(http.StatusOK, newsletter)
}

// CountNewsletters returns the caller's newsletter total, used for pagination.
func CountNewsletters(c *gin.Context) {
	userID := c.GetString("user_id")

	var count int64
	err := global.DB.WithContext(c.Request.Context()).
		Model(&models.Newsletter{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
