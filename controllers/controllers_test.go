package controllers

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsbrief/newsbrief/config"
	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/ingest"
	"github.com/newsbrief/newsbrief/models"
	"github.com/newsbrief/newsbrief/rss"
	"github.com/newsbrief/newsbrief/store"
)

// setupGlobals points the package globals at throwaway backends for one test:
// a sqlite database in a temp dir and an in-process redis.
func setupGlobals(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.RSSFeed{},
		&models.RSSArticle{},
		&models.ArticleSource{},
		&models.Newsletter{},
	); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	global.DB = db

	mr := miniredis.RunT(t)
	global.RedisDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { global.RedisDB.Close() })

	config.AppConfig = &config.Config{}
	config.AppConfig.App.Name = "newsbrief"

	global.Ingest = ingest.NewService(
		store.NewFeedStore(db),
		store.NewArticleStore(db),
		rss.NewFetcher(5*time.Second),
		ingest.Config{},
	)
	return mr
}

func testContext(w *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func authedContext(w *httptest.ResponseRecorder, userID string, req *http.Request) *gin.Context {
	c := testContext(w, req)
	c.Set("user_id", userID)
	return c
}
