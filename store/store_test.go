package store

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsbrief/newsbrief/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	// serialize access so sqlite never reports a busy database mid-test
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
	return db
}

func mustCreateFeed(t *testing.T, db *gorm.DB, userID, url string) *models.RSSFeed {
	t.Helper()
	feed, err := NewFeedStore(db).Create(t.Context(), userID, url)
	if err != nil {
		t.Fatalf("creating feed: %v", err)
	}
	return feed
}

func candidate(feedID, guid string, pub time.Time) CandidateArticle {
	return CandidateArticle{
		FeedID:  feedID,
		GUID:    guid,
		Title:   "title " + guid,
		Link:    "https://example.com/" + guid,
		Content: "content",
		Summary: "summary",
		PubDate: pub,
	}
}
