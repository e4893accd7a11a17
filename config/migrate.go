package config

import (
	"log"

	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/models"
)

// MigrateDB runs database migrations
func MigrateDB() {
	err := global.DB.AutoMigrate(
		&models.User{},
		&models.RSSFeed{},
		&models.RSSArticle{},
		&models.ArticleSource{},
		&models.Newsletter{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")
}
