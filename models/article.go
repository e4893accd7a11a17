package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RSSArticle is a deduplicated content item. Exactly one row exists per
// distinct GUID no matter how many feeds surface it; the feeds that have
// referenced it live in the article_sources junction table.
type RSSArticle struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	GUID string `gorm:"uniqueIndex;not null" json:"guid"`
	// FeedID is the feed that first surfaced the article. It is historical
	// and survives even after that feed is unsubscribed.
	FeedID     string          `gorm:"index;not null" json:"feedId"`
	Title      string          `json:"title"`
	Link       string          `json:"link"`
	Content    string          `json:"content"`
	Summary    string          `json:"summary"`
	PubDate    time.Time       `gorm:"index" json:"pubDate"`
	Author     string          `json:"author"`
	Categories StringList      `gorm:"type:text" json:"categories"`
	ImageURL   string          `json:"imageUrl"`
	Sources    []ArticleSource `gorm:"foreignKey:ArticleID;references:ID" json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (a *RSSArticle) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// SourceFeedIDs returns the feeds referencing this article in append order.
// Sources must have been preloaded.
func (a *RSSArticle) SourceFeedIDs() []string {
	ids := make([]string, 0, len(a.Sources))
	for _, s := range a.Sources {
		ids = append(ids, s.FeedID)
	}
	return ids
}

// ArticleSource records one feed having surfaced an article. The composite
// unique index makes the add atomic under concurrent refreshes; the serial
// primary key preserves append order.
type ArticleSource struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ArticleID string    `gorm:"size:36;not null;uniqueIndex:idx_article_feed" json:"articleId"`
	FeedID    string    `gorm:"size:36;not null;index;uniqueIndex:idx_article_feed" json:"feedId"`
	CreatedAt time.Time `json:"createdAt"`
}
