package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RSSFeed is one user's subscription to an RSS/Atom source. The URL is not
// unique across users: staleness is decided per URL, so two users subscribing
// to the same source share one fetch.
type RSSFeed struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	UserID      string `gorm:"index;not null" json:"userId"`
	URL         string `gorm:"index;not null" json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Language    string `json:"language,omitempty"`
	// LastFetched stays nil until the first successful fetch, which keeps a
	// brand-new feed classified as stale.
	LastFetched *time.Time `json:"lastFetched,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (f *RSSFeed) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
