package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/newsbrief/newsbrief/models"
)

type FeedStore struct {
	db *gorm.DB
}

func NewFeedStore(db *gorm.DB) *FeedStore {
	return &FeedStore{db: db}
}

// FeedMetadata is the descriptive part of a feed, known only after the first
// successful fetch.
type FeedMetadata struct {
	Title       string
	Description string
	Link        string
	ImageURL    string
	Language    string
}

func (s *FeedStore) Create(ctx context.Context, userID, url string) (*models.RSSFeed, error) {
	feed := &models.RSSFeed{UserID: userID, URL: url}
	if err := s.db.WithContext(ctx).Create(feed).Error; err != nil {
		return nil, fmt.Errorf("creating feed for %s: %w", url, err)
	}
	return feed, nil
}

func (s *FeedStore) GetByID(ctx context.Context, id string) (*models.RSSFeed, error) {
	var feed models.RSSFeed
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&feed).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *FeedStore) GetByIDs(ctx context.Context, ids []string) ([]models.RSSFeed, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var feeds []models.RSSFeed
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&feeds).Error; err != nil {
		return nil, fmt.Errorf("loading feeds: %w", err)
	}
	return feeds, nil
}

// FeedWithCount is a feed annotated with the number of articles it references.
type FeedWithCount struct {
	models.RSSFeed
	ArticleCount int64 `json:"articleCount"`
}

// ListByUser returns the user's feeds newest first, each with its article count.
func (s *FeedStore) ListByUser(ctx context.Context, userID string) ([]FeedWithCount, error) {
	var feeds []models.RSSFeed
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&feeds).Error
	if err != nil {
		return nil, fmt.Errorf("listing feeds for user %s: %w", userID, err)
	}
	if len(feeds) == 0 {
		return []FeedWithCount{}, nil
	}

	ids := make([]string, 0, len(feeds))
	for _, f := range feeds {
		ids = append(ids, f.ID)
	}

	var counts []struct {
		FeedID string
		N      int64
	}
	err = s.db.WithContext(ctx).
		Model(&models.ArticleSource{}).
		Select("feed_id, COUNT(*) AS n").
		Where("feed_id IN ?", ids).
		Group("feed_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting articles per feed: %w", err)
	}
	byFeed := make(map[string]int64, len(counts))
	for _, c := range counts {
		byFeed[c.FeedID] = c.N
	}

	out := make([]FeedWithCount, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, FeedWithCount{RSSFeed: f, ArticleCount: byFeed[f.ID]})
	}
	return out, nil
}

// UpdateMetadata fills in the feed's descriptive fields from a fetch result.
func (s *FeedStore) UpdateMetadata(ctx context.Context, feedID string, meta FeedMetadata) error {
	err := s.db.WithContext(ctx).
		Model(&models.RSSFeed{}).
		Where("id = ?", feedID).
		Updates(map[string]interface{}{
			"title":       meta.Title,
			"description": meta.Description,
			"link":        meta.Link,
			"image_url":   meta.ImageURL,
			"language":    meta.Language,
		}).Error
	if err != nil {
		return fmt.Errorf("updating metadata for feed %s: %w", feedID, err)
	}
	return nil
}

// TouchLastFetched records a successful fetch. Only ever called after the
// article batch for that fetch has been stored.
func (s *FeedStore) TouchLastFetched(ctx context.Context, feedID string, t time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.RSSFeed{}).
		Where("id = ?", feedID).
		Update("last_fetched", &t).Error
	if err != nil {
		return fmt.Errorf("updating last_fetched for feed %s: %w", feedID, err)
	}
	return nil
}

func (s *FeedStore) Delete(ctx context.Context, feedID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", feedID).Delete(&models.RSSFeed{}).Error; err != nil {
		return fmt.Errorf("deleting feed %s: %w", feedID, err)
	}
	return nil
}

// FreshURLs returns the subset of urls that any feed, regardless of owner,
// has successfully fetched at or after threshold. Feeds never fetched have a
// NULL last_fetched and so can never make a URL look fresh.
func (s *FeedStore) FreshURLs(ctx context.Context, urls []string, threshold time.Time) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	var fresh []string
	err := s.db.WithContext(ctx).
		Model(&models.RSSFeed{}).
		Where("url IN ?", urls).
		Where("last_fetched >= ?", threshold).
		Group("url").
		Pluck("url", &fresh).Error
	if err != nil {
		return nil, fmt.Errorf("querying fresh feed urls: %w", err)
	}
	out := make(map[string]bool, len(fresh))
	for _, u := range fresh {
		out[u] = true
	}
	return out, nil
}
