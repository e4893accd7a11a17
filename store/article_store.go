// Package store holds the persistence layer for feeds and deduplicated
// articles. All cross-refresh coordination happens through the database's
// uniqueness constraints, never through in-process locks.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newsbrief/newsbrief/models"
)

type ArticleStore struct {
	db *gorm.DB
}

func NewArticleStore(db *gorm.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// UpsertStatus reports what an upsert did with a candidate article.
type UpsertStatus int

const (
	// UpsertCreated: first sighting of the GUID, a new article row was made.
	UpsertCreated UpsertStatus = iota
	// UpsertAttached: the GUID existed and the feed was appended to its sources.
	UpsertAttached
	// UpsertSkipped: the GUID was already attributed to this feed.
	UpsertSkipped
)

// CandidateArticle is an article as produced by a feed fetch, keyed by GUID
// and the feed that surfaced it.
type CandidateArticle struct {
	FeedID     string
	GUID       string
	Title      string
	Link       string
	Content    string
	Summary    string
	PubDate    time.Time
	Author     string
	Categories []string
	ImageURL   string
}

// UpsertArticle stores a candidate with per-GUID deduplication. A lost
// create race on the GUID uniqueness constraint is resolved by re-reading
// the winner and attaching to it; it is never surfaced as an error.
func (s *ArticleStore) UpsertArticle(ctx context.Context, cand CandidateArticle) (*models.RSSArticle, UpsertStatus, error) {
	var existing models.RSSArticle
	err := s.db.WithContext(ctx).Where("guid = ?", cand.GUID).First(&existing).Error
	switch {
	case err == nil:
		return s.attach(ctx, &existing, cand.FeedID)

	case errors.Is(err, gorm.ErrRecordNotFound):
		article := &models.RSSArticle{
			GUID:       cand.GUID,
			FeedID:     cand.FeedID,
			Title:      cand.Title,
			Link:       cand.Link,
			Content:    cand.Content,
			Summary:    cand.Summary,
			PubDate:    cand.PubDate,
			Author:     cand.Author,
			Categories: models.StringList(cand.Categories),
			ImageURL:   cand.ImageURL,
			Sources:    []models.ArticleSource{{FeedID: cand.FeedID}},
		}
		createErr := s.db.WithContext(ctx).Create(article).Error
		if createErr == nil {
			return article, UpsertCreated, nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// A concurrent caller created the article first.
			var winner models.RSSArticle
			if err := s.db.WithContext(ctx).Where("guid = ?", cand.GUID).First(&winner).Error; err != nil {
				return nil, 0, fmt.Errorf("re-reading article %s after duplicate key: %w", cand.GUID, err)
			}
			return s.attach(ctx, &winner, cand.FeedID)
		}
		return nil, 0, createErr

	default:
		return nil, 0, err
	}
}

// attach appends feedID to the article's source set. The insert is an atomic
// add-if-absent via ON CONFLICT DO NOTHING on the (article, feed) unique index.
func (s *ArticleStore) attach(ctx context.Context, article *models.RSSArticle, feedID string) (*models.RSSArticle, UpsertStatus, error) {
	src := models.ArticleSource{ArticleID: article.ID, FeedID: feedID}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&src)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return article, UpsertSkipped, nil
		}
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return article, UpsertSkipped, nil
	}
	return article, UpsertAttached, nil
}

// ArticleFailure carries the diagnostic context for one article that could
// not be stored.
type ArticleFailure struct {
	GUID  string `json:"guid"`
	Error string `json:"error"`
}

// BulkResult tallies one ingestion batch.
type BulkResult struct {
	Created  int              `json:"created"`
	Skipped  int              `json:"skipped"`
	Errors   int              `json:"errors"`
	Failures []ArticleFailure `json:"failures,omitempty"`
}

// BulkUpsert ingests a batch of candidates. Store failures are counted and
// recorded per article; they never abort the remaining candidates.
func (s *ArticleStore) BulkUpsert(ctx context.Context, cands []CandidateArticle) BulkResult {
	var r BulkResult
	for _, cand := range cands {
		_, status, err := s.UpsertArticle(ctx, cand)
		if err != nil {
			r.Errors++
			r.Failures = append(r.Failures, ArticleFailure{GUID: cand.GUID, Error: err.Error()})
			log.Printf("failed to store article %s: %v", cand.GUID, err)
			continue
		}
		if status == UpsertSkipped {
			r.Skipped++
		} else {
			r.Created++
		}
	}
	return r
}

// DetachFeed removes feedID from every article's source set and deletes
// articles left without any source. Both steps run in one transaction so an
// article is never persisted with an empty source set.
func (s *ArticleStore) DetachFeed(ctx context.Context, feedID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed_id = ?", feedID).Delete(&models.ArticleSource{}).Error; err != nil {
			return fmt.Errorf("detaching feed %s from articles: %w", feedID, err)
		}
		if err := tx.
			Where("NOT EXISTS (SELECT 1 FROM article_sources WHERE article_sources.article_id = rss_articles.id)").
			Delete(&models.RSSArticle{}).Error; err != nil {
			return fmt.Errorf("deleting orphaned articles for feed %s: %w", feedID, err)
		}
		return nil
	})
}

// SelectedArticle is an article annotated with how many feeds surfaced it.
type SelectedArticle struct {
	models.RSSArticle
	SourceFeedIDs []string `json:"sourceFeedIds"`
	SourceCount   int      `json:"sourceCount"`
}

// QueryByFeedsAndRange returns articles whose originating feed is in feedIDs
// or whose source set intersects feedIDs, with pub date in [start, end]
// inclusive. Ordered by pub date descending with GUID as the tie-break, capped
// at limit.
func (s *ArticleStore) QueryByFeedsAndRange(ctx context.Context, feedIDs []string, start, end time.Time, limit int) ([]SelectedArticle, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}

	sourced := s.db.Model(&models.ArticleSource{}).
		Select("article_id").
		Where("feed_id IN ?", feedIDs)

	var articles []models.RSSArticle
	err := s.db.WithContext(ctx).
		Preload("Sources", func(db *gorm.DB) *gorm.DB {
			return db.Order("article_sources.id ASC")
		}).
		Where("pub_date >= ? AND pub_date <= ?", start, end).
		Where("feed_id IN ? OR id IN (?)", feedIDs, sourced).
		Order("pub_date DESC, guid ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("querying articles by feeds and range: %w", err)
	}

	out := make([]SelectedArticle, 0, len(articles))
	for i := range articles {
		out = append(out, SelectedArticle{
			RSSArticle:    articles[i],
			SourceFeedIDs: articles[i].SourceFeedIDs(),
			SourceCount:   len(articles[i].Sources),
		})
	}
	return out, nil
}

// GetByID loads a single article with its sources preloaded.
func (s *ArticleStore) GetByID(ctx context.Context, id string) (*models.RSSArticle, error) {
	var article models.RSSArticle
	err := s.db.WithContext(ctx).
		Preload("Sources", func(db *gorm.DB) *gorm.DB {
			return db.Order("article_sources.id ASC")
		}).
		Where("id = ?", id).
		First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}
