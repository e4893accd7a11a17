// Package ingest drives feed ingestion: deciding which feeds are stale,
// refreshing them in parallel, and selecting deduplicated articles back out.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/newsbrief/newsbrief/models"
	"github.com/newsbrief/newsbrief/rss"
	"github.com/newsbrief/newsbrief/store"
)

var (
	// ErrNoArticlesFound is a hard failure: newsletter composition cannot
	// proceed from zero articles. Callers may retry after a refresh.
	ErrNoArticlesFound = errors.New("no articles found for the selected feeds and date range")
	ErrUnauthorized    = errors.New("feed does not belong to the requesting user")
	ErrFeedNotFound    = errors.New("feed not found")
)

const (
	// DefaultCacheWindow balances content freshness against load on upstream
	// feed servers. Freshness earned by any user's feed for a URL is shared
	// by every feed pointing at that URL.
	DefaultCacheWindow = 3 * time.Hour

	// DefaultArticleLimit bounds selection results so downstream newsletter
	// prompts stay a manageable size.
	DefaultArticleLimit = 100
)

// Fetcher is the external fetch-and-parse collaborator.
type Fetcher interface {
	FetchAndParse(ctx context.Context, url, feedID string) (*rss.Result, error)
	Validate(ctx context.Context, url string) error
}

type Config struct {
	CacheWindow  time.Duration
	ArticleLimit int
}

type Service struct {
	feeds    *store.FeedStore
	articles *store.ArticleStore
	fetcher  Fetcher
	cfg      Config
}

func NewService(feeds *store.FeedStore, articles *store.ArticleStore, fetcher Fetcher, cfg Config) *Service {
	if cfg.CacheWindow <= 0 {
		cfg.CacheWindow = DefaultCacheWindow
	}
	if cfg.ArticleLimit <= 0 {
		cfg.ArticleLimit = DefaultArticleLimit
	}
	return &Service{feeds: feeds, articles: articles, fetcher: fetcher, cfg: cfg}
}

// Feeds exposes the feed store for read-side listing.
func (s *Service) Feeds() *store.FeedStore {
	return s.feeds
}

// FeedsToRefresh classifies the requested feeds and returns the stale ones.
// Staleness is decided per distinct URL: a feed is stale only when no feed
// sharing its URL has been fetched within the cache window.
func (s *Service) FeedsToRefresh(ctx context.Context, feedIDs []string) ([]string, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}
	feeds, err := s.feeds.GetByIDs(ctx, feedIDs)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(feeds))
	seen := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		if !seen[f.URL] {
			seen[f.URL] = true
			urls = append(urls, f.URL)
		}
	}

	threshold := time.Now().Add(-s.cfg.CacheWindow)
	fresh, err := s.feeds.FreshURLs(ctx, urls, threshold)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, f := range feeds {
		if !fresh[f.URL] {
			stale = append(stale, f.ID)
		}
	}
	return stale, nil
}

// FeedOutcome is the per-feed result of one refresh invocation.
type FeedOutcome struct {
	FeedID   string                 `json:"feedId"`
	Created  int                    `json:"created"`
	Skipped  int                    `json:"skipped"`
	Errors   int                    `json:"errors"`
	Failures []store.ArticleFailure `json:"failures,omitempty"`
	// Error is set when the fetch itself failed; the feed keeps its old
	// lastFetched and stays eligible for retry.
	Error string `json:"error,omitempty"`
}

// RefreshStale refreshes every stale feed among feedIDs concurrently and
// returns one outcome per stale feed. One feed's failure never cancels or
// corrupts the others: all fetches run to completion before returning.
func (s *Service) RefreshStale(ctx context.Context, userID string, feedIDs []string) ([]FeedOutcome, error) {
	if err := s.authorizeFeeds(ctx, userID, feedIDs); err != nil {
		return nil, err
	}

	stale, err := s.FeedsToRefresh(ctx, feedIDs)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		log.Printf("all %d feeds are fresh, skipping refresh", len(feedIDs))
		return []FeedOutcome{}, nil
	}
	log.Printf("refreshing %d stale feeds (out of %d requested)", len(stale), len(feedIDs))

	outcomes := make([]FeedOutcome, len(stale))
	var wg sync.WaitGroup
	for i, feedID := range stale {
		wg.Add(1)
		go func(i int, feedID string) {
			defer wg.Done()
			outcomes[i] = s.refreshFeed(ctx, feedID)
		}(i, feedID)
	}
	wg.Wait()
	return outcomes, nil
}

// refreshFeed fetches one feed and ingests its articles. The feed's metadata
// and lastFetched are updated only after the whole article batch completed.
func (s *Service) refreshFeed(ctx context.Context, feedID string) FeedOutcome {
	out := FeedOutcome{FeedID: feedID}

	feed, err := s.feeds.GetByID(ctx, feedID)
	if err != nil {
		out.Error = fmt.Sprintf("loading feed: %v", err)
		return out
	}

	result, err := s.fetcher.FetchAndParse(ctx, feed.URL, feedID)
	if err != nil {
		out.Error = fmt.Sprintf("fetching feed: %v", err)
		return out
	}

	res := s.articles.BulkUpsert(ctx, toCandidates(feedID, result.Articles))
	out.Created, out.Skipped, out.Errors, out.Failures = res.Created, res.Skipped, res.Errors, res.Failures

	if err := s.feeds.UpdateMetadata(ctx, feedID, metadataOf(result)); err != nil {
		log.Printf("failed to update metadata for feed %s: %v", feedID, err)
	}
	if err := s.feeds.TouchLastFetched(ctx, feedID, time.Now()); err != nil {
		log.Printf("failed to update last_fetched for feed %s: %v", feedID, err)
	}
	return out
}

// AddFeedResult reports a subscription and its best-effort initial fetch.
type AddFeedResult struct {
	Feed       *models.RSSFeed `json:"feed"`
	Created    int             `json:"articlesCreated"`
	Skipped    int             `json:"articlesSkipped"`
	FetchError string          `json:"fetchError,omitempty"`
}

// AddFeed validates the URL, creates the subscription and performs the
// initial fetch. A failed initial fetch still leaves the feed in place with
// empty metadata and nil lastFetched, so the next refresh retries it.
func (s *Service) AddFeed(ctx context.Context, userID, url string) (*AddFeedResult, error) {
	if err := s.fetcher.Validate(ctx, url); err != nil {
		return nil, fmt.Errorf("invalid RSS feed URL: %w", err)
	}

	feed, err := s.feeds.Create(ctx, userID, url)
	if err != nil {
		return nil, err
	}
	result := &AddFeedResult{Feed: feed}

	fetched, err := s.fetcher.FetchAndParse(ctx, url, feed.ID)
	if err != nil {
		log.Printf("feed %s created but initial fetch failed: %v", feed.ID, err)
		result.FetchError = err.Error()
		return result, nil
	}

	res := s.articles.BulkUpsert(ctx, toCandidates(feed.ID, fetched.Articles))
	result.Created, result.Skipped = res.Created, res.Skipped

	if err := s.feeds.UpdateMetadata(ctx, feed.ID, metadataOf(fetched)); err != nil {
		log.Printf("failed to update metadata for feed %s: %v", feed.ID, err)
	}
	if err := s.feeds.TouchLastFetched(ctx, feed.ID, time.Now()); err != nil {
		log.Printf("failed to update last_fetched for feed %s: %v", feed.ID, err)
	}

	reloaded, err := s.feeds.GetByID(ctx, feed.ID)
	if err == nil {
		result.Feed = reloaded
	}
	return result, nil
}

// SelectArticles returns articles for the user's feeds within [start, end],
// newest first, annotated with their cross-feed source count. An empty result
// is a hard failure (ErrNoArticlesFound).
func (s *Service) SelectArticles(ctx context.Context, userID string, feedIDs []string, start, end time.Time, limit int) ([]store.SelectedArticle, error) {
	if err := s.authorizeFeeds(ctx, userID, feedIDs); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.ArticleLimit {
		limit = s.cfg.ArticleLimit
	}
	articles, err := s.articles.QueryByFeedsAndRange(ctx, feedIDs, start, end, limit)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNoArticlesFound
	}
	return articles, nil
}

// PrepareArticles refreshes whatever is stale among the user's feeds and then
// selects articles for the range: the flow behind newsletter composition.
func (s *Service) PrepareArticles(ctx context.Context, userID string, feedIDs []string, start, end time.Time, limit int) ([]FeedOutcome, []store.SelectedArticle, error) {
	outcomes, err := s.RefreshStale(ctx, userID, feedIDs)
	if err != nil {
		return nil, nil, err
	}
	articles, err := s.SelectArticles(ctx, userID, feedIDs, start, end, limit)
	if err != nil {
		return outcomes, nil, err
	}
	return outcomes, articles, nil
}

// RemoveFeed unsubscribes a feed: detaches it from every article, deletes
// articles left without sources and finally deletes the feed row.
func (s *Service) RemoveFeed(ctx context.Context, userID, feedID string) error {
	feed, err := s.feeds.GetByID(ctx, feedID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrFeedNotFound
	}
	if err != nil {
		return err
	}
	if feed.UserID != userID {
		return ErrUnauthorized
	}
	if err := s.articles.DetachFeed(ctx, feedID); err != nil {
		return err
	}
	return s.feeds.Delete(ctx, feedID)
}

// GetArticle loads one article, requiring that at least one of its source
// feeds belongs to the user.
func (s *Service) GetArticle(ctx context.Context, userID, articleID string) (*models.RSSArticle, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	owned, err := s.feeds.GetByIDs(ctx, article.SourceFeedIDs())
	if err != nil {
		return nil, err
	}
	for _, f := range owned {
		if f.UserID == userID {
			return article, nil
		}
	}
	return nil, ErrUnauthorized
}

// authorizeFeeds verifies that every requested feed exists and belongs to
// userID. The check is all-or-nothing: the operation never partially applies.
func (s *Service) authorizeFeeds(ctx context.Context, userID string, feedIDs []string) error {
	unique := make([]string, 0, len(feedIDs))
	seen := make(map[string]bool, len(feedIDs))
	for _, id := range feedIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	feeds, err := s.feeds.GetByIDs(ctx, unique)
	if err != nil {
		return err
	}
	if len(feeds) != len(unique) {
		return ErrFeedNotFound
	}
	for _, f := range feeds {
		if f.UserID != userID {
			return ErrUnauthorized
		}
	}
	return nil
}

func toCandidates(feedID string, articles []rss.Candidate) []store.CandidateArticle {
	cands := make([]store.CandidateArticle, 0, len(articles))
	for _, a := range articles {
		cands = append(cands, store.CandidateArticle{
			FeedID:     feedID,
			GUID:       a.GUID,
			Title:      a.Title,
			Link:       a.Link,
			Content:    a.Content,
			Summary:    a.Summary,
			PubDate:    a.PubDate,
			Author:     a.Author,
			Categories: a.Categories,
			ImageURL:   a.ImageURL,
		})
	}
	return cands
}

func metadataOf(r *rss.Result) store.FeedMetadata {
	return store.FeedMetadata{
		Title:       r.Metadata.Title,
		Description: r.Metadata.Description,
		Link:        r.Metadata.Link,
		ImageURL:    r.Metadata.ImageURL,
		Language:    r.Metadata.Language,
	}
}
