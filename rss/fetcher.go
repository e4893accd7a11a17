// Package rss fetches remote RSS/Atom feeds and normalizes them into
// article candidates for ingestion.
package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxFeedBytes        = 8 << 20
	userAgent           = "newsbrief/1.0 (+https://github.com/newsbrief/newsbrief)"
)

// Metadata describes the feed itself, filled into the feed record after the
// first successful fetch.
type Metadata struct {
	Title       string
	Description string
	Link        string
	ImageURL    string
	Language    string
}

// Candidate is one normalized article as it came off the wire, before
// deduplication against the store.
type Candidate struct {
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

type Result struct {
	Metadata Metadata
	Articles []Candidate
}

// Fetcher retrieves and parses remote feeds. Safe for concurrent use.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

// FetchAndParse downloads the feed at url and maps it into a Result. Any
// network, HTTP or parse error is returned as a single retryable error;
// individual malformed entries are skipped rather than failing the batch.
func (f *Fetcher) FetchAndParse(ctx context.Context, url, feedID string) (*Result, error) {
	parsed, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Metadata: Metadata{
			Title:       parsed.Title,
			Description: parsed.Description,
			Link:        parsed.Link,
			Language:    parsed.Language,
		},
		Articles: make([]Candidate, 0, len(parsed.Items)),
	}
	if parsed.Image != nil {
		result.Metadata.ImageURL = parsed.Image.URL
	}

	now := time.Now()
	for _, item := range parsed.Items {
		cand, ok := mapItem(item, now)
		if !ok {
			continue
		}
		result.Articles = append(result.Articles, cand)
	}
	return result, nil
}

// Validate checks that url points at a parseable RSS/Atom document.
func (f *Fetcher) Validate(ctx context.Context, url string) error {
	_, err := f.fetch(ctx, url)
	return err
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed %s: http status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading feed %s: %w", url, err)
	}

	parsed, err := f.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", url, err)
	}
	return parsed, nil
}

func mapItem(item *gofeed.Item, now time.Time) (Candidate, bool) {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if guid == "" {
		// nothing stable to deduplicate on
		return Candidate{}, false
	}

	pub := now
	if item.PublishedParsed != nil {
		pub = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		pub = *item.UpdatedParsed
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	cand := Candidate{
		GUID:       guid,
		Title:      item.Title,
		Link:       item.Link,
		Content:    content,
		Summary:    item.Description,
		PubDate:    pub,
		Categories: item.Categories,
	}
	if item.Author != nil {
		if item.Author.Name != "" {
			cand.Author = item.Author.Name
		} else {
			cand.Author = item.Author.Email
		}
	}
	if item.Image != nil {
		cand.ImageURL = item.Image.URL
	}
	return cand, true
}
