package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "intentcal/internal/log"
)

const (
	// maxParallelFetches bounds concurrent feed downloads in FetchAll.
	maxParallelFetches = 4

	fetchTimeout    = 15 * time.Second
	defaultCacheDir = "./var/ics-cache"
)

// ErrNoCachedFeed is returned when a feed is unreachable and nothing was
// cached for it yet.
var ErrNoCachedFeed = errors.New("no cached copy of feed")

// Source is one calendar feed.
type Source struct {
	// ID is the calendar ID from config.
	ID string
	// URL is the resolved feed URL, with keyring references expanded.
	URL string
}

// FetchResult is the body served for one Source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// Fetcher downloads feeds with conditional requests and keeps the last good
// copy of each on disk.
type Fetcher struct {
	client *http.Client
	cache  feedCache
}

// NewFetcher stores cached feeds below cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		cache:  feedCache{dir: cacheDir},
	}
}

// FetchAll fetches sources concurrently. Failed sources are logged and
// reported in the error slice without stopping the rest; results keep the
// order of sources.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	got := make([]*FetchResult, len(sources))
	failed := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, src := range sources {
		g.Go(func() error {
			res, err := f.FetchOne(ctx, src)
			if err != nil {
				appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
				failed[i] = err
				return nil
			}
			got[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	results := make([]FetchResult, 0, len(sources))
	errs := make([]error, 0)
	for i := range sources {
		switch {
		case got[i] != nil:
			results = append(results, *got[i])
		case failed[i] != nil:
			errs = append(errs, failed[i])
		}
	}
	return results, errs
}

// FetchOne returns the current body of src. A 304 or an upstream failure is
// answered from the disk cache when one exists.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, fmt.Errorf("source %q: empty URL", src.ID)
	}

	meta, cached := f.cache.load(src.URL)
	fromCache := func(cause error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, fmt.Errorf("%w: %w", ErrNoCachedFeed, cause)
		}
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	logURL := redactURL(src.URL)
	appLog.Debug("ics fetch", "id", src.ID, "url", logURL, "conditional", meta.ETag != "" || meta.LastModified != "")

	resp, err := f.client.Do(req)
	if err != nil {
		appLog.Warn("ics upstream unreachable", "id", src.ID, "url", logURL, "err", err, "cached", len(cached) > 0)
		return fromCache(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		appLog.Debug("ics feed unchanged", "id", src.ID, "url", logURL)
		return fromCache(errors.New("304 Not Modified"))
	case http.StatusOK:
	default:
		appLog.Warn("ics upstream status", "id", src.ID, "url", logURL, "status", resp.StatusCode, "cached", len(cached) > 0)
		return fromCache(errors.New(resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fromCache(err)
	}

	fresh := cacheEntry{
		URL:          src.URL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := f.cache.store(fresh, body); err != nil {
		appLog.Error("ics cache write failed", err, "id", src.ID, "url", logURL)
	}

	appLog.Info("ics feed downloaded", "id", src.ID, "url", logURL, "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

// cacheEntry is the validator metadata stored next to a cached body.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// feedCache keeps one directory per feed URL holding body.ics and meta.json.
type feedCache struct {
	dir string
}

func (c feedCache) entryDir(feedURL string) string {
	sum := sha256.Sum256([]byte(feedURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
}

// load returns whatever is cached for feedURL. Missing or unreadable files
// yield zero values.
func (c feedCache) load(feedURL string) (cacheEntry, []byte) {
	dir := c.entryDir(feedURL)

	var meta cacheEntry
	if data, err := os.ReadFile(filepath.Join(dir, "meta.json")); err == nil {
		if json.Unmarshal(data, &meta) != nil || meta.URL != feedURL {
			meta = cacheEntry{}
		}
	}
	body, _ := os.ReadFile(filepath.Join(dir, "body.ics"))
	return meta, body
}

// store writes the body before the metadata so validators never describe a
// body that is not on disk.
func (c feedCache) store(meta cacheEntry, body []byte) error {
	dir := c.entryDir(meta.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
