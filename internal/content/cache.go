package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	pageCacheFile         = "pages_cache.json"
	defaultMaxCachedPages = 64
)

// PageCache keeps extracted page text on disk so re-reading a recent link
// skips the network. A nil *PageCache is a valid, always-empty cache.
type PageCache struct {
	cacheFile  string
	maxAge     time.Duration
	maxEntries int
	log        *logrus.Entry
	mu         sync.Mutex
}

// cachedPage is one entry of the cache file.
type cachedPage struct {
	Title      string    `json:"title"`
	Paragraphs []string  `json:"paragraphs"`
	Text       string    `json:"text"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// cachedPages represents the cache file contents.
type cachedPages struct {
	Pages       map[string]cachedPage `json:"pages"`
	LastUpdated time.Time             `json:"last_updated"`
}

// CacheInfo describes the cache file for status output.
type CacheInfo struct {
	Path         string
	Exists       bool
	Size         int64
	Entries      int
	LastModified time.Time
	MaxAge       time.Duration
}

// NewPageCache creates a cache rooted at cacheDir whose entries expire after maxAge.
func NewPageCache(cacheDir string, maxAge time.Duration) *PageCache {
	log := logrus.WithField("component", "extraction")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.WithError(err).Warn("Failed to create cache directory")
	}

	return &PageCache{
		cacheFile:  filepath.Join(cacheDir, pageCacheFile),
		maxAge:     maxAge,
		maxEntries: defaultMaxCachedPages,
		log:        log,
	}
}

// Lookup returns a fresh cached page for url.
func (pc *PageCache) Lookup(url string) (*Page, bool) {
	if pc == nil {
		return nil, false
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	data, err := pc.load()
	if err != nil {
		return nil, false
	}
	entry, ok := data.Pages[url]
	if !ok || time.Since(entry.FetchedAt) >= pc.maxAge || entry.Text == "" {
		return nil, false
	}
	return &Page{
		URL:        url,
		Title:      entry.Title,
		Paragraphs: entry.Paragraphs,
		Text:       entry.Text,
		FromCache:  true,
	}, true
}

// Store saves page, evicting the oldest entries beyond the size limit.
// Failures are logged and otherwise ignored.
func (pc *PageCache) Store(page *Page) {
	if pc == nil || page == nil {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	data, err := pc.load()
	if err != nil {
		data = &cachedPages{}
	}
	if data.Pages == nil {
		data.Pages = make(map[string]cachedPage)
	}
	data.Pages[page.URL] = cachedPage{
		Title:      page.Title,
		Paragraphs: page.Paragraphs,
		Text:       page.Text,
		FetchedAt:  time.Now(),
	}
	pc.evict(data)

	if err := pc.save(data); err != nil {
		pc.log.WithError(err).Warn("Failed to save page cache")
	}
}

// Clear removes the cache file.
func (pc *PageCache) Clear() error {
	if pc == nil {
		return nil
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if err := os.Remove(pc.cacheFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	pc.log.Info("Cleared page cache")
	return nil
}

// Info returns information about the cache file.
func (pc *PageCache) Info() (CacheInfo, error) {
	if pc == nil {
		return CacheInfo{}, nil
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	info := CacheInfo{Path: pc.cacheFile, MaxAge: pc.maxAge}
	stat, err := os.Stat(pc.cacheFile)
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("failed to stat cache file: %w", err)
	}

	info.Exists = true
	info.Size = stat.Size()
	info.LastModified = stat.ModTime()
	if data, err := pc.load(); err == nil {
		info.Entries = len(data.Pages)
	}
	return info, nil
}

func (pc *PageCache) load() (*cachedPages, error) {
	file, err := os.Open(pc.cacheFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data cachedPages
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	return &data, nil
}

func (pc *PageCache) save(data *cachedPages) error {
	data.LastUpdated = time.Now()

	tmp := pc.cacheFile + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	pc.log.WithFields(logrus.Fields{
		"pages": len(data.Pages),
		"file":  pc.cacheFile,
	}).Debug("Saved page cache")
	return os.Rename(tmp, pc.cacheFile)
}

// evict drops expired entries, then the oldest ones beyond maxEntries.
func (pc *PageCache) evict(data *cachedPages) {
	type aged struct {
		url string
		at  time.Time
	}
	entries := make([]aged, 0, len(data.Pages))
	for url, page := range data.Pages {
		if time.Since(page.FetchedAt) >= pc.maxAge {
			delete(data.Pages, url)
			continue
		}
		entries = append(entries, aged{url: url, at: page.FetchedAt})
	}
	if len(entries) <= pc.maxEntries {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	for _, e := range entries[:len(entries)-pc.maxEntries] {
		delete(data.Pages, e.url)
	}
}
