package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Speakeasy/1.0 (macOS)"

	DefaultMaxBodyBytes = 16 << 20
	maxRedirectHops     = 10
)

// detailTooLarge marks the ParsingError for bodies over the size limit.
const detailTooLarge = "page too large"

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page is the speakable content behind a URL.
type Page struct {
	URL        string
	Title      string
	Paragraphs []string
	Text       string
	FromCache  bool
}

// FetcherConfig configures a Fetcher. Zero values fall back to defaults.
// MaxBodyBytes caps the response body; larger pages are rejected.
type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Client       Doer
	Extractor    Extractor
	Cache        *PageCache
	Logger       *logrus.Entry
}

// Fetcher retrieves a URL and turns the body into speakable text.
type Fetcher struct {
	client    Doer
	timeout   time.Duration
	userAgent string
	maxBody   int64
	extractor Extractor
	cache     *PageCache
	log       *logrus.Entry
}

// NewFetcher creates a fetcher with the given configuration.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Extractor == nil {
		cfg.Extractor = BlockExtractor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "extraction")
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: checkRedirect,
		}
	}

	return &Fetcher{
		client:    cfg.Client,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		extractor: cfg.Extractor,
		cache:     cfg.Cache,
		log:       cfg.Logger,
	}
}

// Fetch downloads url. HTML bodies go through the extractor, anything else
// is decoded as plain text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if page, ok := f.cache.Lookup(url); ok {
		f.log.WithField("url", url).Debug("Serving page from cache")
		return page, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.WithError(err).WithField("url", url).Warn("Fetch failed")
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.WithFields(logrus.Fields{
			"url":    url,
			"status": resp.StatusCode,
		}).Warn("Unexpected HTTP status")
		return nil, &HTTPError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		f.log.WithFields(logrus.Fields{
			"url":   url,
			"limit": f.maxBody,
		}).Warn("Page exceeds size limit")
		return nil, &ParsingError{Detail: detailTooLarge}
	}

	contentType := resp.Header.Get("Content-Type")
	page, err := f.toPage(url, contentType, body)
	if err != nil {
		return nil, err
	}

	f.log.WithFields(logrus.Fields{
		"url":          url,
		"content_type": contentType,
		"bytes":        len(body),
		"paragraphs":   len(page.Paragraphs),
		"elapsed":      time.Since(start).Round(time.Millisecond),
	}).Info("Fetched page")

	if page.Text != "" {
		f.cache.Store(page)
	}
	return page, nil
}

func (f *Fetcher) toPage(url, contentType string, body []byte) (*Page, error) {
	_, charset := mediaType(contentType)
	text, err := decodeBody(body, charset)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return &Page{URL: url, Text: text, Paragraphs: nonEmpty(text)}, nil
	}

	extraction, err := f.extractor.Extract([]byte(text))
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:        url,
		Title:      extraction.Title,
		Paragraphs: extraction.Paragraphs,
		Text:       extraction.Text(),
	}, nil
}

func nonEmpty(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []string{text}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirectHops {
		return errors.New("too many redirects")
	}
	if scheme := strings.ToLower(req.URL.Scheme); scheme != "http" && scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	return nil
}
