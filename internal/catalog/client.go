package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"catkeygen/internal/services"
)

const (
	defaultPageTimeout = 20 * time.Second
	userAgent          = "catkeygen/0.1"
)

// SirsiDynix Enterprise embeds the record key in detail URLs as SD_ILS:<n>.
var catKeyPattern = regexp.MustCompile(`SD_ILS:(\d+)`)

// Client searches a SirsiDynix Enterprise catalog over plain HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPageTimeout bounds each search request.
func WithPageTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a catalog search client for the given Enterprise base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultPageTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search runs one search attempt for the identifier. The ISBN-filtered
// results query is tried first; when it yields nothing the plain title
// query is tried before reporting a miss. The record key is taken from
// the final URL when the catalog redirects straight to a detail page,
// otherwise from the first SD_ILS anchor in the result markup.
func (c *Client) Search(ctx context.Context, identifier string) (Outcome, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "catalog", "search", "identifier required", nil)
	}

	primary := fmt.Sprintf("%s/search/results?qu=%s&dt=list&rt=false%%7C%%7C%%7CISBN%%7C%%7C%%7CISBN",
		c.baseURL, url.QueryEscape(identifier))
	outcome, err := c.fetch(ctx, primary)
	if err != nil || outcome.Found() {
		return outcome, err
	}

	fallback := fmt.Sprintf("%s/search/title?qu=%s", c.baseURL, url.QueryEscape(identifier))
	return c.fetch(ctx, fallback)
}

func (c *Client) fetch(ctx context.Context, searchURL string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "catalog", "search", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrTransient, "catalog", "search", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, services.Wrap(services.ErrTransient, "catalog", "search", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	outcome := Outcome{Query: searchURL}

	// A single exact match redirects straight to the record detail page.
	if resp.Request != nil && resp.Request.URL != nil {
		if match := catKeyPattern.FindStringSubmatch(resp.Request.URL.String()); match != nil {
			outcome.CatKey = match[1]
			return outcome, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrTransient, "catalog", "search", "parse response", err)
	}

	doc.Find("a[href*='SD_ILS']").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		if match := catKeyPattern.FindStringSubmatch(href); match != nil {
			outcome.CatKey = match[1]
			return false
		}
		return true
	})

	return outcome, nil
}
