package nyt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catkeygen/internal/services"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxRetries  = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
)

// Book is one bestseller-list row: the immutable input unit for
// resolution.
type Book struct {
	ListName string
	ISBN13   string
	Title    string
	Author   string
}

// Client provides access to the New York Times Books API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

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

// WithMaxRetries overrides the retry budget for transient API failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithSleep overrides the inter-attempt wait, used by tests to avoid
// real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates a Books API client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("nyt api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("nyt base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type listResponse struct {
	Results struct {
		Books []bookPayload `json:"books"`
	} `json:"results"`
}

type bookPayload struct {
	PrimaryISBN13 string `json:"primary_isbn13"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBNs         []struct {
		ISBN13 string `json:"isbn13"`
	} `json:"isbns"`
}

// CurrentList fetches the current edition of the named bestseller list
// and returns its rows in list order. Rows without a usable 13-digit ISBN
// are skipped. Transient API failures are retried with bounded
// exponential backoff.
func (c *Client) CurrentList(ctx context.Context, listName string) ([]Book, error) {
	listName = strings.TrimSpace(listName)
	if listName == "" {
		return nil, services.Wrap(services.ErrValidation, "nyt", "current list", "list name required", nil)
	}
	endpoint := fmt.Sprintf("%s/lists/current/%s.json?api-key=%s",
		c.baseURL, url.PathEscape(listName), url.QueryEscape(c.apiKey))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		books, err := c.fetchOnce(ctx, endpoint, listName)
		if err == nil {
			return books, nil
		}
		if !services.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt < c.maxRetries {
			if sleepErr := c.sleep(ctx, retryDelay(attempt)); sleepErr != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, endpoint, listName string) ([]Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "nyt", "current list", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nyt", "current list", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "nyt", "current list", fmt.Sprintf("status %d (check api key)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "nyt", "current list", fmt.Sprintf("unknown list %q", listName), nil)
	default:
		return nil, services.Wrap(services.ErrTransient, "nyt", "current list", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nyt", "current list", "decode response", err)
	}

	books := make([]Book, 0, len(payload.Results.Books))
	for _, entry := range payload.Results.Books {
		isbn13 := cleanDigits(entry.PrimaryISBN13)
		if len(isbn13) != 13 {
			for _, alt := range entry.ISBNs {
				if candidate := cleanDigits(alt.ISBN13); len(candidate) == 13 {
					isbn13 = candidate
					break
				}
			}
		}
		if len(isbn13) != 13 {
			continue
		}
		books = append(books, Book{
			ListName: listName,
			ISBN13:   isbn13,
			Title:    fallback(entry.Title, "Unknown Title"),
			Author:   fallback(entry.Author, "Unknown Author"),
		})
	}
	return books, nil
}

func cleanDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func fallback(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

func retryDelay(attempt int) time.Duration {
	delay := initialRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
