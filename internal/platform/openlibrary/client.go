// Package openlibrary queries the Open Library books API for best-effort
// bibliographic enrichment keyed by ISBN.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bookcatalog/internal/apperr"
)

const serviceName = "Open Library"

// Enrichment is the complete best-effort pair a lookup produces. Fields are
// nil when the upstream record carries nothing for them; Lookup never returns
// a partial result alongside an error.
type Enrichment struct {
	Description *string
	CoverURL    *string
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	log        *slog.Logger
}

type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RPS        int
	MaxRetries int
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openlibrary.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:  cfg.UserAgent,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), 1),
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// bookData matches the fields of api/books?jscmd=data this client consumes.
type bookData struct {
	NumberOfPages int `json:"number_of_pages"`
	Publishers    []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	Cover struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
		Small  string `json:"small"`
	} `json:"cover"`
}

// Lookup fetches description and cover data for one ISBN. A response without
// the requested ISBN key is a failure, not an empty result.
func (c *Client) Lookup(ctx context.Context, isbn string) (Enrichment, error) {
	bibkey := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data",
		c.baseURL, url.QueryEscape(bibkey))

	var res map[string]bookData
	if err := c.get(ctx, u, &res); err != nil {
		return Enrichment{}, err
	}

	data, ok := res[bibkey]
	if !ok {
		return Enrichment{}, &apperr.ExternalServiceError{
			Service: serviceName,
			Detail:  "no data found for ISBN " + isbn,
		}
	}

	c.log.Debug("open library lookup succeeded", "isbn", isbn)
	return Enrichment{
		Description: extractDescription(data),
		CoverURL:    extractCoverURL(data),
	}, nil
}

// extractDescription composes a short description from the page count and
// publisher name fragments. Nil when neither is present.
func extractDescription(data bookData) *string {
	var parts []string
	if data.NumberOfPages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", data.NumberOfPages))
	}
	if len(data.Publishers) > 0 && data.Publishers[0].Name != "" {
		parts = append(parts, "Publisher: "+data.Publishers[0].Name)
	}
	if len(parts) == 0 {
		return nil
	}
	desc := strings.Join(parts, " - ")
	return &desc
}

// extractCoverURL prefers the largest available image variant.
func extractCoverURL(data bookData) *string {
	for _, u := range []string{data.Cover.Large, data.Cover.Medium, data.Cover.Small} {
		if u != "" {
			cover := u
			return &cover
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return c.failure("request cancelled", ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return c.failure("rate limit wait failed", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return c.failure("building request failed", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}
			return c.failure(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return c.failure("invalid JSON response", err)
		}
		return nil
	}
	return c.failure(fmt.Sprintf("request failed after %d retries", c.maxRetries), lastErr)
}

func (c *Client) failure(detail string, err error) error {
	c.log.Debug("open library request failed", "detail", detail, "error", err)
	return &apperr.ExternalServiceError{Service: serviceName, Detail: detail, Err: err}
}
