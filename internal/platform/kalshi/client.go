// Package kalshi collects market listings from the Kalshi trade API.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Client is the REST client for the Kalshi trade API v2. Market listing is
// public; the API key is only attached when configured.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Kalshi client.
//
// baseURL is the trade API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Site identifies the records this client produces.
func (c *Client) Site() domain.Site { return domain.SiteKalshi }

// Fetch returns up to limit open markets as raw records, following the
// cursor pagination of /markets.
func (c *Client) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	records := make([]domain.RawRecord, 0, limit)
	cursor := ""
	for len(records) < limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(limit-len(records), 200)))
		params.Set("status", "open")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		body, err := c.doGet(ctx, "/markets?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("kalshi: get markets: %w", err)
		}

		var page apiMarketsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("kalshi: decode markets: %w", err)
		}
		if len(page.Markets) == 0 {
			break
		}

		now := time.Now().UTC()
		for i := range page.Markets {
			records = append(records, page.Markets[i].toRecord(now))
			if len(records) == limit {
				break
			}
		}

		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	return records, nil
}

// doGet sends a GET request to the trade API, attaching the API key when one
// is configured.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
