// Package predictit collects market listings from the public PredictIt
// marketdata API.
package predictit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Client is the REST client for the PredictIt marketdata API. The API is
// unauthenticated and exposes a single bulk endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new PredictIt client.
//
// baseURL is the marketdata root, e.g. "https://www.predictit.org/api/marketdata".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Site identifies the records this client produces.
func (c *Client) Site() domain.Site { return domain.SitePredictIt }

// Fetch returns up to limit markets as raw records. PredictIt has no paging;
// /all returns the full catalogue in one response.
func (c *Client) Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	body, err := c.doGet(ctx, "/all/")
	if err != nil {
		return nil, fmt.Errorf("predictit: get markets: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("predictit: decode markets: %w", err)
	}

	now := time.Now().UTC()
	records := make([]domain.RawRecord, 0, len(resp.Markets))
	for i := range resp.Markets {
		records = append(records, resp.Markets[i].toRecord(now))
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// doGet sends an unauthenticated GET request to the marketdata API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
