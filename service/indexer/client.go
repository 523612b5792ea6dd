package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brojonat/sbi/service/metrics"
	"github.com/itchyny/gojq"
)

const maxResponseBodySize = 8 << 20

// NFT is one non-fungible token reported by the indexer.
type NFT struct {
	Name string
	Mint string
}

// Client is the HTTP client for the address indexing service.
type Client struct {
	baseURL    string
	apiKey     string
	query      *gojq.Code
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new indexer client.
// query shapes the decoded response body into {name, mint} objects.
// Every request is bounded by timeout.
func NewClient(baseURL, apiKey string, query *gojq.Code, timeout time.Duration, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		query:      query,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger,
	}
}

// NFTsByOwner lists the NFTs held by address.
// GET /v1/address/{address}/tokens?type=nft
func (c *Client) NFTsByOwner(ctx context.Context, address string) ([]NFT, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/address/%s/tokens?type=nft", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(0, start)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.record(resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var payload any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	nfts, err := c.shape(payload)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched nfts", "address", address, "count", len(nfts))
	return nfts, nil
}

// shape runs the configured jq query over payload and collects its outputs.
func (c *Client) shape(payload any) ([]NFT, error) {
	nfts := make([]NFT, 0)
	iter := c.query.Run(payload)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("failed to shape indexer response: %w", err)
		}

		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("indexer query produced %T, want object", v)
		}
		nfts = append(nfts, NFT{
			Name: stringify(obj["name"]),
			Mint: stringify(obj["mint"]),
		})
	}
	return nfts, nil
}

func (c *Client) record(statusCode int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordIndexerRequest(statusCode, time.Since(start).Seconds())
	}
}

// stringify renders a jq scalar the way it would appear in text.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
