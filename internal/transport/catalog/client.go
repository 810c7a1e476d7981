// Package catalog is the HTTP client for the third-party product search API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
	domcat "github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
	"github.com/kailas-cloud/jewelmatch/internal/metrics"
)

const maxErrorBody = 512

// Config holds the search API settings.
type Config struct {
	URL        string
	App        string
	Key        string
	Secret     string
	PageSize   int
	MaxResults int
	Timeout    time.Duration
	PageDelay  time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client pages through the product search API.
type Client struct {
	url        string
	app        string
	key        string
	secret     string
	pageSize   int
	maxResults int
	timeout    time.Duration
	pageDelay  time.Duration
	http       *http.Client
	logger     *zap.Logger
}

// NewClient creates a search API client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5000
	}
	return &Client{
		url:        cfg.URL,
		app:        cfg.App,
		key:        cfg.Key,
		secret:     cfg.Secret,
		pageSize:   pageSize,
		maxResults: maxResults,
		timeout:    cfg.Timeout,
		pageDelay:  cfg.PageDelay,
		http:       hc,
		logger:     log,
	}
}

type pageResponse struct {
	Data []domcat.Item `json:"data"`
}

// Search pages through the API with offset/limit until a short or empty
// page, the result cap, or the first failed request. Items are deduplicated
// and keep the API's order. On failure the items fetched so far are returned
// together with the error.
func (c *Client) Search(ctx context.Context, criteria domcat.Criteria) ([]domcat.Item, error) {
	var (
		items []domcat.Item
		seen  = make(map[string]struct{})
	)

	for offset := 0; offset < c.maxResults; offset += c.pageSize {
		if offset > 0 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return items, fmt.Errorf("catalog search: %w", ctx.Err())
			case <-time.After(c.pageDelay):
			}
		}

		limit := min(c.pageSize, c.maxResults-offset)
		page, err := c.fetchPage(ctx, criteria.Page(offset, limit))
		if err != nil {
			c.logger.Warn("Catalog page failed",
				zap.String("type", criteria.Type),
				zap.Int("offset", offset),
				zap.Int("items_so_far", len(items)),
				zap.Error(err),
			)
			return items, err
		}

		for _, it := range page {
			k := it.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			items = append(items, it)
		}

		c.logger.Debug("Catalog page fetched",
			zap.String("type", criteria.Type),
			zap.Int("offset", offset),
			zap.Int("page_items", len(page)),
		)

		if len(page) < limit {
			break
		}
	}

	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, criteria domcat.Criteria) ([]domcat.Item, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.url
	if strings.Contains(u, "?") {
		u += "&" + criteria.Values().Encode()
	} else {
		u += "?" + criteria.Values().Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-app", c.app)
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("x-api-secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("catalog request: %w: %w", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CatalogRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.CatalogError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}

	metrics.CatalogRequestsTotal.WithLabelValues("success").Inc()
	metrics.CatalogItemsFetchedTotal.Add(float64(len(page.Data)))
	return page.Data, nil
}
