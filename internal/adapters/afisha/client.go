package afisha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
)

const defaultPageSize = 12

// Client выгружает события из HTTP API афиши.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
}

var _ domain.CatalogClient = (*Client)(nil)

// Config описывает настройки клиента каталога.
type Config struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

// NewClient создаёт клиент каталога.
func NewClient(cfg Config) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:   pageSize,
	}
}

type pageResponse struct {
	Paging struct {
		Total int `json:"total"`
	} `json:"paging"`
	Data []struct {
		Event domain.Item `json:"event"`
	} `json:"data"`
}

// FetchItems вычерпывает пагинацию каталога целиком: первая страница сообщает
// общее количество, последующие запросы двигают offset, пока накопленное
// число событий не достигнет total. Порядок каталога сохраняется.
// Любая неудачная страница обрывает выборку с ErrCatalogUnavailable.
func (c *Client) FetchItems(ctx context.Context, city, category string, lookaheadDays int) ([]domain.Item, error) {
	var items []domain.Item
	total := -1
	for offset := 0; total < 0 || len(items) < total; offset += c.pageSize {
		page, err := c.fetchPage(ctx, city, category, lookaheadDays, offset)
		if err != nil {
			metrics.CatalogErrors.Inc()
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		if total < 0 {
			total = page.Paging.Total
		}
		if len(page.Data) == 0 {
			break
		}
		for _, el := range page.Data {
			items = append(items, el.Event)
		}
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, city, category string, lookaheadDays, offset int) (pageResponse, error) {
	query := url.Values{}
	query.Set("city", city)
	query.Set("tag", category)
	query.Set("period", strconv.Itoa(lookaheadDays))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(c.pageSize))
	endpoint := fmt.Sprintf("%s/events/actual?%s", c.baseURL, query.Encode())

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pageResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("afisha", "events_actual", category, start, err)
	if err != nil {
		return pageResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return pageResponse{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return pageResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return page, nil
}
