package naver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wonny/toprank/pkg/httputil"
	"github.com/wonny/toprank/pkg/logger"
)

const (
	defaultBaseURL  = "https://finance.naver.com"
	defaultChartURL = "https://fchart.stock.naver.com"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	chartURL   string

	mu    sync.RWMutex
	names map[string]string
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("naver"),
		baseURL:    defaultBaseURL,
		chartURL:   defaultChartURL,
		names:      make(map[string]string),
	}
}

// WithBaseURLs overrides the page and chart hosts; empty values keep the defaults
func (c *Client) WithBaseURLs(baseURL, chartURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	if chartURL != "" {
		c.chartURL = strings.TrimRight(chartURL, "/")
	}
	return c
}

// fetch performs a GET with Naver headers and returns the body of a 200 response
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	fullURL := endpoint
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	body, status, err := c.httpClient.GetBody(ctx, fullURL, map[string]string{
		"Referer": defaultBaseURL + "/",
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	return body, nil
}

// PriceData represents daily price data
type PriceData struct {
	StockCode  string
	TradeDate  time.Time
	OpenPrice  int64
	HighPrice  int64
	LowPrice   int64
	ClosePrice int64
	Volume     int64
}
