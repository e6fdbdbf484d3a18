package naver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/wonny/toprank/internal/contracts"
)

// ErrNameNotFound is returned when the item page carries no company name
var ErrNameNotFound = errors.New("stock name not found")

// FetchName scrapes the company name from the item main page
func (c *Client) FetchName(ctx context.Context, stockCode string) (string, error) {
	params := url.Values{}
	params.Set("code", stockCode)

	body, err := c.fetch(ctx, c.baseURL+"/item/main.naver", params)
	if err != nil {
		return "", err
	}

	name, err := parseItemName(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stockCode, err)
	}
	return name, nil
}

// ResolveName returns the cached display name, fetching it once per code
func (c *Client) ResolveName(ctx context.Context, symbol contracts.Symbol) (string, error) {
	code := string(symbol)

	c.mu.RLock()
	name, ok := c.names[code]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	name, err := c.FetchName(ctx, code)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.names[code] = name
	c.mu.Unlock()
	return name, nil
}

// parseItemName reads the name from the company header, falling back to og:title
func parseItemName(body []byte) (string, error) {
	reader := io.Reader(bytes.NewReader(body))
	// 네이버 종목 페이지는 EUC-KR
	if bytes.Contains(bytes.ToLower(body), []byte("euc-kr")) {
		reader = transform.NewReader(reader, korean.EUCKR.NewDecoder())
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	name := strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text())
	if name == "" {
		title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
		name = strings.TrimSpace(strings.Split(title, " : ")[0])
	}
	if name == "" {
		return "", ErrNameNotFound
	}
	return name, nil
}
