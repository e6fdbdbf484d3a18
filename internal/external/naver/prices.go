package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)`)

// FetchPrices fetches daily price data for a stock from the Naver chart API.
// Rows come back ascending by trade date and limited to [from, to].
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) ([]PriceData, error) {
	params := url.Values{}
	params.Set("symbol", stockCode)
	params.Set("requestType", "1")
	params.Set("startTime", from.Format("20060102"))
	params.Set("endTime", to.Format("20060102"))
	params.Set("timeframe", "day")

	body, err := c.fetch(ctx, c.chartURL+"/siseJson.naver", params)
	if err != nil {
		return nil, err
	}

	prices, err := c.parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	start := from.Format("20060102")
	end := to.Format("20060102")
	filtered := prices[:0]
	for _, p := range prices {
		day := p.TradeDate.Format("20060102")
		if day < start || day > end {
			continue
		}
		p.StockCode = stockCode
		filtered = append(filtered, p)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].TradeDate.Before(filtered[j].TradeDate)
	})

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(filtered),
	}).Debug("Fetched prices")
	return filtered, nil
}

// parsePriceResponse parses the single-quoted JSON-ish chart payload
func (c *Client) parsePriceResponse(body string) ([]PriceData, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return c.parsePriceJSON(rawData)
	}

	// 후행 쉼표 등으로 JSON 파싱 실패 시
	return c.parsePriceRegex(body)
}

// parsePriceJSON parses JSON array format; the first row is the header
func (c *Client) parsePriceJSON(rawData [][]interface{}) ([]PriceData, error) {
	var prices []PriceData
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		closePrice := toInt64(row[4])
		if closePrice <= 0 {
			continue
		}

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  toInt64(row[1]),
			HighPrice:  toInt64(row[2]),
			LowPrice:   toInt64(row[3]),
			ClosePrice: closePrice,
			Volume:     toInt64(row[5]),
		})
	}
	return prices, nil
}

// parsePriceRegex parses using regex (fallback)
func (c *Client) parsePriceRegex(body string) ([]PriceData, error) {
	matches := priceRowRe.FindAllStringSubmatch(body, -1)

	var prices []PriceData
	for _, match := range matches {
		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		openPrice, _ := strconv.ParseInt(match[2], 10, 64)
		highPrice, _ := strconv.ParseInt(match[3], 10, 64)
		lowPrice, _ := strconv.ParseInt(match[4], 10, 64)
		closePrice, _ := strconv.ParseInt(match[5], 10, 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)
		if closePrice <= 0 {
			continue
		}

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  openPrice,
			HighPrice:  highPrice,
			LowPrice:   lowPrice,
			ClosePrice: closePrice,
			Volume:     volume,
		})
	}
	return prices, nil
}

// toInt64 converts various types to int64
func toInt64(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n
	default:
		return 0
	}
}
