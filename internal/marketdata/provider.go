// Package marketdata provides the historical close sources the ranker reads from.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/external/naver"
	"github.com/wonny/toprank/internal/external/yahoo"
)

// YahooProvider serves adjusted daily closes from Yahoo Finance
type YahooProvider struct {
	client *yahoo.Client
}

// NewYahooProvider creates a new Yahoo provider
func NewYahooProvider(client *yahoo.Client) *YahooProvider {
	return &YahooProvider{client: client}
}

// Name returns the provider name
func (p *YahooProvider) Name() string { return "yahoo" }

// GetHistoricalData returns the close history within [start, end]
func (p *YahooProvider) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	bars, err := p.client.FetchDailyBars(ctx, string(symbol), start, end)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	series := contracts.PriceSeries{Symbol: symbol, Points: make([]contracts.PricePoint, 0, len(bars))}
	for _, bar := range bars {
		// 수정종가 우선 (배당/분할 반영)
		price := bar.AdjClose
		if price == 0 {
			price = bar.Close
		}
		series.Points = append(series.Points, contracts.PricePoint{Date: bar.Date, Close: price})
	}
	// period2 경계 밖 bar 제거
	return series.Between(start, end), nil
}

// NaverProvider serves KRX daily closes from Naver Finance
type NaverProvider struct {
	client *naver.Client
}

// NewNaverProvider creates a new Naver provider
func NewNaverProvider(client *naver.Client) *NaverProvider {
	return &NaverProvider{client: client}
}

// Name returns the provider name
func (p *NaverProvider) Name() string { return "naver" }

// GetHistoricalData returns the close history within [start, end]
func (p *NaverProvider) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	prices, err := p.client.FetchPrices(ctx, string(symbol), start, end)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("naver prices: %w", err)
	}

	series := contracts.PriceSeries{Symbol: symbol, Points: make([]contracts.PricePoint, 0, len(prices))}
	for _, p := range prices {
		series.Points = append(series.Points, contracts.PricePoint{
			Date:  p.TradeDate,
			Close: float64(p.ClosePrice),
		})
	}
	return series, nil
}
