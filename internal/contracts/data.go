package contracts

import "time"

// Symbol is an opaque ticker identifier (e.g. "AAPL", "005930")
type Symbol string

func (s Symbol) String() string { return string(s) }

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ascending-by-date close history for one symbol
// ⭐ SSOT: MarketDataProvider → Ranker 가격 데이터 전달
type PriceSeries struct {
	Symbol Symbol       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// IsEmpty reports whether the series has no data
func (s PriceSeries) IsEmpty() bool {
	return len(s.Points) == 0
}

// Closes returns the closing prices in date order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Between returns the points within [from, to] (inclusive, by calendar day)
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	start := truncateDay(from)
	end := truncateDay(to)

	out := PriceSeries{Symbol: s.Symbol}
	for _, p := range s.Points {
		d := truncateDay(p.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
