package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/toprank/internal/contracts"
)

// BreakerProvider stops calling a failing upstream until it recovers.
// While open, calls fail fast with gobreaker.ErrOpenState.
type BreakerProvider struct {
	next contracts.MarketDataProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next with a circuit breaker.
// Trips after 3 consecutive failures, or above 5% failures once 20 requests were seen.
func NewBreakerProvider(next contracts.MarketDataProvider, timeout time.Duration) *BreakerProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	st := gobreaker.Settings{Name: next.Name()}
	st.Interval = 60 * time.Second
	st.Timeout = timeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	// 호출자 취소는 업스트림 장애가 아님
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}

	return &BreakerProvider{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name returns the wrapped provider name
func (p *BreakerProvider) Name() string { return p.next.Name() }

// State reports the breaker state
func (p *BreakerProvider) State() gobreaker.State { return p.cb.State() }

// GetHistoricalData calls the wrapped provider through the breaker
func (p *BreakerProvider) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.GetHistoricalData(ctx, symbol, start, end)
	})
	if err != nil {
		return contracts.PriceSeries{}, err
	}
	return out.(contracts.PriceSeries), nil
}
