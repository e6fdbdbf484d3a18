package marketdata

import (
	"context"
	"time"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/metrics"
)

// InstrumentedProvider records request counts and latency per provider
type InstrumentedProvider struct {
	next contracts.MarketDataProvider
}

// NewInstrumentedProvider wraps next with Prometheus instrumentation
func NewInstrumentedProvider(next contracts.MarketDataProvider) *InstrumentedProvider {
	return &InstrumentedProvider{next: next}
}

// Name returns the wrapped provider name
func (p *InstrumentedProvider) Name() string { return p.next.Name() }

// GetHistoricalData forwards the call and observes it
func (p *InstrumentedProvider) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	begin := time.Now()
	series, err := p.next.GetHistoricalData(ctx, symbol, start, end)

	name := p.next.Name()
	metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(begin).Seconds())
	metrics.ProviderRequests.WithLabelValues(name, metrics.Result(err)).Inc()
	return series, err
}
