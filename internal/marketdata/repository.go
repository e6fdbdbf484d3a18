package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/toprank/internal/contracts"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS data;
CREATE TABLE IF NOT EXISTS data.daily_prices (
	symbol      TEXT             NOT NULL,
	trade_date  DATE             NOT NULL,
	close_price DOUBLE PRECISION NOT NULL,
	source      TEXT             NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (symbol, trade_date)
);
`

// PriceRepository stores daily closes in PostgreSQL and serves them as a provider
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Name returns the provider name
func (r *PriceRepository) Name() string { return "postgres" }

// EnsureSchema creates the price table when missing
func (r *PriceRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure price schema: %w", err)
	}
	return nil
}

// GetHistoricalData retrieves closes for a symbol within [start, end], ascending
func (r *PriceRepository) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, close_price
		FROM data.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, string(symbol), start, end)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	series := contracts.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan price: %w", err)
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("iterate prices: %w", err)
	}
	return series, nil
}

// SavePrices upserts a series in one batch
func (r *PriceRepository) SavePrices(ctx context.Context, source string, series contracts.PriceSeries) error {
	if series.IsEmpty() {
		return nil
	}

	query := `
		INSERT INTO data.daily_prices (symbol, trade_date, close_price, source, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			source = EXCLUDED.source,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, p := range series.Points {
		batch.Queue(query, string(series.Symbol), p.Date, p.Close, source)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range series.Points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert prices for %s: %w", series.Symbol, err)
		}
	}
	return nil
}

// LatestDate returns the most recent stored trade date; ok is false when none exists
func (r *PriceRepository) LatestDate(ctx context.Context, symbol contracts.Symbol) (time.Time, bool, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM data.daily_prices WHERE symbol = $1`,
		string(symbol),
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest date: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

// StoreInventory summarizes what the price table holds
type StoreInventory struct {
	Symbols  int
	Rows     int64
	First    time.Time
	Last     time.Time
	BySource map[string]int64
}

// Inventory counts stored closes overall and per source
func (r *PriceRepository) Inventory(ctx context.Context) (StoreInventory, error) {
	inv := StoreInventory{BySource: make(map[string]int64)}

	var first, last *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT symbol), COUNT(*), MIN(trade_date), MAX(trade_date)
		FROM data.daily_prices
	`).Scan(&inv.Symbols, &inv.Rows, &first, &last)
	if err != nil {
		return StoreInventory{}, fmt.Errorf("query price inventory: %w", err)
	}
	if first != nil {
		inv.First = *first
	}
	if last != nil {
		inv.Last = *last
	}

	rows, err := r.pool.Query(ctx, `SELECT source, COUNT(*) FROM data.daily_prices GROUP BY source`)
	if err != nil {
		return StoreInventory{}, fmt.Errorf("query rows by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return StoreInventory{}, fmt.Errorf("scan source count: %w", err)
		}
		inv.BySource[source] = n
	}
	return inv, rows.Err()
}
