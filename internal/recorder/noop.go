package recorder

import (
	"context"

	"github.com/wonny/toprank/internal/contracts"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ context.Context, _ *contracts.RankingRun) error { return nil }
func (n *NoopRecorder) RecentRuns(_ context.Context, _ int) ([]*contracts.RankingRun, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
