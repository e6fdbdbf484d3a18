// Package recorder keeps a history of ranking runs.
package recorder

import (
	"context"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/pkg/config"
	"github.com/wonny/toprank/pkg/logger"
)

// Recorder persists ranking runs for later inspection
type Recorder interface {
	contracts.RunRecorder
	// RecentRuns returns up to limit runs, newest first
	RecentRuns(ctx context.Context, limit int) ([]*contracts.RankingRun, error)
	Close() error
}

// New opens the SQLite recorder when a path is configured, otherwise a no-op
func New(cfg *config.Config, log *logger.Logger) (Recorder, error) {
	if cfg.Recorder.SQLitePath == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(cfg.Recorder.SQLitePath, log)
}
