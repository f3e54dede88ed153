package combocache

import (
	"context"
	"log/slog"
)

// Clearer is a cache subsystem the admin path can empty.
type Clearer interface {
	Name() string
	Clear(ctx context.Context) (int64, error)
}

// ClearResult is the outcome of clearing one subsystem.
type ClearResult struct {
	Name    string `json:"name"`
	Removed int64  `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// ClearReport aggregates the per-subsystem outcomes of one clear-all.
type ClearReport struct {
	Results []ClearResult `json:"results"`
	Failed  int           `json:"failed"`
}

// Admin fans administrative cache operations out across subsystems.
type Admin struct {
	clearers []Clearer
	logger   *slog.Logger
}

// NewAdmin registers the clearable subsystems in the order they should be
// cleared. Register in-memory tiers before persisted ones.
func NewAdmin(logger *slog.Logger, clearers ...Clearer) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{clearers: clearers, logger: logger}
}

// ClearAll clears every subsystem in registration order. A failing
// subsystem is reported and skipped; earlier clears are not rolled back.
func (a *Admin) ClearAll(ctx context.Context) ClearReport {
	report := ClearReport{Results: make([]ClearResult, 0, len(a.clearers))}

	for _, c := range a.clearers {
		removed, err := c.Clear(ctx)
		result := ClearResult{Name: c.Name(), Removed: removed}
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			a.logger.Error("cache clear failed", "subsystem", c.Name(), "error", err)
		} else {
			a.logger.Info("cache cleared", "subsystem", c.Name(), "removed", removed)
		}
		report.Results = append(report.Results, result)
	}

	return report
}
