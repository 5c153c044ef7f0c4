// Package monitoring is the fire-and-forget sink for exceptions that must be
// seen by an operator but never interrupt a run.
package monitoring

import (
	"ledgersync/internal/metrics"

	"github.com/rs/zerolog"
)

// LogMonitor reports errors to the structured log and the error counter.
type LogMonitor struct {
	logger *zerolog.Logger
}

func NewLogMonitor(logger *zerolog.Logger) *LogMonitor {
	return &LogMonitor{logger: logger}
}

func (m *LogMonitor) Report(err error) {
	if err == nil {
		return
	}
	metrics.IncMonitoredError()
	m.logger.Error().Err(err).Msg("Reported to monitoring")
}
