package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncRun("success")
		IncRun("timeout")
		AddSynced("customers", 3)
		IncSkip("invoices", "hard")
		IncSkip("payments", "missing_invoice_count")
		ObserveRunDuration(2 * time.Second)
		IncMonitoredError()
	})
}
