// Package report accumulates per-run counters and skips into the immutable
// report appended to a sync's history.
package report

import (
	"time"

	"ledgersync/internal/models"
)

// Allowable skip counter names.
const (
	CounterMissingCustomer = "missing_customer_count"
	CounterMissingInvoice  = "missing_invoice_count"
)

// Builder is the mutable accumulator for one run. The runner owns it, hands
// it to the reconciler by reference and freezes it into history on exit.
type Builder struct {
	report models.Report
}

// New shapes the report for a target kind. Customers have no allowable skips
// today; invoices tolerate missing customers; payments additionally tolerate
// missing invoices.
func New(kind string, startedAt time.Time, runID string) *Builder {
	rep := models.Report{
		RunID:     runID,
		StartedAt: startedAt,
		Skips:     []models.Skip{},
	}

	switch kind {
	case models.KindInvoices:
		rep.AllowableSkips = map[string]int{CounterMissingCustomer: 0}
	case models.KindPayments:
		rep.AllowableSkips = map[string]int{CounterMissingCustomer: 0, CounterMissingInvoice: 0}
	}

	return &Builder{report: rep}
}

// RecordSave counts one successful save.
func (b *Builder) RecordSave() {
	b.report.Count++
}

// RecordSkip appends one hard failure with its field errors.
func (b *Builder) RecordSkip(errs models.ValidationErrors) {
	messages := make(map[string][]string, len(errs))
	for field, msgs := range errs {
		messages[field] = append([]string(nil), msgs...)
	}
	b.report.Skips = append(b.report.Skips, models.Skip{Errors: messages})
}

// RecordAllowable increments a named allowable skip counter. Counters not
// shaped for the kind are ignored.
func (b *Builder) RecordAllowable(counter string) {
	if _, ok := b.report.AllowableSkips[counter]; !ok {
		return
	}
	b.report.AllowableSkips[counter]++
}

// SetException records the failure message surfaced to the caller.
func (b *Builder) SetException(msg string) {
	b.report.ExceptionMsg = msg
}

func (b *Builder) StartedAt() time.Time {
	return b.report.StartedAt
}

func (b *Builder) Count() int {
	return b.report.Count
}

// Report returns a deep copy safe to append to history.
func (b *Builder) Report() models.Report {
	out := b.report
	out.Skips = append([]models.Skip(nil), b.report.Skips...)
	if b.report.AllowableSkips != nil {
		out.AllowableSkips = make(map[string]int, len(b.report.AllowableSkips))
		for k, v := range b.report.AllowableSkips {
			out.AllowableSkips[k] = v
		}
	}
	return out
}
