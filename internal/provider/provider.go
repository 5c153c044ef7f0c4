// Package provider talks to the external billing API: a paged, OAuth2
// protected JSON surface serving customers, invoices and payments.
package provider

import (
	"time"

	"ledgersync/internal/models"
)

// KindsInOrder lists target kinds in dependency order: customers must exist
// before invoices can resolve them, invoices before payments.
var KindsInOrder = []string{models.KindCustomers, models.KindInvoices, models.KindPayments}

// NextKind returns the kind following current in sync order, or "" and false
// when current is last or unknown.
func NextKind(current string) (string, bool) {
	for i, kind := range KindsInOrder {
		if kind == current && i+1 < len(KindsInOrder) {
			return KindsInOrder[i+1], true
		}
	}
	return "", false
}

// FetchOptions narrow one page request.
type FetchOptions struct {
	Page      int
	OnOrAfter *time.Time
}
