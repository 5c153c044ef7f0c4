// Package reconcile matches incoming provider records against stored ones and
// performs create-or-update, accounting for tolerated association failures.
package reconcile

import (
	"context"
	"fmt"

	"ledgersync/internal/domain"
	"ledgersync/internal/models"
	"ledgersync/internal/report"

	"github.com/rs/zerolog"
)

type Reconciler struct {
	records domain.RecordStore
	logger  *zerolog.Logger
}

func New(records domain.RecordStore, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{records: records, logger: logger}
}

// Process reconciles one provider record for the organization. Validation
// failures are absorbed into the report; only storage failures return an
// error, and those abort the run.
func (r *Reconciler) Process(ctx context.Context, organizationID int64, kind string, data models.RecordData, rep *report.Builder) error {
	// Invoices and payments reference a provider customer id; resolve it to
	// a local customer. Unresolved lookups leave the association empty.
	var customerID int64
	if extCustomerID, ok := data.Int64("external_customer_id"); ok {
		customer, err := r.records.FindCustomerByExternalID(ctx, organizationID, extCustomerID)
		if err != nil {
			return err
		}
		if customer != nil {
			customerID = customer.ID
		}
	}

	// A payment covering several invoices fans out into one record per
	// resolved invoice id, all sharing the external service id.
	if kind == models.KindPayments {
		if extInvoiceIDs := data.Int64s("external_invoice_ids"); len(extInvoiceIDs) > 0 {
			for _, extInvoiceID := range extInvoiceIDs {
				var invoiceID int64
				invoice, err := r.records.FindInvoiceByExternalID(ctx, organizationID, extInvoiceID)
				if err != nil {
					return err
				}
				if invoice != nil {
					invoiceID = invoice.ID
				}
				if err := r.upsertPayment(ctx, organizationID, data, customerID, invoiceID, rep); err != nil {
					return err
				}
			}
			return nil
		}
		return r.upsertPayment(ctx, organizationID, data, customerID, 0, rep)
	}

	switch kind {
	case models.KindCustomers:
		return r.upsertCustomer(ctx, organizationID, data, rep)
	case models.KindInvoices:
		return r.upsertInvoice(ctx, organizationID, data, customerID, rep)
	default:
		return fmt.Errorf("unknown kind: %s", kind)
	}
}

func (r *Reconciler) upsertCustomer(ctx context.Context, organizationID int64, data models.RecordData, rep *report.Builder) error {
	externalID, _ := data.Int64("external_service_id")

	customer, err := r.records.FindCustomerByExternalID(ctx, organizationID, externalID)
	if err != nil {
		return err
	}

	isNew := customer == nil
	if isNew {
		customer = &models.Customer{OrganizationID: organizationID, ExternalServiceID: externalID}
	}
	changed := applyCustomer(customer, data)
	if !isNew && !changed {
		return nil
	}

	return r.save(ctx, models.KindCustomers, customer.Validate(), rep, func() error {
		return r.records.SaveCustomer(ctx, customer)
	})
}

func (r *Reconciler) upsertInvoice(ctx context.Context, organizationID int64, data models.RecordData, customerID int64, rep *report.Builder) error {
	externalID, _ := data.Int64("external_service_id")

	invoice, err := r.records.FindInvoiceByExternalID(ctx, organizationID, externalID)
	if err != nil {
		return err
	}

	isNew := invoice == nil
	if isNew {
		invoice = &models.Invoice{OrganizationID: organizationID, ExternalServiceID: externalID}
	}
	changed := applyInvoice(invoice, data, customerID)
	if !isNew && !changed {
		return nil
	}

	return r.save(ctx, models.KindInvoices, invoice.Validate(), rep, func() error {
		return r.records.SaveInvoice(ctx, invoice)
	})
}

func (r *Reconciler) upsertPayment(ctx context.Context, organizationID int64, data models.RecordData, customerID, invoiceID int64, rep *report.Builder) error {
	externalID, _ := data.Int64("external_service_id")

	payment, err := r.records.FindPaymentByExternalID(ctx, organizationID, externalID, invoiceID)
	if err != nil {
		return err
	}

	isNew := payment == nil
	if isNew {
		payment = &models.Payment{OrganizationID: organizationID, ExternalServiceID: externalID, InvoiceID: invoiceID}
	}
	changed := applyPayment(payment, data, customerID, invoiceID)
	if !isNew && !changed {
		return nil
	}

	return r.save(ctx, models.KindPayments, payment.Validate(), rep, func() error {
		return r.records.SavePayment(ctx, payment)
	})
}

// save partitions validation failures before persisting. Missing customer
// associations (and, for payments, missing invoice associations) are counted
// as allowable and discarded; anything left is a hard skip. Only a clean
// record is persisted and counted.
func (r *Reconciler) save(ctx context.Context, kind string, errs models.ValidationErrors, rep *report.Builder, persist func() error) error {
	missingAssociation := false
	if kind != models.KindCustomers && errs.Delete("customer_id") {
		rep.RecordAllowable(report.CounterMissingCustomer)
		missingAssociation = true
	}
	if kind == models.KindPayments && errs.Delete("invoice_id") {
		rep.RecordAllowable(report.CounterMissingInvoice)
		missingAssociation = true
	}

	if errs.Any() {
		r.logger.Debug().Str("kind", kind).Strs("errors", errs.Messages()).Msg("Record skipped")
		rep.RecordSkip(errs)
		return nil
	}
	// Tolerated, but a record with an unresolved association is never
	// persisted; a later run will pick it up once the association syncs.
	if missingAssociation {
		return nil
	}

	if err := persist(); err != nil {
		return err
	}
	rep.RecordSave()
	return nil
}

func applyCustomer(c *models.Customer, data models.RecordData) bool {
	changed := false
	if v, ok := data.String("name"); ok && v != c.Name {
		c.Name = v
		changed = true
	}
	if v, ok := data.String("email"); ok && v != c.Email {
		c.Email = v
		changed = true
	}
	return changed
}

func applyInvoice(i *models.Invoice, data models.RecordData, customerID int64) bool {
	changed := false
	if customerID != 0 && customerID != i.CustomerID {
		i.CustomerID = customerID
		changed = true
	}
	if v, ok := data.String("number"); ok && v != i.Number {
		i.Number = v
		changed = true
	}
	if v, ok := data.Int64("amount_cents"); ok && v != i.AmountCents {
		i.AmountCents = v
		changed = true
	}
	if v, ok := data.String("status"); ok && v != i.Status {
		i.Status = v
		changed = true
	}
	if v, ok := data.Time("issued_on"); ok && !v.Equal(i.IssuedOn) {
		i.IssuedOn = v
		changed = true
	}
	return changed
}

func applyPayment(p *models.Payment, data models.RecordData, customerID, invoiceID int64) bool {
	changed := false
	if customerID != 0 && customerID != p.CustomerID {
		p.CustomerID = customerID
		changed = true
	}
	if invoiceID != 0 && invoiceID != p.InvoiceID {
		p.InvoiceID = invoiceID
		changed = true
	}
	if v, ok := data.Int64("amount_cents"); ok && v != p.AmountCents {
		p.AmountCents = v
		changed = true
	}
	if v, ok := data.Time("paid_on"); ok && !v.Equal(p.PaidOn) {
		p.PaidOn = v
		changed = true
	}
	return changed
}
