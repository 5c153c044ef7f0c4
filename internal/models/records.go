package models

import "time"

// Target kinds, in provider sync order.
const (
	KindCustomers = "customers"
	KindInvoices  = "invoices"
	KindPayments  = "payments"
)

// Customer mirrors a provider customer. ExternalServiceID is unique within the
// organization.
type Customer struct {
	ID                int64     `json:"id"`
	OrganizationID    int64     `json:"organization_id"`
	ExternalServiceID int64     `json:"external_service_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate reports field errors the same way a save-time validation would.
func (c *Customer) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if c.ExternalServiceID == 0 {
		errs.Add("external_service_id", "can't be blank")
	}
	if c.Name == "" {
		errs.Add("name", "can't be blank")
	}
	return errs
}

// Invoice mirrors a provider invoice. CustomerID is zero while the customer
// association is unresolved.
type Invoice struct {
	ID                int64     `json:"id"`
	OrganizationID    int64     `json:"organization_id"`
	CustomerID        int64     `json:"customer_id"`
	ExternalServiceID int64     `json:"external_service_id"`
	Number            string    `json:"number"`
	AmountCents       int64     `json:"amount_cents"`
	Status            string    `json:"status"`
	IssuedOn          time.Time `json:"issued_on"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (i *Invoice) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if i.ExternalServiceID == 0 {
		errs.Add("external_service_id", "can't be blank")
	}
	if i.CustomerID == 0 {
		errs.Add("customer_id", "can't be blank")
	}
	if i.Number == "" {
		errs.Add("number", "can't be blank")
	}
	if i.AmountCents < 0 {
		errs.Add("amount_cents", "must be greater than or equal to 0")
	}
	return errs
}

// Payment mirrors a provider payment. A provider payment covering several
// invoices is stored as one row per invoice, so ExternalServiceID alone is not
// unique; (ExternalServiceID, InvoiceID) is.
type Payment struct {
	ID                int64     `json:"id"`
	OrganizationID    int64     `json:"organization_id"`
	CustomerID        int64     `json:"customer_id"`
	InvoiceID         int64     `json:"invoice_id"`
	ExternalServiceID int64     `json:"external_service_id"`
	AmountCents       int64     `json:"amount_cents"`
	PaidOn            time.Time `json:"paid_on"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p *Payment) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if p.ExternalServiceID == 0 {
		errs.Add("external_service_id", "can't be blank")
	}
	if p.InvoiceID == 0 {
		errs.Add("invoice_id", "can't be blank")
	}
	if p.AmountCents <= 0 {
		errs.Add("amount_cents", "must be greater than 0")
	}
	return errs
}
