package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledgersync/internal/models"
)

func (db *DB) FindCustomerByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Customer, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, external_service_id, name, email, created_at, updated_at
         FROM customers WHERE organization_id = ? AND external_service_id = ?`,
		organizationID, externalID)

	var c models.Customer
	var email sql.NullString
	err := row.Scan(&c.ID, &c.OrganizationID, &c.ExternalServiceID, &c.Name, &email, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	c.Email = email.String
	return &c, nil
}

func (db *DB) SaveCustomer(ctx context.Context, c *models.Customer) error {
	now := time.Now()
	if c.ID == 0 {
		result, err := db.db.ExecContext(ctx,
			`INSERT INTO customers (organization_id, external_service_id, name, email, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			c.OrganizationID, c.ExternalServiceID, c.Name, c.Email, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert customer: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		c.ID = id
		c.CreatedAt = now
	} else {
		_, err := db.db.ExecContext(ctx,
			`UPDATE customers SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
			c.Name, c.Email, now, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
	}
	c.UpdatedAt = now
	return nil
}

func (db *DB) FindInvoiceByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Invoice, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, customer_id, external_service_id, number, amount_cents, status, issued_on, created_at, updated_at
         FROM invoices WHERE organization_id = ? AND external_service_id = ?`,
		organizationID, externalID)

	var i models.Invoice
	var status sql.NullString
	var issuedOn sql.NullTime
	err := row.Scan(&i.ID, &i.OrganizationID, &i.CustomerID, &i.ExternalServiceID, &i.Number,
		&i.AmountCents, &status, &issuedOn, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	i.Status = status.String
	if issuedOn.Valid {
		i.IssuedOn = issuedOn.Time
	}
	return &i, nil
}

func (db *DB) SaveInvoice(ctx context.Context, i *models.Invoice) error {
	now := time.Now()
	if i.ID == 0 {
		result, err := db.db.ExecContext(ctx,
			`INSERT INTO invoices (organization_id, customer_id, external_service_id, number, amount_cents, status, issued_on, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i.OrganizationID, i.CustomerID, i.ExternalServiceID, i.Number, i.AmountCents, i.Status, i.IssuedOn, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		i.ID = id
		i.CreatedAt = now
	} else {
		_, err := db.db.ExecContext(ctx,
			`UPDATE invoices SET customer_id = ?, number = ?, amount_cents = ?, status = ?, issued_on = ?, updated_at = ? WHERE id = ?`,
			i.CustomerID, i.Number, i.AmountCents, i.Status, i.IssuedOn, now, i.ID)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
	}
	i.UpdatedAt = now
	return nil
}

func (db *DB) FindPaymentByExternalID(ctx context.Context, organizationID, externalID, invoiceID int64) (*models.Payment, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT id, organization_id, customer_id, invoice_id, external_service_id, amount_cents, paid_on, created_at, updated_at
         FROM payments WHERE organization_id = ? AND external_service_id = ? AND invoice_id = ?`,
		organizationID, externalID, invoiceID)

	var p models.Payment
	var paidOn sql.NullTime
	err := row.Scan(&p.ID, &p.OrganizationID, &p.CustomerID, &p.InvoiceID, &p.ExternalServiceID,
		&p.AmountCents, &paidOn, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if paidOn.Valid {
		p.PaidOn = paidOn.Time
	}
	return &p, nil
}

func (db *DB) SavePayment(ctx context.Context, p *models.Payment) error {
	now := time.Now()
	if p.ID == 0 {
		result, err := db.db.ExecContext(ctx,
			`INSERT INTO payments (organization_id, customer_id, invoice_id, external_service_id, amount_cents, paid_on, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.OrganizationID, p.CustomerID, p.InvoiceID, p.ExternalServiceID, p.AmountCents, p.PaidOn, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		p.ID = id
		p.CreatedAt = now
	} else {
		_, err := db.db.ExecContext(ctx,
			`UPDATE payments SET customer_id = ?, invoice_id = ?, amount_cents = ?, paid_on = ?, updated_at = ? WHERE id = ?`,
			p.CustomerID, p.InvoiceID, p.AmountCents, p.PaidOn, now, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
	}
	p.UpdatedAt = now
	return nil
}

// CountRecords counts stored target records of a kind for an organization.
func (db *DB) CountRecords(ctx context.Context, organizationID int64, kind string) (int, error) {
	var table string
	switch kind {
	case models.KindCustomers:
		table = "customers"
	case models.KindInvoices:
		table = "invoices"
	case models.KindPayments:
		table = "payments"
	default:
		return 0, fmt.Errorf("unknown kind: %s", kind)
	}

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE organization_id = ?`, table)
	if err := db.db.QueryRowContext(ctx, query, organizationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return count, nil
}
