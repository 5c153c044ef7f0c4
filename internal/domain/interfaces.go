package domain

import (
	"context"
	"time"

	"ledgersync/internal/models"
)

// SyncStore persists syncs, their state and their append-only report history.
type SyncStore interface {
	GetSync(ctx context.Context, id int64) (*models.Sync, error)
	CreateSync(ctx context.Context, sync *models.Sync) error
	UpdateSyncState(ctx context.Context, id int64, state string) error
	AppendReport(ctx context.Context, syncID int64, report models.Report) error
	GetQueuedSyncs(ctx context.Context, limit int) ([]*models.Sync, error)
	FindSyncForKind(ctx context.Context, organizationID int64, kind string) (*models.Sync, error)
}

// OrganizationStore reads organizations and overwrites their sync timestamps.
type OrganizationStore interface {
	GetOrganization(ctx context.Context, id int64) (*models.Organization, error)
	CreateOrganization(ctx context.Context, org *models.Organization) error
	UpdateSyncTimestamps(ctx context.Context, id int64, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error
}

// TokenStore manages provider credentials.
type TokenStore interface {
	GetToken(ctx context.Context, id int64) (*models.ConsumerToken, error)
	CreateToken(ctx context.Context, token *models.ConsumerToken) error
	DeleteToken(ctx context.Context, id int64) error
}

// RecordStore looks up and saves target records by their reconciliation keys.
// Find methods return (nil, nil) when no match exists.
type RecordStore interface {
	FindCustomerByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Customer, error)
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	FindInvoiceByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, invoice *models.Invoice) error
	FindPaymentByExternalID(ctx context.Context, organizationID, externalID, invoiceID int64) (*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	CountRecords(ctx context.Context, organizationID int64, kind string) (int, error)
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	FirstSyncComplete(ctx context.Context, sync *models.Sync) error
	InvalidToken(ctx context.Context, sync *models.Sync) error
}

// Monitor is the fire-and-forget error reporting sink.
type Monitor interface {
	Report(err error)
}

// Locker guards at-most-one concurrent run per sync identity.
type Locker interface {
	Acquire(ctx context.Context, syncID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, syncID int64) error
}
