package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgersync/internal/fetch"
	"ledgersync/internal/lifecycle"
	"ledgersync/internal/models"
	"ledgersync/internal/provider"
	"ledgersync/internal/reconcile"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStores backs every persistence interface a run touches, in memory.
type stubStores struct {
	syncStates    map[int64]string
	reports       map[int64][]models.Report
	org           *models.Organization
	token         *models.ConsumerToken
	deletedTokens []int64
	lastSync      *time.Time
	lastSuccess   *time.Time

	customers map[int64]*models.Customer
	invoices  map[int64]*models.Invoice
	payments  map[[2]int64]*models.Payment
	nextID    int64
}

func newStubStores() *stubStores {
	return &stubStores{
		syncStates: make(map[int64]string),
		reports:    make(map[int64][]models.Report),
		org:        &models.Organization{ID: 1, Name: "Org"},
		token:      &models.ConsumerToken{ID: 5, OrganizationID: 1, AccessToken: "token"},
		customers:  make(map[int64]*models.Customer),
		invoices:   make(map[int64]*models.Invoice),
		payments:   make(map[[2]int64]*models.Payment),
	}
}

func (s *stubStores) GetSync(ctx context.Context, id int64) (*models.Sync, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStores) CreateSync(ctx context.Context, sync *models.Sync) error {
	return errors.New("not implemented")
}

func (s *stubStores) UpdateSyncState(ctx context.Context, id int64, state string) error {
	s.syncStates[id] = state
	return nil
}

func (s *stubStores) AppendReport(ctx context.Context, syncID int64, report models.Report) error {
	s.reports[syncID] = append(s.reports[syncID], report)
	return nil
}

func (s *stubStores) GetQueuedSyncs(ctx context.Context, limit int) ([]*models.Sync, error) {
	return nil, nil
}

func (s *stubStores) FindSyncForKind(ctx context.Context, organizationID int64, kind string) (*models.Sync, error) {
	return nil, nil
}

func (s *stubStores) GetOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	return s.org, nil
}

func (s *stubStores) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return errors.New("not implemented")
}

func (s *stubStores) UpdateSyncTimestamps(ctx context.Context, id int64, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error {
	s.lastSync = &lastSyncAt
	s.lastSuccess = lastSuccessfulSyncAt
	return nil
}

func (s *stubStores) GetToken(ctx context.Context, id int64) (*models.ConsumerToken, error) {
	return s.token, nil
}

func (s *stubStores) CreateToken(ctx context.Context, token *models.ConsumerToken) error {
	return errors.New("not implemented")
}

func (s *stubStores) DeleteToken(ctx context.Context, id int64) error {
	s.deletedTokens = append(s.deletedTokens, id)
	return nil
}

func (s *stubStores) FindCustomerByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Customer, error) {
	if c, ok := s.customers[externalID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (s *stubStores) SaveCustomer(ctx context.Context, c *models.Customer) error {
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	copied := *c
	s.customers[c.ExternalServiceID] = &copied
	return nil
}

func (s *stubStores) FindInvoiceByExternalID(ctx context.Context, organizationID, externalID int64) (*models.Invoice, error) {
	if i, ok := s.invoices[externalID]; ok {
		copied := *i
		return &copied, nil
	}
	return nil, nil
}

func (s *stubStores) SaveInvoice(ctx context.Context, i *models.Invoice) error {
	if i.ID == 0 {
		s.nextID++
		i.ID = s.nextID
	}
	copied := *i
	s.invoices[i.ExternalServiceID] = &copied
	return nil
}

func (s *stubStores) FindPaymentByExternalID(ctx context.Context, organizationID, externalID, invoiceID int64) (*models.Payment, error) {
	if p, ok := s.payments[[2]int64{externalID, invoiceID}]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *stubStores) SavePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	copied := *p
	s.payments[[2]int64{p.ExternalServiceID, p.InvoiceID}] = &copied
	return nil
}

func (s *stubStores) CountRecords(ctx context.Context, organizationID int64, kind string) (int, error) {
	return 0, nil
}

type stubNotifier struct {
	firstSyncCalls    int
	invalidTokenCalls int
}

func (n *stubNotifier) FirstSyncComplete(ctx context.Context, sync *models.Sync) error {
	n.firstSyncCalls++
	return nil
}

func (n *stubNotifier) InvalidToken(ctx context.Context, sync *models.Sync) error {
	n.invalidTokenCalls++
	return nil
}

type stubMonitor struct {
	reported []error
}

func (m *stubMonitor) Report(err error) {
	m.reported = append(m.reported, err)
}

// scriptedFetcher serves pre-baked pages and records what was asked of it.
type scriptedFetcher struct {
	pages     [][]models.RecordData
	errs      []error
	paginated bool
	requested []provider.FetchOptions
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, kind string, opts provider.FetchOptions) ([]models.RecordData, error) {
	f.requested = append(f.requested, opts)
	idx := len(f.requested) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.pages) {
		return f.pages[idx], nil
	}
	return nil, nil
}

func (f *scriptedFetcher) SupportsPagination(kind string) bool {
	return f.paginated
}

type testEnv struct {
	stores   *stubStores
	notifier *stubNotifier
	monitor  *stubMonitor
	fetcher  *scriptedFetcher
	runner   *Runner
}

func newTestEnv(fetcher *scriptedFetcher) *testEnv {
	logger := zerolog.Nop()
	stores := newStubStores()
	notifier := &stubNotifier{}
	monitor := &stubMonitor{}

	machine := lifecycle.NewMachine(stores, stores, notifier, monitor, &logger)
	reconciler := reconcile.New(stores, &logger)
	handler := NewErrorHandler(machine, stores, stores, notifier, monitor, &logger)
	factory := func(ctx context.Context, token *models.ConsumerToken, fetchTimeout time.Duration) Fetcher {
		return fetcher
	}
	runner := NewRunner(machine, stores, stores, stores, reconciler, handler, factory, &logger)

	return &testEnv{stores: stores, notifier: notifier, monitor: monitor, fetcher: fetcher, runner: runner}
}

func queuedSync(kind string) *models.Sync {
	return &models.Sync{
		ID:             10,
		OrganizationID: 1,
		TokenID:        5,
		Action:         models.ActionCreate,
		ForModel:       kind,
		State:          models.StateQueued,
	}
}

func TestRunSyncsCustomersAcrossPages(t *testing.T) {
	fetcher := &scriptedFetcher{
		paginated: true,
		pages: [][]models.RecordData{
			{
				{"external_service_id": int64(1), "name": "One"},
				{"external_service_id": int64(2), "name": "Two"},
			},
			{
				{"external_service_id": int64(3), "name": "Three"},
			},
			{}, // end of data
		},
	}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindCustomers)

	rep, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Count)
	assert.Empty(t, rep.Skips)
	assert.Equal(t, models.StateDormant, sync.State)
	assert.Len(t, env.stores.customers, 3)

	require.NotNil(t, env.stores.lastSuccess, "successful run stamps last_successful_sync_at")
	assert.Equal(t, 1, env.notifier.firstSyncCalls)

	// Pages were requested in order, starting at 1.
	require.Len(t, fetcher.requested, 3)
	assert.Equal(t, 1, fetcher.requested[0].Page)
	assert.Equal(t, 2, fetcher.requested[1].Page)
	assert.Equal(t, 3, fetcher.requested[2].Page)

	require.Len(t, env.stores.reports[sync.ID], 1)
	assert.Len(t, sync.History, 1)
}

func TestRunNonPaginatedKindFetchesOnce(t *testing.T) {
	fetcher := &scriptedFetcher{
		paginated: false,
		pages: [][]models.RecordData{
			{{"external_service_id": int64(1), "name": "One"}},
		},
	}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindCustomers)

	rep, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count)
	assert.Len(t, fetcher.requested, 1, "a non-paginated kind is fetched exactly once")
}

func TestRunInvalidTokenDestroysCredential(t *testing.T) {
	fetcher := &scriptedFetcher{errs: []error{provider.ErrUnauthorized}}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindCustomers)

	rep, err := env.runner.Run(context.Background(), sync, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnauthorized)

	assert.Equal(t, models.StateFailed, sync.State)
	assert.Equal(t, []int64{5}, env.stores.deletedTokens)
	assert.Equal(t, 1, env.notifier.invalidTokenCalls)
	assert.NotEmpty(t, rep.ExceptionMsg)

	// The failed run still leaves a report behind.
	require.Len(t, env.stores.reports[sync.ID], 1)
	assert.NotEmpty(t, env.stores.reports[sync.ID][0].ExceptionMsg)
}

func TestRunFetchTimeoutMarksTimeout(t *testing.T) {
	fetcher := &scriptedFetcher{errs: []error{fetch.ErrFetchTimeout}}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindInvoices)

	_, err := env.runner.Run(context.Background(), sync, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrFetchTimeout)

	assert.Equal(t, models.StateTimeout, sync.State)
	assert.Empty(t, env.stores.deletedTokens, "timeouts do not revoke the token")
	assert.Zero(t, env.notifier.invalidTokenCalls)
}

func TestRunTotalTimeoutMidPagination(t *testing.T) {
	fetcher := &scriptedFetcher{
		paginated: true,
		pages: [][]models.RecordData{
			{{"external_service_id": int64(1), "name": "One"}},
			{{"external_service_id": int64(2), "name": "Two"}},
		},
	}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindCustomers)

	_, err := env.runner.Run(context.Background(), sync, Options{TotalTimeout: time.Nanosecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunTimeout)
	assert.Equal(t, models.StateTimeout, sync.State)

	// The deadline is only checked between pages, so page 1 was reconciled.
	assert.Len(t, env.stores.customers, 1)
	assert.Len(t, fetcher.requested, 1)
}

func TestRunPaymentFanOut(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: [][]models.RecordData{
			{{
				"external_service_id":  int64(400),
				"external_invoice_ids": []int64{301, 302},
				"amount_cents":         int64(5000),
			}},
		},
	}
	env := newTestEnv(fetcher)
	env.stores.invoices[301] = &models.Invoice{ID: 11, OrganizationID: 1, ExternalServiceID: 301, Number: "A"}
	env.stores.invoices[302] = &models.Invoice{ID: 12, OrganizationID: 1, ExternalServiceID: 302, Number: "B"}
	sync := queuedSync(models.KindPayments)

	rep, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Count, "one provider payment covering two invoices lands as two records")
	assert.Len(t, env.stores.payments, 2)
}

func TestRunUpdateActionUsesLastSuccessfulSync(t *testing.T) {
	lastSuccess := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &scriptedFetcher{pages: [][]models.RecordData{{}}}
	env := newTestEnv(fetcher)
	env.stores.org.LastSuccessfulSyncAt = &lastSuccess

	sync := queuedSync(models.KindCustomers)
	sync.Action = models.ActionUpdate

	_, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)

	require.Len(t, fetcher.requested, 1)
	require.NotNil(t, fetcher.requested[0].OnOrAfter)
	assert.Equal(t, lastSuccess.Add(-time.Hour), *fetcher.requested[0].OnOrAfter,
		"window opens an hour before the last good run")
}

func TestRunCreateActionFetchesEverything(t *testing.T) {
	lastSuccess := time.Now()
	fetcher := &scriptedFetcher{pages: [][]models.RecordData{{}}}
	env := newTestEnv(fetcher)
	env.stores.org.LastSuccessfulSyncAt = &lastSuccess

	sync := queuedSync(models.KindCustomers)
	sync.Action = models.ActionCreate

	_, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)

	require.Len(t, fetcher.requested, 1)
	assert.Nil(t, fetcher.requested[0].OnOrAfter)
}

func TestRunHardSkipsReported(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: [][]models.RecordData{
			{
				{"external_service_id": int64(1), "name": "Good"},
				{"external_service_id": int64(2)}, // name missing
			},
		},
	}
	env := newTestEnv(fetcher)
	sync := queuedSync(models.KindCustomers)

	rep, err := env.runner.Run(context.Background(), sync, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Count)
	require.Len(t, rep.Skips, 1)
	assert.NotEmpty(t, rep.Skips[0].Errors["name"])
	assert.Equal(t, models.StateDormant, sync.State, "hard skips do not fail the run")
}
