package integration_tests

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getbuildcamp/billinghub/accounting"
	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db"
	"github.com/getbuildcamp/billinghub/db/migrations"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/logging"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const testOrgID = int64(1)

func billingTestServiceInit(providerClient provider.PaymentProviderWrapper, accountingClient accounting.AccountingClientWrapper) (*service.BillingService, error) {
	c := &service.Config{
		DatabaseUri:             testDatabaseUri,
		DatabaseMaxConns:        1,
		DatabaseMaxIdleConns:    1,
		DatabaseConnMaxLifetime: 10,
		DatabaseTimeout:         10,
		JWTSecret:               []byte("SECRET"),
		DefaultCurrency:         "USD",
		DefaultNetTermsDays:     30,
		IntentExpirySeconds:     3600,
		MaxSyncAttempts:         5,
		SyncBatchLimit:          100,
		SyncPushTimeout:         5,
	}

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	if err = migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	if _, err = migrator.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	svc := &service.BillingService{
		Config:           c,
		DB:               dbConn,
		PaymentProvider:  providerClient,
		AccountingClient: accountingClient,
		Logger:           logging.Logger(""),
		InvoicePubSub:    service.NewPubsub(),
	}
	return svc, nil
}

func clearBillingTables(svc *service.BillingService) error {
	tables := []string{
		"reminder_deliveries",
		"late_fee_applications",
		"sync_histories",
		"payments",
		"payment_intents",
		"payment_links",
		"invoice_lines",
		"retainage_entries",
		"invoices",
	}
	for _, table := range tables {
		if _, err := svc.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return err
		}
	}
	return nil
}

func createSentInvoice(svc *service.BillingService, totalCents int64) (*models.Invoice, error) {
	ctx := context.Background()
	invoice, err := svc.CreateInvoice(ctx, testOrgID, service.CreateInvoiceParams{
		ContactID: 7,
		Number:    "INV-" + uuid.NewString()[:8],
		Lines: []service.InvoiceLineParams{
			{Description: "Framing labor", Quantity: 1, UnitPriceCents: totalCents},
		},
	})
	if err != nil {
		return nil, err
	}
	return svc.SendInvoice(ctx, testOrgID, invoice.ID)
}

// createLiveIntent seeds an intent as if the payer had requested it for a
// partial amount earlier.
func createLiveIntent(svc *service.BillingService, invoice *models.Invoice, amountCents int64, providerIntentID string) (*models.PaymentIntent, error) {
	intent := &models.PaymentIntent{
		OrgID:            invoice.OrgID,
		InvoiceID:        invoice.ID,
		AmountCents:      amountCents,
		Currency:         "USD",
		Status:           common.IntentStatusRequiresPayment,
		Provider:         "testpay",
		ProviderIntentID: providerIntentID,
		IdempotencyKey:   uuid.NewString(),
		ExpiresAt:        bun.NullTime{Time: time.Now().Add(time.Hour)},
	}
	_, err := svc.DB.NewInsert().Model(intent).Exec(context.Background())
	return intent, err
}

type providerMock struct {
	mu          sync.Mutex
	createCalls int
}

func newProviderMock() *providerMock {
	return &providerMock{}
}

func (m *providerMock) CreateIntent(ctx context.Context, req provider.CreateIntentRequest) (*provider.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	return &provider.Intent{
		ID:           "pi_" + req.IdempotencyKey,
		ClientSecret: "cs_test",
		Status:       "requires_payment",
		AmountCents:  req.AmountCents,
	}, nil
}

func (m *providerMock) UpdateIntent(ctx context.Context, providerIntentID string, amountCents int64) (*provider.Intent, error) {
	return &provider.Intent{
		ID:           providerIntentID,
		ClientSecret: "cs_test",
		Status:       "requires_payment",
		AmountCents:  amountCents,
	}, nil
}

func (m *providerMock) CancelIntent(ctx context.Context, providerIntentID string) error {
	return nil
}

func (m *providerMock) Name() string {
	return "testpay"
}

// accountingMock fails the next failuresLeft invoice pushes with a
// permanent error, then succeeds.
type accountingMock struct {
	mu            sync.Mutex
	failuresLeft  int
	invoicePushes int
	paymentPushes int
}

func (m *accountingMock) PushInvoice(ctx context.Context, invoice *models.Invoice) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoicePushes++
	if m.failuresLeft > 0 {
		m.failuresLeft--
		return "", &accounting.Error{StatusCode: 400, Body: "business validation fault"}
	}
	return fmt.Sprintf("qbo-%d", invoice.ID), nil
}

func (m *accountingMock) PushPayment(ctx context.Context, payment *models.Payment, invoiceExternalID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentPushes++
	return fmt.Sprintf("qbo-pay-%d", payment.ID), nil
}
