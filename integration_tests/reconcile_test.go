package integration_tests

import (
	"context"
	"log"
	"testing"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReconcileTestSuite struct {
	suite.Suite
	svc *service.BillingService
}

func (suite *ReconcileTestSuite) SetupSuite() {
	svc, err := billingTestServiceInit(newProviderMock(), &accountingMock{})
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *ReconcileTestSuite) TearDownTest() {
	assert.NoError(suite.T(), clearBillingTables(suite.svc))
}

func (suite *ReconcileTestSuite) TestPartialThenFullPayment() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	_, err = createLiveIntent(suite.svc, invoice, 4000, "pi_first")
	require.NoError(suite.T(), err)
	result, err := suite.svc.ReconcileProviderEvent(ctx, &provider.Event{
		Provider:          "testpay",
		Type:              "payment.succeeded",
		ProviderPaymentID: "pay_first",
		ProviderIntentID:  "pi_first",
		Status:            "succeeded",
		AmountCents:       4000,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusPartial, result.InvoiceStatus)
	assert.Equal(suite.T(), int64(6000), result.BalanceCents)

	_, err = createLiveIntent(suite.svc, invoice, 6000, "pi_second")
	require.NoError(suite.T(), err)
	result, err = suite.svc.ReconcileProviderEvent(ctx, &provider.Event{
		Provider:          "testpay",
		Type:              "payment.succeeded",
		ProviderPaymentID: "pay_second",
		ProviderIntentID:  "pi_second",
		Status:            "succeeded",
		AmountCents:       6000,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusPaid, result.InvoiceStatus)
	assert.Equal(suite.T(), int64(0), result.BalanceCents)

	stored, err := suite.svc.FindInvoice(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusPaid, stored.Status)
	assert.Equal(suite.T(), int64(0), stored.BalanceDueCents)

	payments, err := suite.svc.PaymentsFor(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), payments, 2)
}

func (suite *ReconcileTestSuite) TestDuplicateDeliveryIsNoop() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	_, err = createLiveIntent(suite.svc, invoice, 10000, "pi_dup")
	require.NoError(suite.T(), err)
	event := &provider.Event{
		Provider:          "testpay",
		Type:              "payment.succeeded",
		ProviderPaymentID: "pay_dup",
		ProviderIntentID:  "pi_dup",
		Status:            "succeeded",
		AmountCents:       10000,
	}
	_, err = suite.svc.ReconcileProviderEvent(ctx, event)
	require.NoError(suite.T(), err)

	_, err = suite.svc.ReconcileProviderEvent(ctx, event)
	require.Error(suite.T(), err)
	assert.True(suite.T(), service.IsReconcileNoop(err))

	stored, err := suite.svc.FindInvoice(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusPaid, stored.Status)
	assert.Equal(suite.T(), int64(0), stored.BalanceDueCents)

	payments, err := suite.svc.PaymentsFor(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), payments, 1)
}

func (suite *ReconcileTestSuite) TestMismatchedAmountKeptForReview() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	_, err = createLiveIntent(suite.svc, invoice, 10000, "pi_mm")
	require.NoError(suite.T(), err)
	event := &provider.Event{
		Provider:          "testpay",
		Type:              "payment.succeeded",
		ProviderPaymentID: "pay_mm",
		ProviderIntentID:  "pi_mm",
		Status:            "succeeded",
		AmountCents:       9000,
	}
	_, err = suite.svc.ReconcileProviderEvent(ctx, event)
	require.Error(suite.T(), err)

	var mismatch *service.AmountMismatchError
	require.ErrorAs(suite.T(), err, &mismatch)
	assert.Equal(suite.T(), int64(9000), mismatch.EventAmountCents)
	assert.Equal(suite.T(), int64(10000), mismatch.IntentAmountCents)

	// the event is on the ledger for operator review, not credited
	payments, err := suite.svc.PaymentsFor(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), payments, 1)
	assert.Equal(suite.T(), common.PaymentStatusNeedsReview, payments[0].Status)
	assert.Equal(suite.T(), int64(9000), payments[0].AmountCents)

	stored, err := suite.svc.FindInvoice(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusSent, stored.Status)
	assert.Equal(suite.T(), int64(10000), stored.BalanceDueCents)

	// a redelivery neither credits nor duplicates the review row
	_, err = suite.svc.ReconcileProviderEvent(ctx, event)
	require.Error(suite.T(), err)
	assert.True(suite.T(), service.IsReconcileNoop(err))
	payments, err = suite.svc.PaymentsFor(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), payments, 1)
}

func (suite *ReconcileTestSuite) TestManualPaymentRequiresCollectibleInvoice() {
	ctx := context.Background()
	draft, err := suite.svc.CreateInvoice(ctx, testOrgID, service.CreateInvoiceParams{
		ContactID: 7,
		Number:    "INV-draft",
		Lines: []service.InvoiceLineParams{
			{Description: "Sitework", Quantity: 1, UnitPriceCents: 5000},
		},
	})
	require.NoError(suite.T(), err)

	_, err = suite.svc.RecordManualPayment(ctx, testOrgID, draft.ID, 5000, common.PaymentMethodCheck, "check 1042")
	require.Error(suite.T(), err)

	var ve *service.ValidationError
	require.ErrorAs(suite.T(), err, &ve)
	assert.Contains(suite.T(), err.Error(), "only sent or partially paid")

	payments, err := suite.svc.PaymentsFor(ctx, testOrgID, draft.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), payments, 0)
}

func (suite *ReconcileTestSuite) TestManualPaymentSettlesSentInvoice() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 5000)
	require.NoError(suite.T(), err)

	payment, err := suite.svc.RecordManualPayment(ctx, testOrgID, invoice.ID, 5000, common.PaymentMethodCheck, "check 1042")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.PaymentStatusSucceeded, payment.Status)

	stored, err := suite.svc.FindInvoice(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusPaid, stored.Status)
	assert.Equal(suite.T(), int64(0), stored.BalanceDueCents)
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileTestSuite))
}
