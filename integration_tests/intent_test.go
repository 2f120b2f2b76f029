package integration_tests

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

type IntentTestSuite struct {
	suite.Suite
	svc      *service.BillingService
	provider *providerMock
}

func (suite *IntentTestSuite) SetupSuite() {
	suite.provider = newProviderMock()
	svc, err := billingTestServiceInit(suite.provider, &accountingMock{})
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *IntentTestSuite) TearDownTest() {
	assert.NoError(suite.T(), clearBillingTables(suite.svc))
}

func (suite *IntentTestSuite) TestSecondCreateReusesLiveIntent() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	suite.provider.mu.Lock()
	callsBefore := suite.provider.createCalls
	suite.provider.mu.Unlock()

	first, err := suite.svc.CreatePaymentIntent(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	second, err := suite.svc.CreatePaymentIntent(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), first.ProviderIntentID, second.ProviderIntentID)

	suite.provider.mu.Lock()
	callsAfter := suite.provider.createCalls
	suite.provider.mu.Unlock()
	assert.Equal(suite.T(), callsBefore+1, callsAfter)
}

func (suite *IntentTestSuite) TestDatabaseRejectsSecondLiveIntent() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	_, err = suite.svc.CreatePaymentIntent(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)

	// a raw insert around the service layer hits the live-intent index
	rogue := &models.PaymentIntent{
		OrgID:          testOrgID,
		InvoiceID:      invoice.ID,
		AmountCents:    invoice.BalanceDueCents,
		Currency:       "USD",
		Status:         common.IntentStatusRequiresPayment,
		Provider:       "testpay",
		IdempotencyKey: uuid.NewString(),
		ExpiresAt:      bun.NullTime{Time: time.Now().Add(time.Hour)},
	}
	_, err = suite.svc.DB.NewInsert().Model(rogue).Exec(ctx)
	require.Error(suite.T(), err)
}

func (suite *IntentTestSuite) TestCanceledIntentFreesTheSlot() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	first, err := suite.svc.CreatePaymentIntent(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.CancelPaymentIntent(ctx, testOrgID, first.ID))

	replacement, err := suite.svc.CreatePaymentIntent(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), first.ID, replacement.ID)
}

func TestIntentSuite(t *testing.T) {
	suite.Run(t, new(IntentTestSuite))
}
