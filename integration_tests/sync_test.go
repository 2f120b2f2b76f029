package integration_tests

import (
	"context"
	"fmt"
	"log"
	"testing"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SyncTestSuite struct {
	suite.Suite
	svc  *service.BillingService
	acct *accountingMock
}

func (suite *SyncTestSuite) SetupSuite() {
	suite.acct = &accountingMock{}
	svc, err := billingTestServiceInit(newProviderMock(), suite.acct)
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *SyncTestSuite) SetupTest() {
	suite.acct.mu.Lock()
	suite.acct.failuresLeft = 0
	suite.acct.invoicePushes = 0
	suite.acct.paymentPushes = 0
	suite.acct.mu.Unlock()
}

func (suite *SyncTestSuite) TearDownTest() {
	assert.NoError(suite.T(), clearBillingTables(suite.svc))
}

func (suite *SyncTestSuite) TestTwoFailuresThenSuccess() {
	ctx := context.Background()
	invoice, err := createSentInvoice(suite.svc, 10000)
	require.NoError(suite.T(), err)

	suite.acct.mu.Lock()
	suite.acct.failuresLeft = 2
	suite.acct.mu.Unlock()

	synced, failed, err := suite.svc.SyncPendingNow(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, synced)
	assert.Equal(suite.T(), 1, failed)

	requeued, err := suite.svc.RetryFailedSyncs(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, requeued)

	synced, failed, err = suite.svc.SyncPendingNow(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, synced)
	assert.Equal(suite.T(), 1, failed)

	requeued, err = suite.svc.RetryFailedSyncs(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, requeued)

	synced, failed, err = suite.svc.SyncPendingNow(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, synced)
	assert.Equal(suite.T(), 0, failed)

	stored, err := suite.svc.FindInvoice(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.SyncStatusSynced, stored.QboSyncStatus)
	assert.Equal(suite.T(), fmt.Sprintf("qbo-%d", invoice.ID), stored.QboID)

	// the attempt trail carries exactly one row per push, newest first
	history, err := suite.svc.SyncHistoryFor(ctx, testOrgID, invoice.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 3)
	assert.Equal(suite.T(), common.SyncResultSuccess, history[0].Result)
	assert.Equal(suite.T(), 3, history[0].Attempt)
	assert.Equal(suite.T(), stored.QboID, history[0].QboID)
	assert.Equal(suite.T(), common.SyncResultError, history[1].Result)
	assert.Equal(suite.T(), common.SyncResultError, history[2].Result)
	assert.NotEmpty(suite.T(), history[1].ErrorMessage)
}

func (suite *SyncTestSuite) TestDraftsAreNeverSynced() {
	ctx := context.Background()
	_, err := suite.svc.CreateInvoice(ctx, testOrgID, service.CreateInvoiceParams{
		ContactID: 7,
		Number:    "INV-draft-sync",
		Lines: []service.InvoiceLineParams{
			{Description: "Sitework", Quantity: 1, UnitPriceCents: 5000},
		},
	})
	require.NoError(suite.T(), err)

	synced, failed, err := suite.svc.SyncPendingNow(ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, synced)
	assert.Equal(suite.T(), 0, failed)

	suite.acct.mu.Lock()
	pushes := suite.acct.invoicePushes
	suite.acct.mu.Unlock()
	assert.Equal(suite.T(), 0, pushes)
}

func TestSyncSuite(t *testing.T) {
	suite.Run(t, new(SyncTestSuite))
}
