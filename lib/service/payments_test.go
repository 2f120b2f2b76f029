package service

import (
	"testing"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusFromEvent(t *testing.T) {
	assert.Equal(t, common.PaymentStatusSucceeded, paymentStatusFromEvent("succeeded"))
	assert.Equal(t, common.PaymentStatusSucceeded, paymentStatusFromEvent("paid"))
	assert.Equal(t, common.PaymentStatusSucceeded, paymentStatusFromEvent("settled"))
	assert.Equal(t, common.PaymentStatusFailed, paymentStatusFromEvent("failed"))
	assert.Equal(t, common.PaymentStatusFailed, paymentStatusFromEvent("canceled"))
	assert.Equal(t, common.PaymentStatusRefunded, paymentStatusFromEvent("refunded"))
	// unknown provider statuses stay pending rather than guessing
	assert.Equal(t, common.PaymentStatusPending, paymentStatusFromEvent("requires_action"))
	assert.Equal(t, common.PaymentStatusPending, paymentStatusFromEvent(""))
}

func TestIntentStatusFromEvent(t *testing.T) {
	assert.Equal(t, common.IntentStatusSucceeded, intentStatusFromEvent("succeeded"))
	assert.Equal(t, common.IntentStatusCanceled, intentStatusFromEvent("failed"))
	assert.Equal(t, common.IntentStatusCanceled, intentStatusFromEvent("canceled"))
	assert.Equal(t, common.IntentStatusProcessing, intentStatusFromEvent("processing"))
	assert.Equal(t, common.IntentStatusProcessing, intentStatusFromEvent(""))
}

func TestMethodFromDetail(t *testing.T) {
	assert.Equal(t, common.PaymentMethodCard, methodFromDetail(provider.EventDetail{Kind: "card"}))
	assert.Equal(t, common.PaymentMethodACH, methodFromDetail(provider.EventDetail{Kind: "ach"}))
	assert.Equal(t, "", methodFromDetail(provider.EventDetail{Kind: "unknown"}))
	assert.Equal(t, "", methodFromDetail(provider.EventDetail{}))
}
