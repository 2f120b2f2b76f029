package service

import (
	"testing"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestDraftTransitions(t *testing.T) {
	assert.True(t, canTransition(common.InvoiceStatusDraft, common.InvoiceStatusSaved))
	assert.True(t, canTransition(common.InvoiceStatusDraft, common.InvoiceStatusSent))
	assert.True(t, canTransition(common.InvoiceStatusDraft, common.InvoiceStatusVoid))
	assert.False(t, canTransition(common.InvoiceStatusDraft, common.InvoiceStatusPaid))
	assert.False(t, canTransition(common.InvoiceStatusDraft, common.InvoiceStatusPartial))
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	for _, to := range []string{
		common.InvoiceStatusDraft,
		common.InvoiceStatusSaved,
		common.InvoiceStatusSent,
		common.InvoiceStatusPartial,
		common.InvoiceStatusPaid,
		common.InvoiceStatusVoid,
	} {
		assert.False(t, canTransition(common.InvoiceStatusPaid, to))
		assert.False(t, canTransition(common.InvoiceStatusVoid, to))
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := validateTransition(7, common.InvoiceStatusPaid, common.InvoiceStatusSent)
	assert.Error(t, err)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)

	assert.NoError(t, validateTransition(7, common.InvoiceStatusSent, common.InvoiceStatusVoid))
}

func TestStatusForBalance(t *testing.T) {
	assert.Equal(t, common.InvoiceStatusPaid, statusForBalance(common.InvoiceStatusSent, 0, 10000))
	assert.Equal(t, common.InvoiceStatusPartial, statusForBalance(common.InvoiceStatusSent, 4000, 10000))
	assert.Equal(t, common.InvoiceStatusSent, statusForBalance(common.InvoiceStatusSent, 10000, 10000))
	assert.Equal(t, common.InvoiceStatusPaid, statusForBalance(common.InvoiceStatusPartial, 0, 10000))
}

func TestStatusForBalanceNeverLeavesTerminal(t *testing.T) {
	assert.Equal(t, common.InvoiceStatusVoid, statusForBalance(common.InvoiceStatusVoid, 0, 10000))
	assert.Equal(t, common.InvoiceStatusPaid, statusForBalance(common.InvoiceStatusPaid, 4000, 10000))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	assert.True(t, IsOverdue(common.InvoiceStatusSent, yesterday, now))
	assert.True(t, IsOverdue(common.InvoiceStatusPartial, yesterday, now))
	assert.False(t, IsOverdue(common.InvoiceStatusSent, tomorrow, now))
	// due today is not overdue until the next day
	assert.False(t, IsOverdue(common.InvoiceStatusSent, now, now))
	// only open invoices can be overdue
	assert.False(t, IsOverdue(common.InvoiceStatusDraft, yesterday, now))
	assert.False(t, IsOverdue(common.InvoiceStatusPaid, yesterday, now))
	assert.False(t, IsOverdue(common.InvoiceStatusVoid, yesterday, now))
	// no due date means never overdue
	assert.False(t, IsOverdue(common.InvoiceStatusSent, time.Time{}, now))
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)
	invoice := &models.Invoice{
		Status:  common.InvoiceStatusSent,
		DueDate: bun.NullTime{Time: now.AddDate(0, 0, -3)},
	}
	assert.Equal(t, common.InvoiceStatusOverdue, DisplayStatus(invoice, now))

	invoice.Status = common.InvoiceStatusPaid
	assert.Equal(t, common.InvoiceStatusPaid, DisplayStatus(invoice, now))

	invoice.Status = common.InvoiceStatusSent
	invoice.DueDate = bun.NullTime{Time: now.AddDate(0, 0, 3)}
	assert.Equal(t, common.InvoiceStatusSent, DisplayStatus(invoice, now))
}
