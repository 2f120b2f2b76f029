package service

import (
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
)

// legalTransitions is the full transition table of the invoice status
// field. paid and void are terminal.
var legalTransitions = map[string][]string{
	common.InvoiceStatusDraft:   {common.InvoiceStatusSaved, common.InvoiceStatusSent, common.InvoiceStatusVoid},
	common.InvoiceStatusSaved:   {common.InvoiceStatusSent, common.InvoiceStatusVoid},
	common.InvoiceStatusSent:    {common.InvoiceStatusPartial, common.InvoiceStatusPaid, common.InvoiceStatusVoid},
	common.InvoiceStatusPartial: {common.InvoiceStatusPartial, common.InvoiceStatusPaid, common.InvoiceStatusVoid},
	common.InvoiceStatusPaid:    {},
	common.InvoiceStatusVoid:    {},
}

func canTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// validateTransition returns a ValidationError for an illegal transition.
// Requests are never silently clamped.
func validateTransition(invoiceID int64, from, to string) error {
	if !canTransition(from, to) {
		return NewValidationError("invoice %d: illegal status transition %s -> %s", invoiceID, from, to)
	}
	return nil
}

// statusForBalance derives the post-payment status from the recomputed
// balance. It never moves an invoice out of a terminal state.
func statusForBalance(current string, balanceCents, totalCents int64) string {
	if current == common.InvoiceStatusVoid || current == common.InvoiceStatusPaid {
		return current
	}
	switch {
	case balanceCents == 0:
		return common.InvoiceStatusPaid
	case balanceCents < totalCents:
		return common.InvoiceStatusPartial
	default:
		return current
	}
}

// IsOverdue is the single definition of "overdue" consumed by the state
// machine, the late fee engine and any listing code. Overdue is derived,
// never stored.
func IsOverdue(status string, dueDate time.Time, now time.Time) bool {
	if status != common.InvoiceStatusSent && status != common.InvoiceStatusPartial {
		return false
	}
	if dueDate.IsZero() {
		return false
	}
	return dueDate.Before(truncateToDay(now))
}

// DisplayStatus is what listings show: the stored status, or "overdue" for
// an open invoice past its due date.
func DisplayStatus(invoice *models.Invoice, now time.Time) string {
	if IsOverdue(invoice.Status, invoice.DueDate.Time, now) {
		return common.InvoiceStatusOverdue
	}
	return invoice.Status
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
