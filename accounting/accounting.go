package accounting

import (
	"context"

	"github.com/getbuildcamp/billinghub/db/models"
)

// AccountingClientWrapper is the boundary to the external accounting
// system. Both pushes are create-or-update by external id: retrying a push
// for an invoice that already exists externally updates it instead of
// creating a duplicate.
type AccountingClientWrapper interface {
	PushInvoice(ctx context.Context, invoice *models.Invoice) (externalID string, err error)
	PushPayment(ctx context.Context, payment *models.Payment, invoiceExternalID string) (externalID string, err error)
}
