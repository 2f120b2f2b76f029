package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type InvoiceLineParams struct {
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity" validate:"gte=1"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0"`
	CostCode       string `json:"cost_code"`
}

type CreateInvoiceParams struct {
	ProjectID  int64               `json:"project_id"`
	ContractID int64               `json:"contract_id"`
	ContactID  int64               `json:"contact_id"`
	Number     string              `json:"number"`
	Memo       string              `json:"memo"`
	Currency   string              `json:"currency"`
	TaxRate    decimal.Decimal     `json:"tax_rate"`
	DueDate    time.Time           `json:"due_date"`
	Lines      []InvoiceLineParams `json:"lines" validate:"dive"`
}

func (svc *BillingService) FindInvoice(ctx context.Context, orgId, invoiceId int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := svc.DB.NewSelect().
		Model(&invoice).
		Relation("Lines").
		Where("invoice.org_id = ? AND invoice.id = ?", orgId, invoiceId).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (svc *BillingService) InvoicesFor(ctx context.Context, orgId int64, status string) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	query := svc.DB.NewSelect().Model(&invoices).Where("org_id = ?", orgId)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.OrderExpr("id DESC").Scan(ctx)
	return invoices, err
}

// CreateInvoice persists a draft invoice with its lines. When the contract
// carries a retainage percentage the withheld portion is recorded as a
// retainage entry and deducted from the billed amount through a negative
// line, so the historical invoice total never needs amending later.
func (svc *BillingService) CreateInvoice(ctx context.Context, orgId int64, params CreateInvoiceParams) (*models.Invoice, error) {
	currency := params.Currency
	if currency == "" {
		currency = svc.Config.DefaultCurrency
	}

	invoice := &models.Invoice{
		OrgID:      orgId,
		ProjectID:  params.ProjectID,
		ContractID: params.ContractID,
		ContactID:  params.ContactID,
		Number:     params.Number,
		Memo:       params.Memo,
		Currency:   currency,
		TaxRate:    params.TaxRate,
		Status:     common.InvoiceStatusDraft,
	}
	if !params.DueDate.IsZero() {
		invoice.DueDate = bun.NullTime{Time: params.DueDate}
	}

	lines := make([]*models.InvoiceLine, 0, len(params.Lines))
	var subtotal int64
	for _, lp := range params.Lines {
		line := &models.InvoiceLine{
			Kind:           common.LineKindItem,
			Description:    lp.Description,
			Quantity:       lp.Quantity,
			UnitPriceCents: lp.UnitPriceCents,
			CostCode:       lp.CostCode,
		}
		subtotal += line.AmountCents()
		lines = append(lines, line)
	}

	var retainage *models.RetainageEntry
	if params.ContractID != 0 {
		var contract models.Contract
		err := svc.DB.NewSelect().Model(&contract).Where("org_id = ? AND id = ?", orgId, params.ContractID).Limit(1).Scan(ctx)
		if err != nil {
			return nil, NewValidationError("contract %d not found", params.ContractID)
		}
		if withheld := withheldCents(subtotal, contract.RetainagePercent); withheld > 0 {
			lines = append(lines, &models.InvoiceLine{
				Kind:           common.LineKindRetainageWithheld,
				Description:    "Retainage withheld",
				Quantity:       1,
				UnitPriceCents: -withheld,
			})
			subtotal -= withheld
			retainage = &models.RetainageEntry{
				OrgID:       orgId,
				ContractID:  params.ContractID,
				AmountCents: withheld,
				Status:      common.RetainageStatusHeld,
			}
		}
	}

	invoice.TotalCents = subtotal + taxCents(subtotal, params.TaxRate)
	invoice.BalanceDueCents = invoice.TotalCents
	invoice.QboSyncStatus = common.SyncStatusPending

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(invoice).Exec(ctx); err != nil {
			return err
		}
		for _, line := range lines {
			line.InvoiceID = invoice.ID
			if _, err := tx.NewInsert().Model(line).Exec(ctx); err != nil {
				return err
			}
		}
		if retainage != nil {
			retainage.InvoiceID = invoice.ID
			if _, err := tx.NewInsert().Model(retainage).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invoice.Lines = lines
	return invoice, nil
}

// UpdateInvoice replaces the item lines and heading fields of an invoice
// that is not in a terminal state. Decreasing the total of a sent invoice
// requires a change order and is rejected here. The version parameter is
// the optimistic lock: a stale version fails with ConflictError.
func (svc *BillingService) UpdateInvoice(ctx context.Context, orgId, invoiceId, version int64, params CreateInvoiceParams) (*models.Invoice, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusPaid || invoice.Status == common.InvoiceStatusVoid {
		return nil, NewValidationError("invoice %d is %s and can no longer be edited", invoiceId, invoice.Status)
	}
	if invoice.Version != version {
		return nil, &ConflictError{Resource: "invoice", ID: invoiceId}
	}

	var subtotal int64
	lines := make([]*models.InvoiceLine, 0, len(params.Lines))
	for _, lp := range params.Lines {
		line := &models.InvoiceLine{
			InvoiceID:      invoiceId,
			Kind:           common.LineKindItem,
			Description:    lp.Description,
			Quantity:       lp.Quantity,
			UnitPriceCents: lp.UnitPriceCents,
			CostCode:       lp.CostCode,
		}
		subtotal += line.AmountCents()
		lines = append(lines, line)
	}
	// fee and retainage lines survive the edit
	var keptCents int64
	for _, line := range invoice.Lines {
		if line.Kind != common.LineKindItem {
			keptCents += line.AmountCents()
		}
	}
	newTotal := subtotal + keptCents + taxCents(subtotal+keptCents, params.TaxRate)

	sentOrLater := invoice.Status == common.InvoiceStatusSent || invoice.Status == common.InvoiceStatusPartial
	if sentOrLater && newTotal < invoice.TotalCents {
		return nil, NewValidationError("invoice %d: decreasing the total of a sent invoice requires a change order", invoiceId)
	}

	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		paid, err := succeededPaymentsTotal(ctx, tx, invoiceId)
		if err != nil {
			return err
		}

		invoice.Memo = params.Memo
		invoice.Number = params.Number
		invoice.TaxRate = params.TaxRate
		if !params.DueDate.IsZero() {
			invoice.DueDate = bun.NullTime{Time: params.DueDate}
		}
		invoice.TotalCents = newTotal
		invoice.BalanceDueCents = maxInt64(0, newTotal-paid)
		invoice.QboSyncStatus = common.SyncStatusPending
		if invoice.Status == common.InvoiceStatusDraft {
			invoice.Status = common.InvoiceStatusSaved
		}

		oldVersion := invoice.Version
		invoice.Version++
		res, err := tx.NewUpdate().
			Model(invoice).
			WherePK().
			Where("version = ?", oldVersion).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return &ConflictError{Resource: "invoice", ID: invoiceId}
		}

		if _, err = tx.NewDelete().
			Model((*models.InvoiceLine)(nil)).
			Where("invoice_id = ? AND kind = ?", invoiceId, common.LineKindItem).
			Exec(ctx); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err = tx.NewInsert().Model(line).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// SendInvoice transitions draft/saved -> sent. Requires at least one line,
// a recipient and a positive total. Sets the issue date if unset and
// defaults the due date from the configured net terms.
func (svc *BillingService) SendInvoice(ctx context.Context, orgId, invoiceId int64) (*models.Invoice, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if err = validateTransition(invoiceId, invoice.Status, common.InvoiceStatusSent); err != nil {
		return nil, err
	}
	if len(invoice.Lines) == 0 {
		return nil, NewValidationError("invoice %d has no lines", invoiceId)
	}
	if invoice.ContactID == 0 {
		return nil, NewValidationError("invoice %d has no recipient", invoiceId)
	}
	if invoice.TotalCents <= 0 {
		return nil, NewValidationError("invoice %d total must be positive", invoiceId)
	}

	now := time.Now()
	invoice.Status = common.InvoiceStatusSent
	invoice.SentAt = bun.NullTime{Time: now}
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = bun.NullTime{Time: now}
	}
	if invoice.DueDate.IsZero() {
		invoice.DueDate = bun.NullTime{Time: now.AddDate(0, 0, svc.Config.DefaultNetTermsDays)}
	}
	invoice.QboSyncStatus = common.SyncStatusPending

	oldVersion := invoice.Version
	invoice.Version++
	res, err := svc.DB.NewUpdate().
		Model(invoice).
		WherePK().
		Where("version = ?", oldVersion).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, &ConflictError{Resource: "invoice", ID: invoiceId}
	}

	svc.InvoicePubSub.Publish(EventInvoiceSent, InvoiceEvent{Type: EventInvoiceSent, OrgID: orgId, Invoice: invoice})
	return invoice, nil
}

// VoidInvoice freezes the invoice. Voiding a partially paid invoice does
// not auto-refund anything; the invoice simply stops participating in
// reminders, late fees and payment collection.
func (svc *BillingService) VoidInvoice(ctx context.Context, orgId, invoiceId int64) (*models.Invoice, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, err
	}
	if err = validateTransition(invoiceId, invoice.Status, common.InvoiceStatusVoid); err != nil {
		return nil, err
	}

	invoice.Status = common.InvoiceStatusVoid
	invoice.VoidedAt = bun.NullTime{Time: time.Now()}

	oldVersion := invoice.Version
	invoice.Version++
	res, err := svc.DB.NewUpdate().
		Model(invoice).
		WherePK().
		Where("version = ?", oldVersion).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, &ConflictError{Resource: "invoice", ID: invoiceId}
	}

	svc.InvoicePubSub.Publish(EventInvoiceVoided, InvoiceEvent{Type: EventInvoiceVoided, OrgID: orgId, Invoice: invoice})
	return invoice, nil
}

// succeededPaymentsTotal sums the applied, non-reversed payments. Reversals
// are negative rows so a plain sum nets them out.
func succeededPaymentsTotal(ctx context.Context, db bun.IDB, invoiceId int64) (int64, error) {
	var total int64
	err := db.NewSelect().
		Model((*models.Payment)(nil)).
		ColumnExpr("COALESCE(SUM(amount_cents), 0)").
		Where("invoice_id = ? AND status = ?", invoiceId, common.PaymentStatusSucceeded).
		Scan(ctx, &total)
	return total, err
}

// applyPaymentsToInvoice recomputes balance_due_cents inside the caller's
// transaction and drives the status transition that the new balance
// implies. The payment write and this write commit together.
func (svc *BillingService) applyPaymentsToInvoice(ctx context.Context, tx bun.Tx, invoice *models.Invoice) error {
	paid, err := succeededPaymentsTotal(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	newBalance := maxInt64(0, invoice.TotalCents-paid)
	newStatus := statusForBalance(invoice.Status, newBalance, invoice.TotalCents)
	if newStatus != invoice.Status {
		if err = validateTransition(invoice.ID, invoice.Status, newStatus); err != nil {
			return err
		}
	}

	invoice.BalanceDueCents = newBalance
	invoice.Status = newStatus
	if newStatus == common.InvoiceStatusPaid && invoice.PaidAt.IsZero() {
		invoice.PaidAt = bun.NullTime{Time: time.Now()}
	}
	invoice.QboSyncStatus = common.SyncStatusPending

	oldVersion := invoice.Version
	invoice.Version++
	res, err := tx.NewUpdate().
		Model(invoice).
		WherePK().
		Where("version = ?", oldVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &ConflictError{Resource: "invoice", ID: invoice.ID}
	}
	return nil
}

func taxCents(subtotalCents int64, rate decimal.Decimal) int64 {
	if rate.IsZero() || subtotalCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func withheldCents(subtotalCents int64, percent decimal.Decimal) int64 {
	if percent.IsZero() || subtotalCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		IntPart()
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
