package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/labstack/gommon/random"
	"github.com/uptrace/bun"
)

// CreatePaymentLink mints a token granting a payer bounded access to one
// invoice. The plaintext token is returned exactly once; only its hash is
// stored.
func (svc *BillingService) CreatePaymentLink(ctx context.Context, orgId, invoiceId int64) (*models.PaymentLink, string, error) {
	invoice, err := svc.FindInvoice(ctx, orgId, invoiceId)
	if err != nil {
		return nil, "", err
	}
	if invoice.Status != common.InvoiceStatusSent && invoice.Status != common.InvoiceStatusPartial {
		return nil, "", NewValidationError("invoice %d is %s and not collectible", invoiceId, invoice.Status)
	}

	token := random.String(40, random.Alphanumeric)
	link := &models.PaymentLink{
		OrgID:     orgId,
		InvoiceID: invoiceId,
		TokenHash: hashToken(token),
		MaxUses:   svc.Config.PaymentLinkMaxUses,
		ExpiresAt: bun.NullTime{Time: time.Now().Add(time.Duration(svc.Config.PaymentLinkExpiry) * time.Second)},
	}
	if _, err = svc.DB.NewInsert().Model(link).Exec(ctx); err != nil {
		return nil, "", err
	}
	return link, token, nil
}

// ConsumePaymentLink resolves a presented token, burns one use and returns
// the invoice it pays. The use counter is bumped with a guarded update so
// two concurrent presentations cannot both consume the last use.
func (svc *BillingService) ConsumePaymentLink(ctx context.Context, token string) (*models.Invoice, error) {
	var link models.PaymentLink
	err := svc.DB.NewSelect().
		Model(&link).
		Where("token_hash = ?", hashToken(token)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewValidationError("payment link not found")
	}
	if err != nil {
		return nil, err
	}
	if !link.Usable(time.Now()) {
		return nil, NewValidationError("payment link is expired or used up")
	}

	res, err := svc.DB.NewUpdate().
		Model(&link).
		Set("used_count = used_count + 1").
		Where("id = ? AND used_count < max_uses", link.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, NewValidationError("payment link is expired or used up")
	}

	return svc.FindInvoice(ctx, link.OrgID, link.InvoiceID)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
