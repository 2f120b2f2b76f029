package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestInvoiceLineAmountCents(t *testing.T) {
	line := &InvoiceLine{Quantity: 3, UnitPriceCents: 12550}
	assert.Equal(t, int64(37650), line.AmountCents())
}

func TestInvoiceSubtotalCents(t *testing.T) {
	invoice := &Invoice{
		Lines: []*InvoiceLine{
			{Quantity: 1, UnitPriceCents: 100000},
			{Quantity: 4, UnitPriceCents: 2500},
		},
	}
	assert.Equal(t, int64(110000), invoice.SubtotalCents())

	assert.Equal(t, int64(0), (&Invoice{}).SubtotalCents())
}

func TestPaymentLinkUsable(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	link := &PaymentLink{MaxUses: 3, UsedCount: 0}
	assert.True(t, link.Usable(now))

	link.UsedCount = 3
	assert.False(t, link.Usable(now))

	expired := &PaymentLink{
		MaxUses:   3,
		ExpiresAt: bun.NullTime{Time: now.Add(-time.Minute)},
	}
	assert.False(t, expired.Usable(now))

	live := &PaymentLink{
		MaxUses:   3,
		ExpiresAt: bun.NullTime{Time: now.Add(time.Hour)},
	}
	assert.True(t, live.Usable(now))
}

func TestPaymentIntentLive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&PaymentIntent{Status: "requires_payment"}).Live(now))
	assert.True(t, (&PaymentIntent{Status: "processing"}).Live(now))
	assert.False(t, (&PaymentIntent{Status: "succeeded"}).Live(now))
	assert.False(t, (&PaymentIntent{Status: "canceled"}).Live(now))
	assert.False(t, (&PaymentIntent{Status: "expired"}).Live(now))

	past := &PaymentIntent{Status: "requires_payment", ExpiresAt: bun.NullTime{Time: now.Add(-time.Minute)}}
	assert.False(t, past.Live(now))
}

func TestDrawEntryBillableCentsFixedAmount(t *testing.T) {
	entry := &DrawScheduleEntry{AmountCents: 250000}
	assert.Equal(t, int64(250000), entry.BillableCents(1000000))
}

func TestDrawEntryBillableCentsPercent(t *testing.T) {
	entry := &DrawScheduleEntry{PercentOfContract: decimal.NewFromInt(25)}
	assert.Equal(t, int64(250000), entry.BillableCents(1000000))

	// fractional cents truncate toward zero
	third := &DrawScheduleEntry{PercentOfContract: decimal.NewFromFloat(33.33)}
	assert.Equal(t, int64(333), third.BillableCents(1001))
}

func TestDrawEntryBillableCentsEmpty(t *testing.T) {
	assert.Equal(t, int64(0), (&DrawScheduleEntry{}).BillableCents(1000000))
}
