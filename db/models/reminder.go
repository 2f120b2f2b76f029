package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Reminder : a schedule relative to the invoice due date.
// OffsetDays < 0 means before the due date, > 0 after.
type Reminder struct {
	ID         int64     `json:"id" bun:",pk,autoincrement"`
	OrgID      int64     `json:"org_id" bun:",notnull"`
	OffsetDays int       `json:"offset_days" bun:",notnull"`
	Channel    string    `json:"channel" bun:",notnull,default:'email'"`
	Template   string    `json:"template" bun:",nullzero"`
	Active     bool      `json:"active" bun:",notnull,default:true"`
	CreatedAt  time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// ReminderDelivery : the fact of one send attempt, unique per
// (reminder_id, invoice_id, channel, day). Open/click tracking events
// update the row in place, they never create a second row for that day.
type ReminderDelivery struct {
	ID         int64        `json:"id" bun:",pk,autoincrement"`
	OrgID      int64        `json:"org_id" bun:",notnull"`
	ReminderID int64        `json:"reminder_id" bun:",notnull"`
	Reminder   *Reminder    `json:"-" bun:"rel:belongs-to,join:reminder_id=id"`
	InvoiceID  int64        `json:"invoice_id" bun:",notnull"`
	Invoice    *Invoice     `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	Channel    string       `json:"channel" bun:",notnull"`
	Day        string       `json:"day" bun:",notnull"`
	Status     string       `json:"status" bun:",notnull,default:'sent'"`
	CreatedAt  time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt  bun.NullTime `json:"updated_at"`
}

func (d *ReminderDelivery) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		d.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*ReminderDelivery)(nil)
