package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/uptrace/bun"
)

const reminderDayFormat = "2006-01-02"

type ReminderParams struct {
	OffsetDays int    `json:"offset_days"`
	Channel    string `json:"channel" validate:"oneof=email sms"`
	Template   string `json:"template"`
}

func (svc *BillingService) CreateReminder(ctx context.Context, orgId int64, params ReminderParams) (*models.Reminder, error) {
	if params.Channel != common.ReminderChannelEmail && params.Channel != common.ReminderChannelSMS {
		return nil, NewValidationError("unknown reminder channel %q", params.Channel)
	}
	reminder := &models.Reminder{
		OrgID:      orgId,
		OffsetDays: params.OffsetDays,
		Channel:    params.Channel,
		Template:   params.Template,
		Active:     true,
	}
	if _, err := svc.DB.NewInsert().Model(reminder).Exec(ctx); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (svc *BillingService) DeactivateReminder(ctx context.Context, orgId, reminderId int64) error {
	res, err := svc.DB.NewUpdate().
		Model((*models.Reminder)(nil)).
		Set("active = false").
		Where("org_id = ? AND id = ?", orgId, reminderId).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return NewValidationError("reminder %d not found", reminderId)
	}
	return nil
}

// SendDueReminders evaluates every active reminder against every open
// invoice for the day asOf falls on. Matching is day-granular: a reminder
// with offset -3 fires on the one calendar day exactly three days before
// the due date, and the unique delivery key makes re-runs within that day
// no-ops.
func (svc *BillingService) SendDueReminders(ctx context.Context, asOf time.Time) (sent int, err error) {
	reminders := []models.Reminder{}
	err = svc.DB.NewSelect().
		Model(&reminders).
		Where("active = true").
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	invoices := []models.Invoice{}
	err = svc.DB.NewSelect().
		Model(&invoices).
		Where("status IN (?)", bun.In([]string{common.InvoiceStatusSent, common.InvoiceStatusPartial})).
		Where("due_date IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	day := truncateToDay(asOf)
	for i := range invoices {
		invoice := &invoices[i]
		for j := range reminders {
			reminder := &reminders[j]
			if reminder.OrgID != invoice.OrgID {
				continue
			}
			if !reminderDueOn(reminder.OffsetDays, invoice.DueDate.Time, day) {
				continue
			}
			ok, err := svc.deliverReminder(ctx, reminder, invoice, day)
			if err != nil {
				svc.Logger.Errorf("Reminder delivery failed invoice_id:%d reminder_id:%d %v", invoice.ID, reminder.ID, err)
				continue
			}
			if ok {
				sent++
			}
		}
	}
	return sent, nil
}

// reminderDueOn reports whether a reminder with the given due-date offset
// fires on day.
func reminderDueOn(offsetDays int, dueDate, day time.Time) bool {
	if dueDate.IsZero() {
		return false
	}
	return truncateToDay(dueDate).AddDate(0, 0, offsetDays).Equal(truncateToDay(day))
}

// deliverReminder records the delivery and publishes the send. Returns
// false when a delivery for this (reminder, invoice, channel, day) already
// exists.
func (svc *BillingService) deliverReminder(ctx context.Context, reminder *models.Reminder, invoice *models.Invoice, day time.Time) (bool, error) {
	delivery := &models.ReminderDelivery{
		OrgID:      invoice.OrgID,
		ReminderID: reminder.ID,
		InvoiceID:  invoice.ID,
		Channel:    reminder.Channel,
		Day:        day.Format(reminderDayFormat),
		Status:     common.DeliveryStatusSent,
	}
	res, err := svc.DB.NewInsert().
		Model(delivery).
		On("CONFLICT (reminder_id, invoice_id, channel, day) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return false, nil
	}

	svc.InvoicePubSub.Publish(EventReminderSent, InvoiceEvent{Type: EventReminderSent, OrgID: invoice.OrgID, Invoice: invoice})
	return true, nil
}

// RecordReminderEvent updates a delivery with downstream channel feedback
// (delivered, clicked, failed). Unknown deliveries are rejected; status
// never moves backwards from clicked.
func (svc *BillingService) RecordReminderEvent(ctx context.Context, orgId, deliveryId int64, status string) error {
	switch status {
	case common.DeliveryStatusDelivered, common.DeliveryStatusClicked, common.DeliveryStatusFailed:
	default:
		return NewValidationError("unknown delivery status %q", status)
	}

	var delivery models.ReminderDelivery
	err := svc.DB.NewSelect().
		Model(&delivery).
		Where("org_id = ? AND id = ?", orgId, deliveryId).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return NewValidationError("reminder delivery %d not found", deliveryId)
	}
	if err != nil {
		return err
	}
	if delivery.Status == common.DeliveryStatusClicked {
		return nil
	}

	delivery.Status = status
	_, err = svc.DB.NewUpdate().Model(&delivery).WherePK().Exec(ctx)
	return err
}

// ReminderDeliveriesFor lists the delivery trail for one invoice.
func (svc *BillingService) ReminderDeliveriesFor(ctx context.Context, orgId, invoiceId int64) ([]models.ReminderDelivery, error) {
	deliveries := []models.ReminderDelivery{}
	err := svc.DB.NewSelect().
		Model(&deliveries).
		Where("org_id = ? AND invoice_id = ?", orgId, invoiceId).
		OrderExpr("id DESC").
		Scan(ctx)
	return deliveries, err
}
