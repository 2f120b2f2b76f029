package service

import (
	"sync"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/labstack/gommon/random"
)

const (
	EventInvoiceSent     = "invoice.sent"
	EventInvoiceVoided   = "invoice.voided"
	EventInvoicePaid     = "invoice.paid"
	EventInvoiceSynced   = "invoice.synced"
	EventInvoiceSyncErr  = "invoice.sync_error"
	EventPaymentReceived = "payment.received"
	EventLateFeeApplied  = "late_fee.applied"
	EventReminderSent    = "reminder.sent"
)

// InvoiceEvent is what flows to the webhook poster and the RabbitMQ
// publisher when an invoice's financial state changes.
type InvoiceEvent struct {
	Type    string          `json:"type"`
	OrgID   int64           `json:"org_id"`
	Invoice *models.Invoice `json:"invoice"`
	Payment *models.Payment `json:"payment,omitempty"`
}

type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan InvoiceEvent
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan InvoiceEvent)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan InvoiceEvent) (subId string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan InvoiceEvent)
	}
	subId = random.String(32, random.Alphanumeric)
	ps.subs[topic][subId] = ch
	return subId
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

func (ps *Pubsub) Publish(topic string, event InvoiceEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subs[topic] == nil {
		return
	}

	for _, ch := range ps.subs[topic] {
		ch <- event
	}
}
