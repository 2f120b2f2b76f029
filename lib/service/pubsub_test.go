package service

import (
	"testing"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/stretchr/testify/assert"
)

func TestPubsubDeliversToSubscriber(t *testing.T) {
	ps := NewPubsub()
	ch := make(chan InvoiceEvent, 1)
	ps.Subscribe(EventInvoicePaid, ch)

	ps.Publish(EventInvoicePaid, InvoiceEvent{
		Type:    EventInvoicePaid,
		OrgID:   1,
		Invoice: &models.Invoice{ID: 42},
	})

	event := <-ch
	assert.Equal(t, EventInvoicePaid, event.Type)
	assert.Equal(t, int64(42), event.Invoice.ID)
}

func TestPubsubTopicsAreIsolated(t *testing.T) {
	ps := NewPubsub()
	ch := make(chan InvoiceEvent, 1)
	ps.Subscribe(EventInvoicePaid, ch)

	ps.Publish(EventInvoiceSent, InvoiceEvent{Type: EventInvoiceSent})
	assert.Empty(t, ch)
}

func TestPubsubUnsubscribeClosesChannel(t *testing.T) {
	ps := NewPubsub()
	ch := make(chan InvoiceEvent, 1)
	subID := ps.Subscribe(EventInvoiceSent, ch)

	ps.Unsubscribe(subID, EventInvoiceSent)
	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe is a no-op
	ps.Publish(EventInvoiceSent, InvoiceEvent{Type: EventInvoiceSent})
}

func TestPubsubMultipleSubscribers(t *testing.T) {
	ps := NewPubsub()
	a := make(chan InvoiceEvent, 1)
	b := make(chan InvoiceEvent, 1)
	ps.Subscribe(EventPaymentReceived, a)
	ps.Subscribe(EventPaymentReceived, b)

	ps.Publish(EventPaymentReceived, InvoiceEvent{Type: EventPaymentReceived, OrgID: 9})

	assert.Equal(t, int64(9), (<-a).OrgID)
	assert.Equal(t, int64(9), (<-b).OrgID)
}
