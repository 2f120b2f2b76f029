package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// StartWebhookSubscription forwards every billing event to the configured
// webhook url. Delivery is best effort; consumers that need guarantees
// should use the RabbitMQ exchanges instead.
func (svc *BillingService) StartWebhookSubscription(ctx context.Context) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", svc.Config.WebhookUrl)
	events := make(chan InvoiceEvent)
	subIds := make(map[string]string)
	for _, topic := range allEventTopics() {
		subIds[topic] = svc.InvoicePubSub.Subscribe(topic, events)
	}
	defer func() {
		for topic, id := range subIds {
			svc.InvoicePubSub.Unsubscribe(id, topic)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			svc.postToWebhook(event)
		}
	}
}

func (svc *BillingService) postToWebhook(event InvoiceEvent) {
	payload := new(bytes.Buffer)
	err := json.NewEncoder(payload).Encode(event)
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	resp, err := http.Post(svc.Config.WebhookUrl, "application/json", payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}

func allEventTopics() []string {
	return []string{
		EventInvoiceSent,
		EventInvoiceVoided,
		EventInvoicePaid,
		EventInvoiceSynced,
		EventInvoiceSyncErr,
		EventPaymentReceived,
		EventLateFeeApplied,
		EventReminderSent,
	}
}
