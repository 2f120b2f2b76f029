package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/getbuildcamp/billinghub/provider"
	"github.com/getbuildcamp/billinghub/rabbitmq"
)

// StartRabbitMqPublisher bridges the in-process pubsub onto the RabbitMQ
// exchanges so downstream consumers (notification senders, analytics) get
// every billing event.
func (svc *BillingService) StartRabbitMqPublisher(ctx context.Context) error {
	return svc.RabbitMQClient.StartPublishEvents(ctx, svc.subscribeAllEvents, svc.encodeEvent)
}

func (svc *BillingService) subscribeAllEvents() (chan rabbitmq.Event, error) {
	in := make(chan InvoiceEvent)
	for _, topic := range allEventTopics() {
		svc.InvoicePubSub.Subscribe(topic, in)
	}
	out := make(chan rabbitmq.Event)
	go func() {
		for event := range in {
			out <- rabbitmq.Event{
				Type:    event.Type,
				OrgID:   event.OrgID,
				Invoice: event.Invoice,
				Payment: event.Payment,
			}
		}
	}()
	return out, nil
}

func (svc *BillingService) encodeEvent(ctx context.Context, w io.Writer, event rabbitmq.Event) error {
	return json.NewEncoder(w).Encode(event)
}

// StartProviderEventConsumer reconciles payment provider events arriving
// over AMQP instead of HTTP webhooks. Both intakes funnel into
// ReconcileProviderEvent, so an event delivered on both paths still
// credits the invoice once.
func (svc *BillingService) StartProviderEventConsumer(ctx context.Context, client rabbitmq.AMQPClient) error {
	deliveries, err := client.Listen(ctx,
		svc.Config.RabbitMQProviderExchange,
		"provider.payment.#",
		svc.Config.RabbitMQProviderQueue,
	)
	if err != nil {
		return err
	}

	svc.Logger.Info("Starting provider event consumer loop")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("disconnected from RabbitMQ")
			}

			var event provider.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				svc.Logger.Error(err)
				// badly formatted events are dropped, requeueing them
				// cannot make them parseable
				if err = delivery.Nack(false, false); err != nil {
					svc.Logger.Error(err)
				}
				continue
			}

			if _, err := svc.ReconcileProviderEvent(ctx, &event); err != nil {
				if IsReconcileNoop(err) {
					if err = delivery.Ack(false); err != nil {
						svc.Logger.Error(err)
					}
					continue
				}
				svc.Logger.Error(err)
				// we don't requeue here either, a poisoned event would
				// loop forever and put pressure on the database
				if err = delivery.Nack(false, false); err != nil {
					svc.Logger.Error(err)
				}
				continue
			}

			if err = delivery.Ack(false); err != nil {
				svc.Logger.Error(err)
			}
		}
	}
}
