package rabbitmq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of heap memory.
// Instead of allocating new memory everytime we need to encode an event we
// reuse buffers from this buffer pool. If we consume events sequentially there will
// only be one buffer in this pool at all times, but when scaling to multiple go
// routines this memory pool will scale with it.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"
)

// Event is the billing event shape published to the exchanges. Invoice
// lifecycle events route to the invoice exchange, payment events to the
// payment exchange, keyed by the dotted event type.
type Event struct {
	Type    string          `json:"type"`
	OrgID   int64           `json:"org_id"`
	Invoice *models.Invoice `json:"invoice"`
	Payment *models.Payment `json:"payment,omitempty"`
}

type (
	SubscribeToEventsFunc = func() (events chan Event, err error)
	EncodeEventFunc       = func(ctx context.Context, w io.Writer, event Event) error
)

type Client interface {
	StartPublishEvents(context.Context, SubscribeToEventsFunc, EncodeEventFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	conn *amqp.Connection

	// It is recommended that, when possible, publishers and consumers
	// use separate connections so that consumers are isolated from potential
	// flow control measures that may be applied to publishing connections.
	publishChannel *amqp.Channel

	logger *lecho.Logger

	invoiceExchange string
	paymentExchange string
}

type ClientOption = func(client *DefaultClient)

func WithInvoiceExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.invoiceExchange = exchange
	}
}

func WithPaymentExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.paymentExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// Dial sets up a connection to rabbitmq with a channel ready to publish
func Dial(uri string, options ...ClientOption) (Client, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}

	publishChannel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	client := &DefaultClient{
		conn: conn,

		publishChannel: publishChannel,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		invoiceExchange: "billinghub_invoice",
		paymentExchange: "billinghub_payment",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.conn.Close() }

func (client *DefaultClient) StartPublishEvents(ctx context.Context, subscribeFunc SubscribeToEventsFunc, payloadFunc EncodeEventFunc) error {
	for _, exchange := range []string{client.invoiceExchange, client.paymentExchange} {
		err := client.publishChannel.ExchangeDeclare(
			exchange,
			// topic is a type of exchange that allows routing messages to different queue's bases on a routing key
			"topic",
			// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
			// declared when there are no remaining bindings.
			true,
			false,
			// Non-Internal exchange's accept direct publishing
			false,
			// Nowait: We set this to false as we want to wait for a server response
			// to check whether the exchange was created succesfully
			false,
			nil,
		)
		if err != nil {
			return err
		}
	}

	client.logger.Info("Starting rabbitmq publisher")

	events, err := subscribeFunc()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case event := <-events:
			if err = client.publishEvent(ctx, event, payloadFunc); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) publishEvent(ctx context.Context, event Event, payloadFunc EncodeEventFunc) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err := payloadFunc(ctx, payload, event)
	if err != nil {
		return err
	}

	exchange := client.invoiceExchange
	if strings.HasPrefix(event.Type, "payment.") {
		exchange = client.paymentExchange
	}
	key := fmt.Sprintf("%s.%d", event.Type, event.OrgID)

	err = client.publishChannel.PublishWithContext(ctx,
		exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		captureErr(client.logger, err)
		return err
	}

	client.logger.Debugf("Successfully published event %s for invoice %d", event.Type, invoiceID(event))

	return nil
}

func invoiceID(event Event) int64 {
	if event.Invoice == nil {
		return 0
	}
	return event.Invoice.ID
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
