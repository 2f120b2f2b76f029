package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getbuildcamp/billinghub/accounting"
	"github.com/getbuildcamp/billinghub/db"
	"github.com/getbuildcamp/billinghub/db/migrations"
	"github.com/getbuildcamp/billinghub/lib/logging"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getbuildcamp/billinghub/lib/tokens"
	"github.com/getbuildcamp/billinghub/lib/transport"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/getbuildcamp/billinghub/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun/migrate"
)

func main() {

	c := &service.Config{}

	// Load configuration from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}
	// Init the payment provider client
	providerCfg, err := provider.LoadConfig()
	if err != nil {
		logger.Fatalf("Error loading payment provider config: %v", err)
	}
	providerClient := provider.NewRESTClient(providerCfg, logger)
	logger.Infof("Using payment provider: %s", providerClient.Name())

	// Init the accounting client
	accountingCfg, err := accounting.LoadConfig()
	if err != nil {
		logger.Fatalf("Error loading accounting config: %v", err)
	}
	accountingClient := accounting.NewQboClient(accountingCfg, logger)

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var rabbitmqClient rabbitmq.Client
	var amqpConsumer rabbitmq.AMQPClient
	if c.RabbitMQUri != "" {
		rabbitmqClient, err = rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
			rabbitmq.WithPaymentExchange(c.RabbitMQPaymentExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}
		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()

		// consumers use a separate connection so they are isolated from
		// flow control applied to the publishing connection
		amqpConsumer, err = rabbitmq.DialAMQP(c.RabbitMQUri)
		if err != nil {
			logger.Fatal(err)
		}
		defer amqpConsumer.Close()
	}

	svc := &service.BillingService{
		Config:           c,
		DB:               dbConn,
		PaymentProvider:  providerClient,
		AccountingClient: accountingClient,
		Logger:           logger,
		InvoicePubSub:    service.NewPubsub(),
		RabbitMQClient:   rabbitmqClient,
	}

	//init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for requests that move money
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterEndpoints(svc, e, secured, securedWithStrictRateLimit, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(c.AdminToken), logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Push pending invoices to the accounting system in the background
	if c.SyncInterval > 0 {
		backgroundWg.Add(1)
		go func() {
			svc.StartSyncRoutine(backGroundCtx)
			svc.Logger.Info("Sync routine done")
			backgroundWg.Done()
		}()
	}

	// Assess late fees on past-due invoices
	if c.LateFeeInterval > 0 {
		backgroundWg.Add(1)
		go func() {
			svc.StartLateFeeRoutine(backGroundCtx)
			svc.Logger.Info("Late fee routine done")
			backgroundWg.Done()
		}()
	}

	// Deliver scheduled payment reminders
	if c.ReminderInterval > 0 {
		backgroundWg.Add(1)
		go func() {
			svc.StartReminderRoutine(backGroundCtx)
			svc.Logger.Info("Reminder routine done")
			backgroundWg.Done()
		}()
	}

	//Start webhook subscription
	if svc.Config.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	//Start rabbit publisher and provider event consumer
	if svc.RabbitMQClient != nil {
		backgroundWg.Add(1)
		go func() {
			err = svc.StartRabbitMqPublisher(backGroundCtx)
			if err != nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit event publisher done")
			backgroundWg.Done()
		}()

		backgroundWg.Add(1)
		go func() {
			err = svc.StartProviderEventConsumer(backGroundCtx, amqpConsumer)
			if err != nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Provider event consumer done")
			backgroundWg.Done()
		}()
	}

	//Start Prometheus server if necessary
	if svc.Config.EnablePrometheus {
		go transport.StartPrometheusEcho(logger, svc, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("BillingHub exiting gracefully. Goodbye.")
}
