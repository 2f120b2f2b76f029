package service

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout         int     `envconfig:"DATABASE_TIMEOUT" default:"60"`             // 60 seconds
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	JWTSecret               []byte  `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiry               int     `envconfig:"JWT_EXPIRY" default:"172800"` // in seconds, default 2 days
	AdminToken              string  `envconfig:"ADMIN_TOKEN"`
	Host                    string  `envconfig:"HOST" default:"localhost:3000"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookUrl              string  `envconfig:"WEBHOOK_URL"`

	DefaultCurrency     string `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	DefaultNetTermsDays int    `envconfig:"DEFAULT_NET_TERMS_DAYS" default:"30"`
	IntentExpirySeconds int    `envconfig:"INTENT_EXPIRY" default:"86400"` // 24h
	PaymentLinkMaxUses  int    `envconfig:"PAYMENT_LINK_MAX_USES" default:"3"`
	PaymentLinkExpiry   int    `envconfig:"PAYMENT_LINK_EXPIRY" default:"1209600"` // in seconds, default 14 days

	// Maximum automatic sync attempts per invoice before it is surfaced
	// to the user as requiring a manual resync.
	MaxSyncAttempts int `envconfig:"MAX_SYNC_ATTEMPTS" default:"5"`
	SyncBatchLimit  int `envconfig:"SYNC_BATCH_LIMIT" default:"100"`
	SyncPushTimeout int `envconfig:"SYNC_PUSH_TIMEOUT" default:"30"` // in seconds, per push

	// Background tick intervals in seconds, 0 disables the routine and
	// leaves the cadence to an external scheduler calling billingctl.
	SyncInterval     int `envconfig:"SYNC_INTERVAL" default:"0"`
	LateFeeInterval  int `envconfig:"LATE_FEE_INTERVAL" default:"0"`
	ReminderInterval int `envconfig:"REMINDER_INTERVAL" default:"0"`

	RabbitMQUri              string `envconfig:"RABBITMQ_URI"`
	RabbitMQInvoiceExchange  string `envconfig:"RABBITMQ_INVOICE_EXCHANGE" default:"billinghub_invoice"`
	RabbitMQPaymentExchange  string `envconfig:"RABBITMQ_PAYMENT_EXCHANGE" default:"billinghub_payment"`
	RabbitMQProviderExchange string `envconfig:"RABBITMQ_PROVIDER_EXCHANGE" default:"provider_events"`
	RabbitMQProviderQueue    string `envconfig:"RABBITMQ_PROVIDER_QUEUE" default:"billinghub_provider_consumer"`
}
