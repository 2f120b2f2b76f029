package service

import (
	"github.com/getbuildcamp/billinghub/accounting"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/getbuildcamp/billinghub/rabbitmq"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

type BillingService struct {
	Config           *Config
	DB               *bun.DB
	PaymentProvider  provider.PaymentProviderWrapper
	AccountingClient accounting.AccountingClientWrapper
	Logger           *lecho.Logger
	InvoicePubSub    *Pubsub
	RabbitMQClient   rabbitmq.Client
}
