package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getbuildcamp/billinghub/accounting"
	"github.com/getbuildcamp/billinghub/db"
	"github.com/getbuildcamp/billinghub/lib/logging"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// billingctl runs the periodic billing jobs as one-shot commands so the
// cadence can live in an external scheduler instead of the server process.

var asOfFlag string

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Run billing batch jobs against the configured database",
	Long: `billingctl runs the accounting sync, late fee assessment and payment
reminder jobs once and exits. It reads the same environment variables as the
server, so it can run from cron or a container scheduler next to it.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending invoices to the accounting system and requeue retryable failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		synced, failed, err := svc.SyncPendingNow(ctx)
		if err != nil {
			return err
		}
		requeued, err := svc.RetryFailedSyncs(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("synced=%d failed=%d requeued=%d\n", synced, failed, requeued)
		return nil
	},
}

var lateFeesCmd = &cobra.Command{
	Use:   "latefees",
	Short: "Assess late fees on past-due invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		asOf, err := parseAsOf()
		if err != nil {
			return err
		}
		applied, err := svc.ApplyLateFees(cmd.Context(), asOf)
		if err != nil {
			return err
		}
		fmt.Printf("applied=%d\n", applied)
		return nil
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Deliver payment reminders that are due today",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		asOf, err := parseAsOf()
		if err != nil {
			return err
		}
		sent, err := svc.SendDueReminders(cmd.Context(), asOf)
		if err != nil {
			return err
		}
		fmt.Printf("sent=%d\n", sent)
		return nil
	},
}

func parseAsOf() (time.Time, error) {
	if asOfFlag == "" {
		return time.Now(), nil
	}
	asOf, err := time.Parse("2006-01-02", asOfFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date, use YYYY-MM-DD: %w", err)
	}
	return asOf, nil
}

func buildService() (*service.BillingService, error) {
	c := &service.Config{}
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	logger := logging.Logger(c.LogFilePath)

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("error initializing db connection: %w", err)
	}

	providerCfg, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading payment provider config: %w", err)
	}
	accountingCfg, err := accounting.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading accounting config: %w", err)
	}

	return &service.BillingService{
		Config:           c,
		DB:               dbConn,
		PaymentProvider:  provider.NewRESTClient(providerCfg, logger),
		AccountingClient: accounting.NewQboClient(accountingCfg, logger),
		Logger:           logger,
		InvoicePubSub:    service.NewPubsub(),
	}, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&asOfFlag, "as-of", "", "Run as of this date (YYYY-MM-DD, default: today)")
	rootCmd.AddCommand(syncCmd, lateFeesCmd, remindersCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
