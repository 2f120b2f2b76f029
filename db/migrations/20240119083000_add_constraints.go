package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- one payment row per provider event, the key behind idempotent
			-- webhook reconciliation
				CREATE UNIQUE INDEX payments_provider_payment_id_idx
				ON payments (provider, provider_payment_id)
				WHERE provider_payment_id IS NOT NULL;

				CREATE UNIQUE INDEX payments_idempotency_key_idx
				ON payments (idempotency_key)
				WHERE idempotency_key IS NOT NULL;

			-- at-most-once fee application per overdue period
				CREATE UNIQUE INDEX late_fee_applications_period_idx
				ON late_fee_applications (invoice_id, rule_id, application_number);

			-- at most one reminder delivery per day and channel
				CREATE UNIQUE INDEX reminder_deliveries_day_idx
				ON reminder_deliveries (reminder_id, invoice_id, channel, day);

			-- one draw number per contract
				CREATE UNIQUE INDEX draw_schedule_entries_number_idx
				ON draw_schedule_entries (contract_id, draw_number);

				ALTER TABLE invoices
				ADD CONSTRAINT check_balance_not_negative
				CHECK (balance_due_cents >= 0);
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
