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
			-- at most one live intent per invoice, enforced at the database
			-- so concurrent create requests cannot both insert
				CREATE UNIQUE INDEX payment_intents_live_invoice_idx
				ON payment_intents (invoice_id)
				WHERE status IN ('requires_payment', 'processing');
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
