package migrations

import (
	"context"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on a fresh db
make sure that when you add/remove columns in subsequent migrations
IfNotExists/IfExists is used, otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.Organization)(nil),
			(*models.User)(nil),
			(*models.Contact)(nil),
			(*models.Project)(nil),
			(*models.Contract)(nil),
			(*models.Invoice)(nil),
			(*models.InvoiceLine)(nil),
			(*models.Payment)(nil),
			(*models.PaymentIntent)(nil),
			(*models.PaymentLink)(nil),
			(*models.LateFeeRule)(nil),
			(*models.LateFeeApplication)(nil),
			(*models.Reminder)(nil),
			(*models.ReminderDelivery)(nil),
			(*models.DrawScheduleEntry)(nil),
			(*models.RetainageEntry)(nil),
			(*models.Budget)(nil),
			(*models.BudgetLine)(nil),
			(*models.SyncHistory)(nil),
		} {
			if _, err := db.NewCreateTable().Model(model).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}
