package service

import (
	"context"
	"time"
)

// Background cadence routines. Each routine is optional: a zero interval
// disables it, leaving the cadence to an external scheduler invoking
// billingctl. All three passes are idempotent, so ticker drift or overlap
// with a scheduler run is harmless.

func (svc *BillingService) StartSyncRoutine(ctx context.Context) {
	if svc.Config.SyncInterval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(svc.Config.SyncInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			synced, failed, err := svc.SyncPendingNow(ctx)
			if err != nil {
				svc.Logger.Error(err)
				continue
			}
			if synced > 0 || failed > 0 {
				svc.Logger.Infof("Sync pass done synced:%d failed:%d", synced, failed)
			}
			if _, err = svc.RetryFailedSyncs(ctx); err != nil {
				svc.Logger.Error(err)
			}
		}
	}
}

func (svc *BillingService) StartLateFeeRoutine(ctx context.Context) {
	if svc.Config.LateFeeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(svc.Config.LateFeeInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			applied, err := svc.ApplyLateFees(ctx, time.Now())
			if err != nil {
				svc.Logger.Error(err)
				continue
			}
			if applied > 0 {
				svc.Logger.Infof("Late fee pass applied %d fees", applied)
			}
		}
	}
}

func (svc *BillingService) StartReminderRoutine(ctx context.Context) {
	if svc.Config.ReminderInterval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(svc.Config.ReminderInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := svc.SendDueReminders(ctx, time.Now())
			if err != nil {
				svc.Logger.Error(err)
				continue
			}
			if sent > 0 {
				svc.Logger.Infof("Reminder pass sent %d reminders", sent)
			}
		}
	}
}
