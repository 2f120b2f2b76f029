package common

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSaved   = "saved"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
	// InvoiceStatusOverdue is a derived display state, never stored.
	InvoiceStatusOverdue = "overdue"

	SyncStatusUnsynced = "unsynced"
	SyncStatusPending  = "pending"
	SyncStatusSynced   = "synced"
	SyncStatusError    = "error"

	SyncResultSuccess = "success"
	SyncResultError   = "error"

	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	// An event arrived whose amount disagrees with its intent. The row is
	// kept for operator review and never credits the invoice.
	PaymentStatusNeedsReview = "needs_review"

	PaymentProviderManual = "manual"

	PaymentMethodCard  = "card"
	PaymentMethodACH   = "ach"
	PaymentMethodCheck = "check"
	PaymentMethodCash  = "cash"

	IntentStatusRequiresPayment = "requires_payment"
	IntentStatusProcessing      = "processing"
	IntentStatusSucceeded       = "succeeded"
	IntentStatusCanceled        = "canceled"
	IntentStatusExpired         = "expired"

	LateFeeStrategyFixed   = "fixed"
	LateFeeStrategyPercent = "percent"

	ReminderChannelEmail = "email"
	ReminderChannelSMS   = "sms"

	DeliveryStatusSent      = "sent"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusClicked   = "clicked"
	DeliveryStatusFailed    = "failed"

	DrawStatusPending  = "pending"
	DrawStatusInvoiced = "invoiced"
	DrawStatusPartial  = "partial"
	DrawStatusPaid     = "paid"

	RetainageStatusHeld     = "held"
	RetainageStatusReleased = "released"
	RetainageStatusInvoiced = "invoiced"
	RetainageStatusPaid     = "paid"

	BudgetStatusOpen   = "open"
	BudgetStatusLocked = "locked"

	LineKindItem              = "item"
	LineKindLateFee           = "late_fee"
	LineKindRetainageWithheld = "retainage_withheld"
	LineKindRetainageRelease  = "retainage_release"
)
