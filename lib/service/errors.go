package service

import (
	"errors"
	"fmt"
)

// Error taxonomy for all billing operations. Controllers map these onto
// HTTP responses, the sync queue uses ProviderError.Transient to decide
// whether an attempt may be retried.

// ValidationError : illegal state transition, missing required field or a
// write to a locked resource. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError : failure talking to the payment provider or the
// accounting system. Transient errors (network, timeout, 5xx) may be
// retried by the sync queue's backoff policy.
type ProviderError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AmountMismatchError : a provider event amount does not correspond to any
// open intent. Recorded and surfaced for manual review, never
// auto-corrected.
type AmountMismatchError struct {
	InvoiceID         int64
	ProviderPaymentID string
	EventAmountCents  int64
	IntentAmountCents int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount mismatch invoice_id:%d provider_payment_id:%s got:%d want:%d",
		e.InvoiceID, e.ProviderPaymentID, e.EventAmountCents, e.IntentAmountCents)
}

// AlreadyReconciledError : duplicate delivery of an event that was fully
// processed before. An idempotent no-op, not a failure for the caller.
type AlreadyReconciledError struct {
	Provider          string
	ProviderPaymentID string
}

func (e *AlreadyReconciledError) Error() string {
	return fmt.Sprintf("event already reconciled provider:%s provider_payment_id:%s", e.Provider, e.ProviderPaymentID)
}

// DuplicateApplicationError : a late fee application for this period
// already exists. Idempotent no-op.
type DuplicateApplicationError struct {
	InvoiceID         int64
	RuleID            int64
	ApplicationNumber int
}

func (e *DuplicateApplicationError) Error() string {
	return fmt.Sprintf("late fee already applied invoice_id:%d rule_id:%d application:%d",
		e.InvoiceID, e.RuleID, e.ApplicationNumber)
}

// ConflictError : optimistic version check failed because of a concurrent
// writer. The caller should refetch and retry the whole operation.
type ConflictError struct {
	Resource string
	ID       int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on %s id:%d", e.Resource, e.ID)
}

// IsReconcileNoop reports whether err means the event was already fully
// handled, an outcome callers treat as success.
func IsReconcileNoop(err error) bool {
	var are *AlreadyReconciledError
	return errors.As(err, &are)
}

// IsTransient reports whether err is a provider failure the sync queue is
// allowed to retry.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}
