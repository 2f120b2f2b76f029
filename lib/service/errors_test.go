package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	transient := &ProviderError{Op: "push invoice", Transient: true, Err: errors.New("timeout")}
	permanent := &ProviderError{Op: "push invoice", Transient: false, Err: errors.New("bad request")}

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(permanent))
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("sync invoice 42: %w", &ProviderError{Op: "push", Transient: true, Err: errors.New("503")})
	assert.True(t, IsTransient(wrapped))
}

func TestIsReconcileNoop(t *testing.T) {
	dup := &AlreadyReconciledError{Provider: "stripe", ProviderPaymentID: "py_123"}
	assert.True(t, IsReconcileNoop(dup))
	assert.True(t, IsReconcileNoop(fmt.Errorf("webhook: %w", dup)))
	assert.False(t, IsReconcileNoop(errors.New("plain error")))
	assert.False(t, IsReconcileNoop(nil))
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &ProviderError{Op: "create intent", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "create intent")
}
