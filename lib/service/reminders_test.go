package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderDueOnBefore(t *testing.T) {
	due := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	// -3 fires three days before the due date
	assert.True(t, reminderDueOn(-3, due, time.Date(2026, 5, 7, 9, 0, 0, 0, time.UTC)))
	assert.False(t, reminderDueOn(-3, due, time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC)))
	assert.False(t, reminderDueOn(-3, due, time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)))
}

func TestReminderDueOnDueDate(t *testing.T) {
	due := time.Date(2026, 5, 10, 17, 45, 0, 0, time.UTC)
	// offset 0 fires on the due date regardless of time of day
	assert.True(t, reminderDueOn(0, due, time.Date(2026, 5, 10, 0, 1, 0, 0, time.UTC)))
}

func TestReminderDueOnAfter(t *testing.T) {
	due := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, reminderDueOn(7, due, time.Date(2026, 5, 17, 12, 0, 0, 0, time.UTC)))
	assert.False(t, reminderDueOn(7, due, time.Date(2026, 5, 18, 12, 0, 0, 0, time.UTC)))
}

func TestReminderDueOnNoDueDate(t *testing.T) {
	assert.False(t, reminderDueOn(0, time.Time{}, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)))
}
