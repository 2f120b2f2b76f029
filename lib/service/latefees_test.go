package service

import (
	"testing"
	"time"

	"github.com/getbuildcamp/billinghub/common"
	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestApplicationNumberNotYetDue(t *testing.T) {
	// due today, any grace
	assert.Equal(t, 0, applicationNumber(day(0), day(0), 0, 0))
	// inside the grace period
	assert.Equal(t, 0, applicationNumber(day(0), day(3), 5, 0))
	// asOf before the due date
	assert.Equal(t, 0, applicationNumber(day(5), day(0), 0, 0))
	// no due date at all
	assert.Equal(t, 0, applicationNumber(time.Time{}, day(10), 0, 0))
}

func TestApplicationNumberSingleCharge(t *testing.T) {
	// one day late, no grace, no repeat
	assert.Equal(t, 1, applicationNumber(day(0), day(1), 0, 0))
	// grace lapsed exactly
	assert.Equal(t, 1, applicationNumber(day(0), day(5), 5, 0))
	// non-repeating rules never charge more than once
	assert.Equal(t, 1, applicationNumber(day(0), day(90), 5, 0))
}

func TestApplicationNumberRepeating(t *testing.T) {
	// 10 days late, grace 5, repeat every 5: first charge at day 5, second at day 10
	assert.Equal(t, 2, applicationNumber(day(0), day(10), 5, 5))
	assert.Equal(t, 1, applicationNumber(day(0), day(9), 5, 5))
	assert.Equal(t, 3, applicationNumber(day(0), day(15), 5, 5))
	// weekly repeat with no grace: first charge on day 1, then every 7 days
	assert.Equal(t, 1, applicationNumber(day(0), day(1), 0, 7))
	assert.Equal(t, 1, applicationNumber(day(0), day(7), 0, 7))
	assert.Equal(t, 2, applicationNumber(day(0), day(8), 0, 7))
	assert.Equal(t, 2, applicationNumber(day(0), day(14), 0, 7))
	assert.Equal(t, 3, applicationNumber(day(0), day(15), 0, 7))
}

func TestApplicationNumberDayGranularity(t *testing.T) {
	due := time.Date(2026, 4, 1, 23, 0, 0, 0, time.UTC)
	asOf := time.Date(2026, 4, 2, 1, 0, 0, 0, time.UTC)
	// two hours apart but on different calendar days counts as one day
	assert.Equal(t, 1, applicationNumber(due, asOf, 0, 0))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, daysBetween(day(0), day(0)))
	assert.Equal(t, 3, daysBetween(day(0), day(3)))
	// reversed order clamps to zero
	assert.Equal(t, 0, daysBetween(day(3), day(0)))
}

func TestDaysBetweenAcrossSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 loses an hour in New York; the calendar-day count must
	// not shrink because of it.
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)
	asOf := time.Date(2024, 3, 11, 0, 0, 0, 0, loc)
	assert.Equal(t, 6, daysBetween(due, asOf))
	assert.Equal(t, 2, applicationNumber(due, asOf, 5, 1))
}

func TestFeeAmountFixed(t *testing.T) {
	rule := &models.LateFeeRule{Strategy: common.LateFeeStrategyFixed, AmountCents: 2500}
	assert.Equal(t, int64(2500), feeAmount(rule, 100000))
	assert.Equal(t, int64(2500), feeAmount(rule, 1))
}

func TestFeeAmountPercent(t *testing.T) {
	rule := &models.LateFeeRule{
		Strategy: common.LateFeeStrategyPercent,
		Percent:  decimal.NewFromFloat(1.5),
	}
	// 1.5% of $1000.00
	assert.Equal(t, int64(1500), feeAmount(rule, 100000))
	// rounds to whole cents
	assert.Equal(t, int64(2), feeAmount(rule, 101))
	// nothing to charge on a zero balance
	assert.Equal(t, int64(0), feeAmount(rule, 0))
}
