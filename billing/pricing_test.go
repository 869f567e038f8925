package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/rental-ledger/billing"
)

func testRates() billing.RateTable {
	return billing.RateTable{
		P1: billing.NewMoney(100),
		P2: billing.NewMoney(150),
		P3: billing.NewMoney(200),
		P4: billing.NewMoney(220),
	}
}

func TestPriceStay_ThreeNightsTwoGuests(t *testing.T) {
	// GIVEN: 2024-06-01 to 2024-06-04, 2 guests, 30% deposit
	// THEN: 3 nights at 150 = 450 total, 135 deposit

	quote := billing.PriceStay(
		billing.NewDate(2024, time.June, 1),
		billing.NewDate(2024, time.June, 4),
		2, testRates(), billing.NewMoney(30),
	)

	assert.Equal(t, 3, quote.Nights)
	assert.True(t, quote.Total.Equal(billing.NewMoney(450)))
	assert.True(t, quote.Deposit.Equal(billing.NewMoney(135)))
}

func TestPriceStay_LargeGroupUsesTopTier(t *testing.T) {
	// GIVEN: 6 guests (table has no tier beyond 4)
	// THEN: P4 applies; not an error

	quote := billing.PriceStay(
		billing.NewDate(2024, time.June, 1),
		billing.NewDate(2024, time.June, 3),
		6, testRates(), billing.NewMoney(30),
	)

	assert.True(t, quote.Total.Equal(billing.NewMoney(440)))
}

func TestPriceStay_TierPerGuestCount(t *testing.T) {
	start := billing.NewDate(2024, time.June, 1)
	end := billing.NewDate(2024, time.June, 2)

	cases := []struct {
		guests int
		rate   float64
	}{
		{1, 100}, {2, 150}, {3, 200}, {4, 220}, {9, 220},
	}
	for _, tc := range cases {
		quote := billing.PriceStay(start, end, tc.guests, testRates(), billing.NewMoney(30))
		assert.True(t, quote.Total.Equal(billing.NewMoney(tc.rate)),
			"guests=%d should price at %v", tc.guests, tc.rate)
	}
}

func TestPriceStay_NonPositiveNights_ZeroTotal(t *testing.T) {
	// Same-day and inverted ranges suggest nothing; callers must reject them.
	quote := billing.PriceStay(
		billing.NewDate(2024, time.June, 4),
		billing.NewDate(2024, time.June, 4),
		2, testRates(), billing.NewMoney(30),
	)
	assert.Equal(t, 0, quote.Nights)
	assert.True(t, quote.Total.IsZero())
	assert.True(t, quote.Deposit.IsZero())

	quote = billing.PriceStay(
		billing.NewDate(2024, time.June, 4),
		billing.NewDate(2024, time.June, 1),
		2, testRates(), billing.NewMoney(30),
	)
	assert.True(t, quote.Total.IsZero())
}

func TestPriceStay_DepositRounds(t *testing.T) {
	// 1 night at 150, 33% => 49.5 rounds to 50
	quote := billing.PriceStay(
		billing.NewDate(2024, time.June, 1),
		billing.NewDate(2024, time.June, 2),
		2, testRates(), billing.NewMoney(33),
	)
	assert.True(t, quote.Deposit.Equal(billing.NewMoney(50)))
}
