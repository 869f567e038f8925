/*
pricing.go - Suggested pricing for short-stay bookings

PURPOSE:
  Computes a suggested total and deposit for a stay from the nightly rate
  table. These are suggestions only: booking creation accepts caller
  overrides and the pricer enforces nothing.
*/
package billing

import "github.com/shopspring/decimal"

// Quote is the pricer's suggestion for a stay.
type Quote struct {
	Nights  int
	Total   decimal.Decimal
	Deposit decimal.Decimal
}

// PriceStay computes a suggested price for a stay. Pure; no error
// conditions. A non-positive night count yields a zero total; callers must
// reject such a stay rather than persist it.
//
// Guest counts 1-3 map to rate tiers P1-P3; 4 or more use P4.
func PriceStay(start, end Date, guests int, rates RateTable, depositPercent decimal.Decimal) Quote {
	nights := DaysBetween(start, end)
	if nights <= 0 {
		return Quote{Nights: nights, Total: decimal.Zero, Deposit: decimal.Zero}
	}

	total := rates.NightlyFor(guests).Mul(decimal.NewFromInt(int64(nights)))
	deposit := total.Mul(depositPercent).Div(decimal.NewFromInt(100)).Round(0)

	return Quote{Nights: nights, Total: total, Deposit: deposit}
}
