/*
Package billing contains the core bookkeeping engine for rental units.

PURPOSE:
  This package holds the domain model and the reconciliation rules for
  lease contracts, their monthly invoices, security deposits, and
  short-stay bookings. Everything that decides "what is owed and what is
  paid" lives here; persistence and HTTP are thin layers around it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Payment: An immutable, signed ledger entry (negative = credit note)
  - Contract: A lease with an embedded deposit sub-ledger
  - Invoice: One billing month of a contract
  - Booking: A short stay with its own ledger
  - Settings: Process-wide defaults (charges, nightly rates, deposit %)

DESIGN PRINCIPLES:
  1. Immutability: Payments are never edited or deleted, only offset
     by a compensating negative entry
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Derived state: Balance and Status are always recomputed from the
     payment list, never transitioned by hand

SEE ALSO:
  - ledger.go: Folding a payment list into balance/status
  - schedule.go: Generating the monthly invoice schedule
  - reconcile.go: Keeping invoices consistent with contract edits
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UnitID string
type ContractID string
type InvoiceID string
type BookingID string
type PaymentID string

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Money constructors. All amounts in this package are decimal.Decimal in a
// single implicit currency (multi-currency is out of scope).
func NewMoney(value float64) decimal.Decimal    { return decimal.NewFromFloat(value) }
func NewMoneyFromInt(value int) decimal.Decimal { return decimal.NewFromInt(int64(value)) }

// =============================================================================
// STATUS - Derived from the payment list, never stored transitions
// =============================================================================

type Status string

const (
	StatusPending Status = "pending" // no positive payment yet
	StatusPartial Status = "partial" // some payment, balance still positive
	StatusPaid    Status = "paid"    // balance <= 0 (overshoot allowed)
)

// =============================================================================
// PAYMENT - Append-only ledger entry
// =============================================================================

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
)

// Payment is a signed ledger entry. Positive = payment received,
// negative = credit note / refund. Immutable once appended.
type Payment struct {
	ID     PaymentID
	Amount decimal.Decimal
	Date   Date
	Payer  string
	Method PaymentMethod
	Note   string
}

// IsCreditNote reports whether the entry reduces the paid total.
func (p Payment) IsCreditNote() bool { return p.Amount.IsNegative() }

// =============================================================================
// UNIT - Static reference data
// =============================================================================

type UnitCategory string

const (
	UnitMonthlyApartment  UnitCategory = "monthly_apartment"
	UnitDailyApartment    UnitCategory = "daily_apartment"
	UnitMonthlyCommercial UnitCategory = "monthly_commercial"
)

type Unit struct {
	ID       UnitID
	Name     string
	Category UnitCategory
}

// =============================================================================
// CHARGES - Fixed set of named recurring charges on a contract
// =============================================================================

// ChargeSet is the fixed set of additional monthly charges.
// Each amount is non-negative; zero means the charge does not apply.
type ChargeSet struct {
	Internet  decimal.Decimal
	Furniture decimal.Decimal
	Other     decimal.Decimal
}

func (c ChargeSet) Total() decimal.Decimal {
	return c.Internet.Add(c.Furniture).Add(c.Other)
}

// =============================================================================
// CONTRACT - A lease with an embedded deposit sub-ledger
// =============================================================================

// Deposit is the security-deposit sub-ledger embedded in a contract.
// Structurally identical to an invoice's ledger: target amount, derived
// balance/status, append-only payment list.
type Deposit struct {
	Amount   decimal.Decimal // target; initialized to one month's rent
	Balance  decimal.Decimal
	Status   Status
	Payments []Payment
}

type Contract struct {
	ID          ContractID
	UnitID      UnitID
	Tenant      string
	StartDate   Date // inclusive
	EndDate     Date // inclusive
	MonthlyRent decimal.Decimal
	Charges     ChargeSet

	// Informational: over how many installments the deposit is expected.
	DepositInstallments int

	Deposit Deposit
}

// =============================================================================
// INVOICE - One billing month of a contract
// =============================================================================

type Invoice struct {
	ID         InvoiceID
	ContractID ContractID
	UnitID     UnitID

	// Denormalized from the contract for display; refreshed on every
	// contract update, never a source of truth.
	Tenant string

	Period  Period
	DueDate Date

	BaseRent decimal.Decimal
	Charges  ChargeSet // snapshot effective when generated/last updated
	Total    decimal.Decimal

	Balance  decimal.Decimal
	Status   Status
	Payments []Payment

	ReminderSent bool
}

// =============================================================================
// BOOKING - A short stay
// =============================================================================

type Booking struct {
	ID        BookingID
	UnitID    UnitID
	Guest     string
	StartDate Date
	EndDate   Date
	Guests    int

	Total   decimal.Decimal
	Deposit decimal.Decimal

	Balance  decimal.Decimal
	Status   Status
	Payments []Payment
}

// =============================================================================
// SETTINGS - Singleton process-wide configuration
// =============================================================================

// RateTable maps guest count to a nightly rate. Counts 1-3 map directly;
// 4 or more guests use P4.
type RateTable struct {
	P1 decimal.Decimal
	P2 decimal.Decimal
	P3 decimal.Decimal
	P4 decimal.Decimal
}

// NightlyFor returns the rate tier for a guest count.
func (r RateTable) NightlyFor(guests int) decimal.Decimal {
	switch {
	case guests <= 1:
		return r.P1
	case guests == 2:
		return r.P2
	case guests == 3:
		return r.P3
	default:
		return r.P4
	}
}

// Settings is the singleton configuration record: loaded at startup,
// replaced wholesale on save.
type Settings struct {
	DefaultCharges        ChargeSet
	NightlyRates          RateTable
	BookingDepositPercent decimal.Decimal // e.g. 30 means 30%
}

// DefaultSettings seeds the singleton on first start.
func DefaultSettings() Settings {
	return Settings{
		NightlyRates: RateTable{
			P1: NewMoneyFromInt(100),
			P2: NewMoneyFromInt(150),
			P3: NewMoneyFromInt(200),
			P4: NewMoneyFromInt(220),
		},
		BookingDepositPercent: NewMoneyFromInt(30),
	}
}
