/*
ledger.go - Folding a payment list into balance and status

PURPOSE:
  The money ledger is the single rule that turns a payment history into a
  paid total, a remaining balance, and a status. Invoices, deposits, and
  bookings all share it; none of them carries a hand-maintained status.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Payment lists grow, entries are never edited or removed
  2. DERIVED: Balance and status are recomputed on every mutation
  3. ORDER-IRRELEVANT: The fold is a sum; payment order does not matter

CORRECTIONS:
  A mistaken payment is not deleted. A compensating negative entry (credit
  note) is appended instead, so the history always explains the balance.

OVERSHOOT:
  Paying more than the total due is allowed: balance goes negative and the
  status is still PAID. Callers must not assume balance >= 0.
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// LEDGER STATE - Result of folding payments against a total due
// =============================================================================

// LedgerState is the derived financial state of an invoice, a deposit, or a
// booking.
type LedgerState struct {
	Paid     decimal.Decimal // sum of positive entries
	Credited decimal.Decimal // sum of |negative| entries
	Balance  decimal.Decimal // totalDue - paid + credited
	Status   Status
}

// ApplyPayments folds a payment list against a total due. Pure; no error
// conditions. A credit note adds back to the balance: it undoes prior
// payments, it does not discount the total due.
//
//	status = PAID    if balance <= 0
//	         PARTIAL if net paid (paid - credited) is positive
//	         PENDING otherwise
func ApplyPayments(totalDue decimal.Decimal, payments []Payment) LedgerState {
	paid := decimal.Zero
	credited := decimal.Zero
	for _, p := range payments {
		if p.IsCreditNote() {
			credited = credited.Add(p.Amount.Neg())
		} else {
			paid = paid.Add(p.Amount)
		}
	}

	balance := totalDue.Sub(paid).Add(credited)

	status := StatusPending
	switch {
	case balance.LessThanOrEqual(decimal.Zero):
		status = StatusPaid
	case paid.Sub(credited).IsPositive():
		status = StatusPartial
	}

	return LedgerState{Paid: paid, Credited: credited, Balance: balance, Status: status}
}

// Refresh recomputes an invoice's balance and status from its own payments.
func (inv *Invoice) Refresh() {
	state := ApplyPayments(inv.Total, inv.Payments)
	inv.Balance = state.Balance
	inv.Status = state.Status
}

// Refresh recomputes the deposit sub-ledger from its payments.
func (d *Deposit) Refresh() {
	state := ApplyPayments(d.Amount, d.Payments)
	d.Balance = state.Balance
	d.Status = state.Status
}

// Refresh recomputes a booking's balance and status from its payments.
func (b *Booking) Refresh() {
	state := ApplyPayments(b.Total, b.Payments)
	b.Balance = state.Balance
	b.Status = state.Status
}
