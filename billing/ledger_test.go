package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/rental-ledger/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func pay(amount float64) billing.Payment {
	return billing.Payment{
		ID:     "p",
		Amount: billing.NewMoney(amount),
		Date:   billing.NewDate(2024, 1, 10),
		Method: billing.MethodCash,
	}
}

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestApplyPayments_EmptyList_Pending(t *testing.T) {
	// GIVEN: A total due and no payments
	// THEN: Nothing paid, full balance, PENDING

	state := billing.ApplyPayments(billing.NewMoney(1000), nil)

	assert.True(t, state.Paid.IsZero())
	assert.True(t, state.Balance.Equal(billing.NewMoney(1000)))
	assert.Equal(t, billing.StatusPending, state.Status)
}

func TestApplyPayments_PartialThenCreditNote_BackToPending(t *testing.T) {
	// GIVEN: An invoice of 1000
	// WHEN: 400 is paid, then a -400 credit note is issued
	// THEN: PARTIAL after the payment, PENDING again after the credit note

	total := billing.NewMoney(1000)

	state := billing.ApplyPayments(total, []billing.Payment{pay(400)})
	assert.True(t, state.Balance.Equal(billing.NewMoney(600)))
	assert.Equal(t, billing.StatusPartial, state.Status)

	state = billing.ApplyPayments(total, []billing.Payment{pay(400), pay(-400)})
	assert.True(t, state.Balance.Equal(billing.NewMoney(1000)))
	assert.Equal(t, billing.StatusPending, state.Status)
}

func TestApplyPayments_CreditRestoresBalance(t *testing.T) {
	// GIVEN: An invoice of 1000 with 400 paid
	// WHEN: A credit note larger than the paid amount is issued
	// THEN: The credit adds back onto the balance (it undoes payments, it
	//       never discounts the total due) and net paid goes non-positive

	state := billing.ApplyPayments(billing.NewMoney(1000), []billing.Payment{pay(400), pay(-500)})

	assert.True(t, state.Paid.Equal(billing.NewMoney(400)))
	assert.True(t, state.Credited.Equal(billing.NewMoney(500)))
	assert.True(t, state.Balance.Equal(billing.NewMoney(1100)))
	assert.Equal(t, billing.StatusPending, state.Status)
}

func TestApplyPayments_FullPayment_Paid(t *testing.T) {
	state := billing.ApplyPayments(billing.NewMoney(500), []billing.Payment{pay(500)})

	assert.True(t, state.Balance.IsZero())
	assert.Equal(t, billing.StatusPaid, state.Status)
}

func TestApplyPayments_Overshoot_StillPaid(t *testing.T) {
	// GIVEN: 1200 paid against a 1000 invoice
	// THEN: Balance goes negative and the status is still PAID

	state := billing.ApplyPayments(billing.NewMoney(1000), []billing.Payment{pay(1200)})

	assert.True(t, state.Balance.IsNegative())
	assert.Equal(t, billing.StatusPaid, state.Status)
}

func TestApplyPayments_OrderIrrelevant(t *testing.T) {
	total := billing.NewMoney(1000)
	a := billing.ApplyPayments(total, []billing.Payment{pay(300), pay(-100), pay(500)})
	b := billing.ApplyPayments(total, []billing.Payment{pay(500), pay(300), pay(-100)})

	assert.True(t, a.Balance.Equal(b.Balance))
	assert.Equal(t, a.Status, b.Status)
}

func TestApplyPayments_PaidIffBalanceNonPositive(t *testing.T) {
	// Property: status = PAID <=> balance <= 0, across a spread of payment mixes.
	cases := [][]billing.Payment{
		nil,
		{pay(1)},
		{pay(999)},
		{pay(1000)},
		{pay(600), pay(400)},
		{pay(600), pay(-600)},
		{pay(1500), pay(-200)},
		{pay(-50)},
	}

	total := billing.NewMoney(1000)
	for _, payments := range cases {
		state := billing.ApplyPayments(total, payments)
		isPaid := state.Status == billing.StatusPaid
		assert.Equal(t, !state.Balance.IsPositive(), isPaid,
			"balance %v should imply paid=%v", state.Balance, !state.Balance.IsPositive())
	}
}

func TestApplyPayments_CreditOnly_NotPartial(t *testing.T) {
	// GIVEN: Only a credit note, no positive payment
	// THEN: Status stays PENDING (partial requires a positive payment)

	state := billing.ApplyPayments(billing.NewMoney(1000), []billing.Payment{pay(-100)})

	assert.True(t, state.Paid.IsZero())
	assert.Equal(t, billing.StatusPending, state.Status)
}
