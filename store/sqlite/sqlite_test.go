package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-ledger/billing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPayment(amount float64) billing.Payment {
	return billing.Payment{
		ID:     "p-1",
		Amount: billing.NewMoney(amount),
		Date:   billing.NewDate(2024, time.February, 1),
		Payer:  "Alice",
		Method: billing.MethodTransfer,
		Note:   "february rent",
	}
}

func testContract() billing.Contract {
	c := billing.Contract{
		ID:          "c-1",
		UnitID:      "u-1",
		Tenant:      "Alice",
		StartDate:   billing.NewDate(2024, time.January, 15),
		EndDate:     billing.NewDate(2024, time.March, 15),
		MonthlyRent: billing.NewMoney(1000),
		Charges:     billing.ChargeSet{Internet: billing.NewMoney(50)},
		Deposit: billing.Deposit{
			Amount:   billing.NewMoney(1000),
			Payments: []billing.Payment{testPayment(500)},
		},
	}
	c.Deposit.Refresh()
	return c
}

func testInvoice(id billing.InvoiceID, period billing.Period) billing.Invoice {
	inv := billing.Invoice{
		ID:         id,
		ContractID: "c-1",
		UnitID:     "u-1",
		Tenant:     "Alice",
		Period:     period,
		DueDate:    billing.NewDate(2024, time.January, 15),
		BaseRent:   billing.NewMoney(1000),
		Charges:    billing.ChargeSet{Internet: billing.NewMoney(50)},
		Total:      billing.NewMoney(1050),
		Payments:   []billing.Payment{testPayment(400)},
	}
	inv.Refresh()
	return inv
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestSQLite_ContractRoundTrip(t *testing.T) {
	// GIVEN: A contract with charges and a partially paid deposit
	// WHEN: Writing and reading it back
	// THEN: Every field survives, including the deposit's payment list
	//       and derived balance/status

	store := newTestStore(t)
	ctx := context.Background()
	c := testContract()

	require.NoError(t, store.Apply(ctx, billing.Batch{PutContracts: []billing.Contract{c}}))

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Tenant, got.Tenant)
	assert.Equal(t, c.StartDate, got.StartDate)
	assert.Equal(t, c.EndDate, got.EndDate)
	assert.True(t, got.MonthlyRent.Equal(c.MonthlyRent))
	assert.True(t, got.Charges.Internet.Equal(c.Charges.Internet))
	assert.True(t, got.Deposit.Amount.Equal(billing.NewMoney(1000)))
	assert.True(t, got.Deposit.Balance.Equal(billing.NewMoney(500)))
	assert.Equal(t, billing.StatusPartial, got.Deposit.Status)
	require.Len(t, got.Deposit.Payments, 1)
	assert.True(t, got.Deposit.Payments[0].Amount.Equal(billing.NewMoney(500)))
	assert.Equal(t, "Alice", got.Deposit.Payments[0].Payer)
}

func TestSQLite_InvoiceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inv := testInvoice("i-1", "2024-01")
	inv.ReminderSent = true

	require.NoError(t, store.Apply(ctx, billing.Batch{PutInvoices: []billing.Invoice{inv}}))

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, billing.Period("2024-01"), got.Period)
	assert.Equal(t, inv.DueDate, got.DueDate)
	assert.True(t, got.Total.Equal(billing.NewMoney(1050)))
	assert.True(t, got.Balance.Equal(billing.NewMoney(650)))
	assert.Equal(t, billing.StatusPartial, got.Status)
	assert.True(t, got.ReminderSent)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, billing.MethodTransfer, got.Payments[0].Method)
}

func TestSQLite_BookingRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := billing.Booking{
		ID:        "b-1",
		UnitID:    "u-2",
		Guest:     "Carol",
		StartDate: billing.NewDate(2024, time.June, 1),
		EndDate:   billing.NewDate(2024, time.June, 4),
		Guests:    2,
		Total:     billing.NewMoney(450),
		Deposit:   billing.NewMoney(135),
	}
	b.Refresh()

	require.NoError(t, store.Apply(ctx, billing.Batch{PutBookings: []billing.Booking{b}}))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.Guest)
	assert.Equal(t, 2, got.Guests)
	assert.True(t, got.Total.Equal(billing.NewMoney(450)))
	assert.True(t, got.Deposit.Equal(billing.NewMoney(135)))
	assert.Equal(t, billing.StatusPending, got.Status)
	assert.Empty(t, got.Payments)
}

func TestSQLite_SettingsSingleton(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetSettings(ctx)
	assert.ErrorIs(t, err, billing.ErrSettingsNotFound)

	settings := billing.DefaultSettings()
	require.NoError(t, store.Apply(ctx, billing.Batch{PutSettings: &settings}))

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.NightlyRates.P2.Equal(billing.NewMoney(150)))
	assert.True(t, got.BookingDepositPercent.Equal(billing.NewMoney(30)))

	// Saving again replaces the single record, never adds a second one.
	settings.BookingDepositPercent = billing.NewMoney(50)
	require.NoError(t, store.Apply(ctx, billing.Batch{PutSettings: &settings}))

	got, err = store.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.BookingDepositPercent.Equal(billing.NewMoney(50)))
}

// =============================================================================
// NOT FOUND
// =============================================================================

func TestSQLite_MissingRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetUnit(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrUnitNotFound)

	_, err = store.GetContract(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrContractNotFound)

	_, err = store.GetInvoice(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrInvoiceNotFound)

	_, err = store.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrBookingNotFound)
}

// =============================================================================
// UPSERT AND DELETE
// =============================================================================

func TestSQLite_PutReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := testInvoice("i-1", "2024-01")
	require.NoError(t, store.Apply(ctx, billing.Batch{PutInvoices: []billing.Invoice{inv}}))

	inv.Payments = append(inv.Payments, billing.Payment{
		ID: "p-2", Amount: billing.NewMoney(650),
		Date: billing.NewDate(2024, time.February, 2), Method: billing.MethodCash,
	})
	inv.Refresh()
	require.NoError(t, store.Apply(ctx, billing.Batch{PutInvoices: []billing.Invoice{inv}}))

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, 2)
	assert.Equal(t, billing.StatusPaid, got.Status)

	all, err := store.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_CrossCollectionBatch(t *testing.T) {
	// One batch writes a contract and deletes one of its invoices; both
	// effects must be visible together.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, billing.Batch{
		PutContracts: []billing.Contract{testContract()},
		PutInvoices: []billing.Invoice{
			testInvoice("i-1", "2024-01"),
			testInvoice("i-2", "2024-02"),
		},
	}))

	require.NoError(t, store.Apply(ctx, billing.Batch{
		DeleteContracts: []billing.ContractID{"c-1"},
		DeleteInvoices:  []billing.InvoiceID{"i-1", "i-2"},
	}))

	_, err := store.GetContract(ctx, "c-1")
	assert.ErrorIs(t, err, billing.ErrContractNotFound)
	invoices, err := store.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

// =============================================================================
// ATOMICITY
// =============================================================================

func TestSQLite_FailedBatchRollsBackEverything(t *testing.T) {
	// GIVEN: A batch whose second invoice violates the one-invoice-per-
	//        (contract, month) constraint
	// WHEN: Applying it
	// THEN: The error wraps ErrBatchFailed and NOTHING from the batch is
	//       visible afterwards, including the earlier puts

	store := newTestStore(t)
	ctx := context.Background()

	conflicting := testInvoice("i-other-id", "2024-01") // same contract+period as i-1
	err := store.Apply(ctx, billing.Batch{
		PutContracts: []billing.Contract{testContract()},
		PutInvoices: []billing.Invoice{
			testInvoice("i-1", "2024-01"),
			conflicting,
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrBatchFailed)

	_, err = store.GetContract(ctx, "c-1")
	assert.ErrorIs(t, err, billing.ErrContractNotFound)
	invoices, err := store.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

// =============================================================================
// ORDERING
// =============================================================================

func TestSQLite_InvoicesOrderedByPeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, billing.Batch{
		PutInvoices: []billing.Invoice{
			testInvoice("i-3", "2024-03"),
			testInvoice("i-1", "2024-01"),
			testInvoice("i-2", "2024-02"),
		},
	}))

	invoices, err := store.InvoicesByContract(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	assert.Equal(t, billing.Period("2024-01"), invoices[0].Period)
	assert.Equal(t, billing.Period("2024-02"), invoices[1].Period)
	assert.Equal(t, billing.Period("2024-03"), invoices[2].Period)
}
