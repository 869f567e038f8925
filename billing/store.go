/*
store.go - Persistence interface for the billing collections

PURPOSE:
  Defines the interface between the billing engine and the database.
  Records are whole snapshots (a contract carries its deposit payments, an
  invoice its payment list); the store never sees partial ledger states.

COLLECTIONS:
  units (static), contracts, invoices, bookings, settings (singleton).

ATOMIC BATCHES:
  All writes go through Apply(ctx, Batch). A batch is applied atomically:
  either every put/delete lands or none does. This is what keeps a contract
  and its invoice set consistent under edits - readers never observe new
  contract dates with an old invoice schedule.

  Single-record writes are one-op batches; there is no separate Put/Delete
  on the interface.

IMPLEMENTATIONS:
  - store/memory: In-memory, batch under one write lock (testing/dev)
  - store/sqlite: SQLite with the batch inside one SQL transaction
*/
package billing

import "context"

// =============================================================================
// STORE - Interface for record persistence
// =============================================================================

// Store handles persistence of the billing collections. Reads return copies;
// mutating a returned record does not touch the store.
type Store interface {
	ListUnits(ctx context.Context) ([]Unit, error)
	GetUnit(ctx context.Context, id UnitID) (*Unit, error)

	ListContracts(ctx context.Context) ([]Contract, error)
	GetContract(ctx context.Context, id ContractID) (*Contract, error)

	ListInvoices(ctx context.Context) ([]Invoice, error)
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	// InvoicesByContract returns a contract's invoices ordered by period.
	InvoicesByContract(ctx context.Context, id ContractID) ([]Invoice, error)

	ListBookings(ctx context.Context) ([]Booking, error)
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	// GetSettings returns the singleton settings record, or
	// ErrSettingsNotFound before it is first seeded.
	GetSettings(ctx context.Context) (*Settings, error)

	// Apply performs all puts and deletes in the batch atomically.
	// On error nothing was written.
	Apply(ctx context.Context, batch Batch) error
}

// =============================================================================
// BATCH - Cross-collection atomic write
// =============================================================================

// Batch is a set of upserts and deletes applied as one unit. Puts are
// upserts keyed by ID; deleting an absent ID is a no-op.
type Batch struct {
	PutUnits     []Unit
	PutContracts []Contract
	PutInvoices  []Invoice
	PutBookings  []Booking
	PutSettings  *Settings

	DeleteContracts []ContractID
	DeleteInvoices  []InvoiceID
	DeleteBookings  []BookingID
}

// Empty reports whether the batch would write nothing.
func (b Batch) Empty() bool {
	return len(b.PutUnits) == 0 && len(b.PutContracts) == 0 &&
		len(b.PutInvoices) == 0 && len(b.PutBookings) == 0 &&
		b.PutSettings == nil && len(b.DeleteContracts) == 0 &&
		len(b.DeleteInvoices) == 0 && len(b.DeleteBookings) == 0
}
