// Package memory provides an in-memory billing.Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rental-ledger/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	units     map[billing.UnitID]billing.Unit
	contracts map[billing.ContractID]billing.Contract
	invoices  map[billing.InvoiceID]billing.Invoice
	bookings  map[billing.BookingID]billing.Booking
	settings  *billing.Settings

	// FailNextApply makes the next Apply fail without writing anything.
	// Test hook for batch-atomicity behavior.
	FailNextApply error
}

func New() *Store {
	return &Store{
		units:     make(map[billing.UnitID]billing.Unit),
		contracts: make(map[billing.ContractID]billing.Contract),
		invoices:  make(map[billing.InvoiceID]billing.Invoice),
		bookings:  make(map[billing.BookingID]billing.Booking),
	}
}

var _ billing.Store = (*Store)(nil)

// =============================================================================
// READS - All return copies; callers can mutate freely
// =============================================================================

func (s *Store) ListUnits(_ context.Context) ([]billing.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]billing.Unit, 0, len(s.units))
	for _, u := range s.units {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetUnit(_ context.Context, id billing.UnitID) (*billing.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, billing.ErrUnitNotFound
	}
	return &u, nil
}

func (s *Store) ListContracts(_ context.Context) ([]billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]billing.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		result = append(result, copyContract(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetContract(_ context.Context, id billing.ContractID) (*billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, billing.ErrContractNotFound
	}
	c = copyContract(c)
	return &c, nil
}

func (s *Store) ListInvoices(_ context.Context) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]billing.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		result = append(result, copyInvoice(inv))
	}
	sortInvoices(result)
	return result, nil
}

func (s *Store) GetInvoice(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, billing.ErrInvoiceNotFound
	}
	inv = copyInvoice(inv)
	return &inv, nil
}

func (s *Store) InvoicesByContract(_ context.Context, id billing.ContractID) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []billing.Invoice
	for _, inv := range s.invoices {
		if inv.ContractID == id {
			result = append(result, copyInvoice(inv))
		}
	}
	sortInvoices(result)
	return result, nil
}

func (s *Store) ListBookings(_ context.Context) ([]billing.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]billing.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		result = append(result, copyBooking(b))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetBooking(_ context.Context, id billing.BookingID) (*billing.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, billing.ErrBookingNotFound
	}
	b = copyBooking(b)
	return &b, nil
}

func (s *Store) GetSettings(_ context.Context) (*billing.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, billing.ErrSettingsNotFound
	}
	settings := *s.settings
	return &settings, nil
}

// =============================================================================
// APPLY - Atomic batch under one write lock
// =============================================================================

// Apply performs the batch atomically. For the memory store the whole batch
// runs under one write lock, so readers only ever see it fully applied.
func (s *Store) Apply(_ context.Context, batch billing.Batch) error {
	if batch.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailNextApply; err != nil {
		s.FailNextApply = nil
		return err
	}

	for _, u := range batch.PutUnits {
		s.units[u.ID] = u
	}
	for _, c := range batch.PutContracts {
		s.contracts[c.ID] = copyContract(c)
	}
	for _, inv := range batch.PutInvoices {
		s.invoices[inv.ID] = copyInvoice(inv)
	}
	for _, b := range batch.PutBookings {
		s.bookings[b.ID] = copyBooking(b)
	}
	if batch.PutSettings != nil {
		settings := *batch.PutSettings
		s.settings = &settings
	}
	for _, id := range batch.DeleteContracts {
		delete(s.contracts, id)
	}
	for _, id := range batch.DeleteInvoices {
		delete(s.invoices, id)
	}
	for _, id := range batch.DeleteBookings {
		delete(s.bookings, id)
	}
	return nil
}

// =============================================================================
// COPY HELPERS - Records own their payment slices
// =============================================================================

func copyPayments(payments []billing.Payment) []billing.Payment {
	if payments == nil {
		return nil
	}
	result := make([]billing.Payment, len(payments))
	copy(result, payments)
	return result
}

func copyContract(c billing.Contract) billing.Contract {
	c.Deposit.Payments = copyPayments(c.Deposit.Payments)
	return c
}

func copyInvoice(inv billing.Invoice) billing.Invoice {
	inv.Payments = copyPayments(inv.Payments)
	return inv
}

func copyBooking(b billing.Booking) billing.Booking {
	b.Payments = copyPayments(b.Payments)
	return b
}

func sortInvoices(invoices []billing.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].Period != invoices[j].Period {
			return invoices[i].Period.Before(invoices[j].Period)
		}
		return invoices[i].ID < invoices[j].ID
	})
}
