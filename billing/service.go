/*
service.go - The billing facade

PURPOSE:
  The operation surface consumed by the presentation layer. Orchestrates
  the schedule generator, reconciler, money ledger, and pricer against the
  Store. Handlers never touch the store directly.

GUARANTEES:
  - Identifiers are generated here at creation time and never change.
  - Every payment append rewrites the target record with an already
    consistent balance/status; no partial ledger state is ever persisted.
  - Contract writes carry their full invoice delta in one atomic batch.
  - Mutations are serialized per aggregate (a contract with its invoices
    and deposit, or a single booking). The single-writer assumption of the
    storage model is enforced here, not assumed.

ERRORS:
  Validation failures are rejected before any store write. Operating on a
  deleted record reports a not-found error and writes nothing. A failed
  batch leaves previously persisted state untouched.
*/
package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service is the billing facade.
type Service struct {
	store Store
	newID func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates the facade over a store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		newID: uuid.NewString,
		locks: make(map[string]*sync.Mutex),
	}
}

// lock serializes mutations on one aggregate. Returns the unlock func.
func (s *Service) lock(aggregate string) func() {
	s.mu.Lock()
	m, ok := s.locks[aggregate]
	if !ok {
		m = &sync.Mutex{}
		s.locks[aggregate] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// =============================================================================
// INPUTS
// =============================================================================

// ContractInput carries the caller-editable lease terms.
type ContractInput struct {
	UnitID              UnitID
	Tenant              string
	StartDate           Date
	EndDate             Date
	MonthlyRent         decimal.Decimal
	Charges             *ChargeSet // nil: settings defaults on create, unchanged on update
	DepositInstallments int
}

// PaymentInput carries one ledger entry to append. Amount is signed;
// negative records a credit note.
type PaymentInput struct {
	Amount decimal.Decimal
	Date   Date
	Payer  string
	Method PaymentMethod
	Note   string
}

// BookingInput carries a short-stay booking. Total and Deposit override the
// pricer's suggestion when set.
type BookingInput struct {
	UnitID    UnitID
	Guest     string
	StartDate Date
	EndDate   Date
	Guests    int
	Total     *decimal.Decimal
	Deposit   *decimal.Decimal
}

// =============================================================================
// VALIDATION - All rejection happens before any store write
// =============================================================================

func (in ContractInput) validate() error {
	if in.UnitID == "" {
		return invalid("unit_id", "required")
	}
	if in.Tenant == "" {
		return invalid("tenant", "required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return invalid("dates", "start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return ErrInvalidDateRange
	}
	if !in.MonthlyRent.IsPositive() {
		return invalid("monthly_rent", "must be positive")
	}
	if in.Charges != nil {
		for _, c := range []decimal.Decimal{in.Charges.Internet, in.Charges.Furniture, in.Charges.Other} {
			if c.IsNegative() {
				return invalid("charges", "must be non-negative")
			}
		}
	}
	return nil
}

func (in PaymentInput) validate() error {
	if in.Amount.IsZero() {
		return invalid("amount", "must be non-zero")
	}
	if in.Method != MethodCash && in.Method != MethodTransfer {
		return invalid("method", "must be cash or transfer")
	}
	return nil
}

func (in BookingInput) validate() error {
	if in.UnitID == "" {
		return invalid("unit_id", "required")
	}
	if in.Guest == "" {
		return invalid("guest", "required")
	}
	if in.Guests < 1 {
		return invalid("guests", "must be at least 1")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return invalid("dates", "start and end dates are required")
	}
	if in.EndDate.BeforeOrEqual(in.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// =============================================================================
// CONTRACT OPERATIONS
// =============================================================================

// CreateContract persists a new lease and its full invoice schedule as one
// atomic batch. The deposit target is initialized to one month's rent.
func (s *Service) CreateContract(ctx context.Context, in ContractInput) (*Contract, []Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetUnit(ctx, in.UnitID); err != nil {
		return nil, nil, err
	}

	charges := ChargeSet{}
	if in.Charges != nil {
		charges = *in.Charges
	} else if settings, err := s.store.GetSettings(ctx); err == nil {
		charges = settings.DefaultCharges
	}

	contract := Contract{
		ID:                  ContractID(s.newID()),
		UnitID:              in.UnitID,
		Tenant:              in.Tenant,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		MonthlyRent:         in.MonthlyRent,
		Charges:             charges,
		DepositInstallments: in.DepositInstallments,
		Deposit:             Deposit{Amount: in.MonthlyRent},
	}
	contract.Deposit.Refresh()

	invoices := GenerateInvoices(contract)
	for i := range invoices {
		invoices[i].ID = InvoiceID(s.newID())
	}

	batch := Batch{PutContracts: []Contract{contract}, PutInvoices: invoices}
	if err := s.store.Apply(ctx, batch); err != nil {
		return nil, nil, err
	}
	return &contract, invoices, nil
}

// UpdateContract applies edited lease terms and reconciles the invoice set.
// The contract record and the invoice delta land in one atomic batch.
func (s *Service) UpdateContract(ctx context.Context, id ContractID, in ContractInput) (*Contract, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUnit(ctx, in.UnitID); err != nil {
		return nil, err
	}

	unlock := s.lock(string(id))
	defer unlock()

	old, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.InvoicesByContract(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.UnitID = in.UnitID
	updated.Tenant = in.Tenant
	updated.StartDate = in.StartDate
	updated.EndDate = in.EndDate
	updated.MonthlyRent = in.MonthlyRent
	updated.DepositInstallments = in.DepositInstallments
	if in.Charges != nil {
		updated.Charges = *in.Charges
	}

	plan := Reconcile(*old, updated, existing)
	for i := range plan.Create {
		plan.Create[i].ID = InvoiceID(s.newID())
	}

	batch := Batch{
		PutContracts:   []Contract{plan.Contract},
		PutInvoices:    append(plan.Keep, plan.Create...),
		DeleteInvoices: plan.Delete,
	}
	if err := s.store.Apply(ctx, batch); err != nil {
		return nil, err
	}
	return &plan.Contract, nil
}

// DeleteContract removes a lease and cascades to its invoices.
func (s *Service) DeleteContract(ctx context.Context, id ContractID) error {
	unlock := s.lock(string(id))
	defer unlock()

	if _, err := s.store.GetContract(ctx, id); err != nil {
		return err
	}
	invoices, err := s.store.InvoicesByContract(ctx, id)
	if err != nil {
		return err
	}

	batch := Batch{DeleteContracts: []ContractID{id}}
	for _, inv := range invoices {
		batch.DeleteInvoices = append(batch.DeleteInvoices, inv.ID)
	}
	return s.store.Apply(ctx, batch)
}

// =============================================================================
// PAYMENT OPERATIONS
// =============================================================================

func (s *Service) newPayment(in PaymentInput) Payment {
	date := in.Date
	if date.IsZero() {
		date = Today()
	}
	return Payment{
		ID:     PaymentID(s.newID()),
		Amount: in.Amount,
		Date:   date,
		Payer:  in.Payer,
		Method: in.Method,
		Note:   in.Note,
	}
}

// RecordInvoicePayment appends a payment (or credit note) to an invoice and
// persists the invoice with its recomputed balance/status.
func (s *Service) RecordInvoicePayment(ctx context.Context, id InvoiceID, in PaymentInput) (*Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	// The invoice's contract is the aggregate; find it, then re-read under
	// the lock.
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(string(inv.ContractID))
	defer unlock()

	inv, err = s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	inv.Payments = append(inv.Payments, s.newPayment(in))
	inv.Refresh()

	if err := s.store.Apply(ctx, Batch{PutInvoices: []Invoice{*inv}}); err != nil {
		return nil, err
	}
	return inv, nil
}

// RecordDepositPayment appends a payment to a contract's deposit sub-ledger.
func (s *Service) RecordDepositPayment(ctx context.Context, id ContractID, in PaymentInput) (*Contract, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.lock(string(id))
	defer unlock()

	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}

	contract.Deposit.Payments = append(contract.Deposit.Payments, s.newPayment(in))
	contract.Deposit.Refresh()

	if err := s.store.Apply(ctx, Batch{PutContracts: []Contract{*contract}}); err != nil {
		return nil, err
	}
	return contract, nil
}

// RecordBookingPayment appends a payment to a booking.
func (s *Service) RecordBookingPayment(ctx context.Context, id BookingID, in PaymentInput) (*Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.lock(string(id))
	defer unlock()

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	booking.Payments = append(booking.Payments, s.newPayment(in))
	booking.Refresh()

	if err := s.store.Apply(ctx, Batch{PutBookings: []Booking{*booking}}); err != nil {
		return nil, err
	}
	return booking, nil
}

// MarkReminderSent flags an invoice as reminded. Cosmetic; does not touch
// the ledger.
func (s *Service) MarkReminderSent(ctx context.Context, id InvoiceID) error {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	unlock := s.lock(string(inv.ContractID))
	defer unlock()

	inv, err = s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	inv.ReminderSent = true
	return s.store.Apply(ctx, Batch{PutInvoices: []Invoice{*inv}})
}

// =============================================================================
// BOOKING OPERATIONS
// =============================================================================

// QuoteBooking runs the pricer with the current settings.
func (s *Service) QuoteBooking(ctx context.Context, start, end Date, guests int) (Quote, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return Quote{}, err
	}
	return PriceStay(start, end, guests, settings.NightlyRates, settings.BookingDepositPercent), nil
}

// CreateBooking persists a new stay. Total and deposit default to the
// pricer's suggestion unless the input overrides them.
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUnit(ctx, in.UnitID); err != nil {
		return nil, err
	}

	quote, err := s.QuoteBooking(ctx, in.StartDate, in.EndDate, in.Guests)
	if err != nil {
		return nil, err
	}

	total := quote.Total
	if in.Total != nil {
		total = *in.Total
	}
	deposit := quote.Deposit
	if in.Deposit != nil {
		deposit = *in.Deposit
	}
	if !total.IsPositive() {
		return nil, invalid("total", "must be positive")
	}

	booking := Booking{
		ID:        BookingID(s.newID()),
		UnitID:    in.UnitID,
		Guest:     in.Guest,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Guests:    in.Guests,
		Total:     total,
		Deposit:   deposit,
	}
	booking.Refresh()

	if err := s.store.Apply(ctx, Batch{PutBookings: []Booking{booking}}); err != nil {
		return nil, err
	}
	return &booking, nil
}

// DeleteBooking removes a stay.
func (s *Service) DeleteBooking(ctx context.Context, id BookingID) error {
	unlock := s.lock(string(id))
	defer unlock()

	if _, err := s.store.GetBooking(ctx, id); err != nil {
		return err
	}
	return s.store.Apply(ctx, Batch{DeleteBookings: []BookingID{id}})
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveSettings replaces the singleton settings record.
func (s *Service) SaveSettings(ctx context.Context, settings Settings) error {
	for _, v := range []decimal.Decimal{
		settings.DefaultCharges.Internet, settings.DefaultCharges.Furniture, settings.DefaultCharges.Other,
		settings.NightlyRates.P1, settings.NightlyRates.P2, settings.NightlyRates.P3, settings.NightlyRates.P4,
		settings.BookingDepositPercent,
	} {
		if v.IsNegative() {
			return invalid("settings", "amounts must be non-negative")
		}
	}
	return s.store.Apply(ctx, Batch{PutSettings: &settings})
}

// EnsureSettings seeds the singleton with defaults on first start.
func (s *Service) EnsureSettings(ctx context.Context) (*Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	seeded := DefaultSettings()
	if err := s.store.Apply(ctx, Batch{PutSettings: &seeded}); err != nil {
		return nil, err
	}
	return &seeded, nil
}

// =============================================================================
// READ SURFACE - Used by the presentation layer to render lists
// =============================================================================

func (s *Service) Units(ctx context.Context) ([]Unit, error)         { return s.store.ListUnits(ctx) }
func (s *Service) Contracts(ctx context.Context) ([]Contract, error) { return s.store.ListContracts(ctx) }
func (s *Service) Invoices(ctx context.Context) ([]Invoice, error)   { return s.store.ListInvoices(ctx) }
func (s *Service) Bookings(ctx context.Context) ([]Booking, error)   { return s.store.ListBookings(ctx) }

func (s *Service) Contract(ctx context.Context, id ContractID) (*Contract, error) {
	return s.store.GetContract(ctx, id)
}

func (s *Service) ContractInvoices(ctx context.Context, id ContractID) ([]Invoice, error) {
	return s.store.InvoicesByContract(ctx, id)
}

func (s *Service) Booking(ctx context.Context, id BookingID) (*Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	return s.store.GetSettings(ctx)
}
