/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists the billing collections (units, contracts, invoices, bookings,
  settings) as whole-record snapshots. Payment lists are stored as JSON
  columns: the record in the database is always the same shape the engine
  computed, never a partially updated ledger.

ATOMIC BATCHES:
  Apply() runs the entire batch inside one SQL transaction. Either every
  put/delete lands or none does; a failed batch leaves previously persisted
  state untouched.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-ledger/billing"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		tenant TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		monthly_rent TEXT NOT NULL,
		charge_internet TEXT NOT NULL,
		charge_furniture TEXT NOT NULL,
		charge_other TEXT NOT NULL,
		deposit_installments INTEGER NOT NULL,
		deposit_amount TEXT NOT NULL,
		deposit_balance TEXT NOT NULL,
		deposit_status TEXT NOT NULL,
		deposit_payments_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		tenant TEXT NOT NULL,
		period TEXT NOT NULL,
		due_date TEXT NOT NULL,
		base_rent TEXT NOT NULL,
		charge_internet TEXT NOT NULL,
		charge_furniture TEXT NOT NULL,
		charge_other TEXT NOT NULL,
		total TEXT NOT NULL,
		balance TEXT NOT NULL,
		status TEXT NOT NULL,
		payments_json TEXT NOT NULL,
		reminder_sent INTEGER NOT NULL DEFAULT 0
	);

	-- One invoice per (contract, calendar month)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_contract_period
		ON invoices(contract_id, period);
	CREATE INDEX IF NOT EXISTS idx_invoices_contract
		ON invoices(contract_id);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL,
		guest TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		guests INTEGER NOT NULL,
		total TEXT NOT NULL,
		deposit TEXT NOT NULL,
		balance TEXT NOT NULL,
		status TEXT NOT NULL,
		payments_json TEXT NOT NULL
	);

	-- Singleton settings record
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		charge_internet TEXT NOT NULL,
		charge_furniture TEXT NOT NULL,
		charge_other TEXT NOT NULL,
		rate_p1 TEXT NOT NULL,
		rate_p2 TEXT NOT NULL,
		rate_p3 TEXT NOT NULL,
		rate_p4 TEXT NOT NULL,
		booking_deposit_percent TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) ListUnits(ctx context.Context) ([]billing.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category FROM units ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []billing.Unit
	for rows.Next() {
		var u billing.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Category); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *Store) GetUnit(ctx context.Context, id billing.UnitID) (*billing.Unit, error) {
	var u billing.Unit
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, category FROM units WHERE id = ?`, string(id)).
		Scan(&u.ID, &u.Name, &u.Category)
	if err == sql.ErrNoRows {
		return nil, billing.ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const contractColumns = `id, unit_id, tenant, start_date, end_date, monthly_rent,
	charge_internet, charge_furniture, charge_other, deposit_installments,
	deposit_amount, deposit_balance, deposit_status, deposit_payments_json`

func (s *Store) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []billing.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (s *Store) GetContract(ctx context.Context, id billing.ContractID) (*billing.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, billing.ErrContractNotFound
	}
	c, err := scanContract(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const invoiceColumns = `id, contract_id, unit_id, tenant, period, due_date, base_rent,
	charge_internet, charge_furniture, charge_other, total, balance, status,
	payments_json, reminder_sent`

func (s *Store) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	return s.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY period, id`)
}

func (s *Store) InvoicesByContract(ctx context.Context, id billing.ContractID) ([]billing.Invoice, error) {
	return s.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE contract_id = ? ORDER BY period, id`,
		string(id))
}

func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	invoices, err := s.queryInvoices(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, billing.ErrInvoiceNotFound
	}
	return &invoices[0], nil
}

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]billing.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

const bookingColumns = `id, unit_id, guest, start_date, end_date, guests,
	total, deposit, balance, status, payments_json`

func (s *Store) ListBookings(ctx context.Context) ([]billing.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []billing.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *Store) GetBooking(ctx context.Context, id billing.BookingID) (*billing.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, billing.ErrBookingNotFound
	}
	b, err := scanBooking(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetSettings(ctx context.Context) (*billing.Settings, error) {
	var (
		settings                   billing.Settings
		ci, cf, co, p1, p2, p3, p4 string
		depositPercent             string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT charge_internet, charge_furniture, charge_other,
			rate_p1, rate_p2, rate_p3, rate_p4, booking_deposit_percent
		 FROM settings WHERE id = 1`).
		Scan(&ci, &cf, &co, &p1, &p2, &p3, &p4, &depositPercent)
	if err == sql.ErrNoRows {
		return nil, billing.ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&settings.DefaultCharges.Internet, ci},
		{&settings.DefaultCharges.Furniture, cf},
		{&settings.DefaultCharges.Other, co},
		{&settings.NightlyRates.P1, p1},
		{&settings.NightlyRates.P2, p2},
		{&settings.NightlyRates.P3, p3},
		{&settings.NightlyRates.P4, p4},
		{&settings.BookingDepositPercent, depositPercent},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("corrupt settings amount %q: %w", f.src, err)
		}
	}
	return &settings, nil
}

// =============================================================================
// APPLY - Atomic cross-collection batch
// =============================================================================

// Apply performs the batch inside one SQL transaction.
func (s *Store) Apply(ctx context.Context, batch billing.Batch) error {
	if batch.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", billing.ErrBatchFailed, err)
	}
	if err := applyBatch(ctx, tx, batch); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", billing.ErrBatchFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", billing.ErrBatchFailed, err)
	}
	return nil
}

func applyBatch(ctx context.Context, tx *sql.Tx, batch billing.Batch) error {
	for _, u := range batch.PutUnits {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO units (id, name, category) VALUES (?, ?, ?)`,
			string(u.ID), u.Name, string(u.Category))
		if err != nil {
			return err
		}
	}

	for _, c := range batch.PutContracts {
		payments, err := json.Marshal(c.Deposit.Payments)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO contracts (`+contractColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(c.ID), string(c.UnitID), c.Tenant,
			c.StartDate.String(), c.EndDate.String(), c.MonthlyRent.String(),
			c.Charges.Internet.String(), c.Charges.Furniture.String(), c.Charges.Other.String(),
			c.DepositInstallments,
			c.Deposit.Amount.String(), c.Deposit.Balance.String(), string(c.Deposit.Status),
			string(payments))
		if err != nil {
			return err
		}
	}

	for _, inv := range batch.PutInvoices {
		payments, err := json.Marshal(inv.Payments)
		if err != nil {
			return err
		}
		// Upsert by id only. A conflict on (contract_id, period) must fail
		// the batch, not silently swallow another month's invoice.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoices (`+invoiceColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				contract_id = excluded.contract_id,
				unit_id = excluded.unit_id,
				tenant = excluded.tenant,
				period = excluded.period,
				due_date = excluded.due_date,
				base_rent = excluded.base_rent,
				charge_internet = excluded.charge_internet,
				charge_furniture = excluded.charge_furniture,
				charge_other = excluded.charge_other,
				total = excluded.total,
				balance = excluded.balance,
				status = excluded.status,
				payments_json = excluded.payments_json,
				reminder_sent = excluded.reminder_sent`,
			string(inv.ID), string(inv.ContractID), string(inv.UnitID), inv.Tenant,
			string(inv.Period), inv.DueDate.String(), inv.BaseRent.String(),
			inv.Charges.Internet.String(), inv.Charges.Furniture.String(), inv.Charges.Other.String(),
			inv.Total.String(), inv.Balance.String(), string(inv.Status),
			string(payments), boolToInt(inv.ReminderSent))
		if err != nil {
			return err
		}
	}

	for _, b := range batch.PutBookings {
		payments, err := json.Marshal(b.Payments)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO bookings (`+bookingColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(b.ID), string(b.UnitID), b.Guest,
			b.StartDate.String(), b.EndDate.String(), b.Guests,
			b.Total.String(), b.Deposit.String(), b.Balance.String(), string(b.Status),
			string(payments))
		if err != nil {
			return err
		}
	}

	if settings := batch.PutSettings; settings != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO settings (id, charge_internet, charge_furniture,
				charge_other, rate_p1, rate_p2, rate_p3, rate_p4, booking_deposit_percent)
			 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
			settings.DefaultCharges.Internet.String(),
			settings.DefaultCharges.Furniture.String(),
			settings.DefaultCharges.Other.String(),
			settings.NightlyRates.P1.String(), settings.NightlyRates.P2.String(),
			settings.NightlyRates.P3.String(), settings.NightlyRates.P4.String(),
			settings.BookingDepositPercent.String())
		if err != nil {
			return err
		}
	}

	for _, id := range batch.DeleteContracts {
		if _, err := tx.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, string(id)); err != nil {
			return err
		}
	}
	for _, id := range batch.DeleteInvoices {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, string(id)); err != nil {
			return err
		}
	}
	for _, id := range batch.DeleteBookings {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, string(id)); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func scanContract(rows *sql.Rows) (billing.Contract, error) {
	var (
		c                                  billing.Contract
		startDate, endDate                 string
		rent, ci, cf, co                   string
		depAmount, depBalance, depPayments string
	)
	err := rows.Scan(&c.ID, &c.UnitID, &c.Tenant, &startDate, &endDate, &rent,
		&ci, &cf, &co, &c.DepositInstallments,
		&depAmount, &depBalance, &c.Deposit.Status, &depPayments)
	if err != nil {
		return billing.Contract{}, err
	}

	if c.StartDate, err = billing.ParseDate(startDate); err != nil {
		return billing.Contract{}, err
	}
	if c.EndDate, err = billing.ParseDate(endDate); err != nil {
		return billing.Contract{}, err
	}
	if c.MonthlyRent, err = decimal.NewFromString(rent); err != nil {
		return billing.Contract{}, err
	}
	if c.Charges, err = parseCharges(ci, cf, co); err != nil {
		return billing.Contract{}, err
	}
	if c.Deposit.Amount, err = decimal.NewFromString(depAmount); err != nil {
		return billing.Contract{}, err
	}
	if c.Deposit.Balance, err = decimal.NewFromString(depBalance); err != nil {
		return billing.Contract{}, err
	}
	if err := json.Unmarshal([]byte(depPayments), &c.Deposit.Payments); err != nil {
		return billing.Contract{}, fmt.Errorf("corrupt deposit payments for contract %s: %w", c.ID, err)
	}
	return c, nil
}

func scanInvoice(rows *sql.Rows) (billing.Invoice, error) {
	var (
		inv                  billing.Invoice
		dueDate              string
		baseRent, ci, cf, co string
		total, balance       string
		payments             string
		reminderSent         int
	)
	err := rows.Scan(&inv.ID, &inv.ContractID, &inv.UnitID, &inv.Tenant,
		&inv.Period, &dueDate, &baseRent, &ci, &cf, &co,
		&total, &balance, &inv.Status, &payments, &reminderSent)
	if err != nil {
		return billing.Invoice{}, err
	}

	if inv.DueDate, err = billing.ParseDate(dueDate); err != nil {
		return billing.Invoice{}, err
	}
	if inv.BaseRent, err = decimal.NewFromString(baseRent); err != nil {
		return billing.Invoice{}, err
	}
	if inv.Charges, err = parseCharges(ci, cf, co); err != nil {
		return billing.Invoice{}, err
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return billing.Invoice{}, err
	}
	if inv.Balance, err = decimal.NewFromString(balance); err != nil {
		return billing.Invoice{}, err
	}
	if err := json.Unmarshal([]byte(payments), &inv.Payments); err != nil {
		return billing.Invoice{}, fmt.Errorf("corrupt payments for invoice %s: %w", inv.ID, err)
	}
	inv.ReminderSent = reminderSent != 0
	return inv, nil
}

func scanBooking(rows *sql.Rows) (billing.Booking, error) {
	var (
		b                       billing.Booking
		startDate, endDate      string
		total, deposit, balance string
		payments                string
	)
	err := rows.Scan(&b.ID, &b.UnitID, &b.Guest, &startDate, &endDate, &b.Guests,
		&total, &deposit, &balance, &b.Status, &payments)
	if err != nil {
		return billing.Booking{}, err
	}

	if b.StartDate, err = billing.ParseDate(startDate); err != nil {
		return billing.Booking{}, err
	}
	if b.EndDate, err = billing.ParseDate(endDate); err != nil {
		return billing.Booking{}, err
	}
	if b.Total, err = decimal.NewFromString(total); err != nil {
		return billing.Booking{}, err
	}
	if b.Deposit, err = decimal.NewFromString(deposit); err != nil {
		return billing.Booking{}, err
	}
	if b.Balance, err = decimal.NewFromString(balance); err != nil {
		return billing.Booking{}, err
	}
	if err := json.Unmarshal([]byte(payments), &b.Payments); err != nil {
		return billing.Booking{}, fmt.Errorf("corrupt payments for booking %s: %w", b.ID, err)
	}
	return b, nil
}

func parseCharges(internet, furniture, other string) (billing.ChargeSet, error) {
	var (
		c   billing.ChargeSet
		err error
	)
	if c.Internet, err = decimal.NewFromString(internet); err != nil {
		return billing.ChargeSet{}, err
	}
	if c.Furniture, err = decimal.NewFromString(furniture); err != nil {
		return billing.ChargeSet{}, err
	}
	if c.Other, err = decimal.NewFromString(other); err != nil {
		return billing.ChargeSet{}, err
	}
	return c, nil
}
