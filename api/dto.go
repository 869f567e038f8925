/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run the
  validator before touching the facade, so malformed input is rejected with
  400 and nothing is mutated. Domain-level rules (date ordering, zero
  payment amounts) are enforced again inside the billing package.
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/rental-ledger/billing"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChargesRequest mirrors billing.ChargeSet with float JSON amounts.
type ChargesRequest struct {
	Internet  float64 `json:"internet" validate:"gte=0"`
	Furniture float64 `json:"furniture" validate:"gte=0"`
	Other     float64 `json:"other" validate:"gte=0"`
}

func (c *ChargesRequest) toChargeSet() *billing.ChargeSet {
	if c == nil {
		return nil
	}
	return &billing.ChargeSet{
		Internet:  decimal.NewFromFloat(c.Internet),
		Furniture: decimal.NewFromFloat(c.Furniture),
		Other:     decimal.NewFromFloat(c.Other),
	}
}

// ContractRequest creates or updates a lease.
type ContractRequest struct {
	UnitID              string          `json:"unit_id" validate:"required"`
	Tenant              string          `json:"tenant" validate:"required"`
	StartDate           string          `json:"start_date" validate:"required"`
	EndDate             string          `json:"end_date" validate:"required"`
	MonthlyRent         float64         `json:"monthly_rent" validate:"gt=0"`
	Charges             *ChargesRequest `json:"charges,omitempty"`
	DepositInstallments int             `json:"deposit_installments" validate:"gte=0"`
}

// PaymentRequest appends one payment entry. A negative amount records a
// credit note.
type PaymentRequest struct {
	Amount float64 `json:"amount" validate:"required"`
	Date   string  `json:"date,omitempty"`
	Payer  string  `json:"payer,omitempty"`
	Method string  `json:"method" validate:"required,oneof=cash transfer"`
	Note   string  `json:"note,omitempty"`
}

// BookingRequest creates a short stay. Total and deposit override the
// pricer's suggestion when present.
type BookingRequest struct {
	UnitID    string   `json:"unit_id" validate:"required"`
	Guest     string   `json:"guest" validate:"required"`
	StartDate string   `json:"start_date" validate:"required"`
	EndDate   string   `json:"end_date" validate:"required"`
	Guests    int      `json:"guests" validate:"gte=1"`
	Total     *float64 `json:"total,omitempty"`
	Deposit   *float64 `json:"deposit,omitempty"`
}

// QuoteRequest asks the pricer for a suggestion without creating anything.
type QuoteRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Guests    int    `json:"guests" validate:"gte=1"`
}

// RatesRequest mirrors billing.RateTable.
type RatesRequest struct {
	P1 float64 `json:"p1" validate:"gte=0"`
	P2 float64 `json:"p2" validate:"gte=0"`
	P3 float64 `json:"p3" validate:"gte=0"`
	P4 float64 `json:"p4" validate:"gte=0"`
}

// SettingsRequest replaces the singleton settings record wholesale.
type SettingsRequest struct {
	DefaultCharges        ChargesRequest `json:"default_charges"`
	NightlyRates          RatesRequest   `json:"nightly_rates"`
	BookingDepositPercent float64        `json:"booking_deposit_percent" validate:"gte=0,lte=100"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type UnitDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type PaymentDTO struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Payer  string  `json:"payer,omitempty"`
	Method string  `json:"method"`
	Note   string  `json:"note,omitempty"`
}

type ChargesDTO struct {
	Internet  float64 `json:"internet"`
	Furniture float64 `json:"furniture"`
	Other     float64 `json:"other"`
}

type DepositDTO struct {
	Amount   float64      `json:"amount"`
	Balance  float64      `json:"balance"`
	Status   string       `json:"status"`
	Payments []PaymentDTO `json:"payments"`
}

type ContractDTO struct {
	ID                  string     `json:"id"`
	UnitID              string     `json:"unit_id"`
	Tenant              string     `json:"tenant"`
	StartDate           string     `json:"start_date"`
	EndDate             string     `json:"end_date"`
	MonthlyRent         float64    `json:"monthly_rent"`
	Charges             ChargesDTO `json:"charges"`
	DepositInstallments int        `json:"deposit_installments"`
	Deposit             DepositDTO `json:"deposit"`
}

type InvoiceDTO struct {
	ID           string       `json:"id"`
	ContractID   string       `json:"contract_id"`
	UnitID       string       `json:"unit_id"`
	Tenant       string       `json:"tenant"`
	Period       string       `json:"period"`
	DueDate      string       `json:"due_date"`
	BaseRent     float64      `json:"base_rent"`
	Charges      ChargesDTO   `json:"charges"`
	Total        float64      `json:"total"`
	Balance      float64      `json:"balance"`
	Status       string       `json:"status"`
	Payments     []PaymentDTO `json:"payments"`
	ReminderSent bool         `json:"reminder_sent"`
}

type BookingDTO struct {
	ID        string       `json:"id"`
	UnitID    string       `json:"unit_id"`
	Guest     string       `json:"guest"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Guests    int          `json:"guests"`
	Total     float64      `json:"total"`
	Deposit   float64      `json:"deposit"`
	Balance   float64      `json:"balance"`
	Status    string       `json:"status"`
	Payments  []PaymentDTO `json:"payments"`
}

type QuoteDTO struct {
	Nights  int     `json:"nights"`
	Total   float64 `json:"total"`
	Deposit float64 `json:"deposit"`
}

type SettingsDTO struct {
	DefaultCharges        ChargesDTO `json:"default_charges"`
	NightlyRates          RatesDTO   `json:"nightly_rates"`
	BookingDepositPercent float64    `json:"booking_deposit_percent"`
}

type RatesDTO struct {
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
	P3 float64 `json:"p3"`
	P4 float64 `json:"p4"`
}

// ContractCreatedDTO bundles a new contract with its generated schedule.
type ContractCreatedDTO struct {
	Contract ContractDTO  `json:"contract"`
	Invoices []InvoiceDTO `json:"invoices"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func toUnitDTO(u billing.Unit) UnitDTO {
	return UnitDTO{ID: string(u.ID), Name: u.Name, Category: string(u.Category)}
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = PaymentDTO{
			ID:     string(p.ID),
			Amount: f(p.Amount),
			Date:   p.Date.String(),
			Payer:  p.Payer,
			Method: string(p.Method),
			Note:   p.Note,
		}
	}
	return dtos
}

func toChargesDTO(c billing.ChargeSet) ChargesDTO {
	return ChargesDTO{Internet: f(c.Internet), Furniture: f(c.Furniture), Other: f(c.Other)}
}

func toContractDTO(c billing.Contract) ContractDTO {
	return ContractDTO{
		ID:                  string(c.ID),
		UnitID:              string(c.UnitID),
		Tenant:              c.Tenant,
		StartDate:           c.StartDate.String(),
		EndDate:             c.EndDate.String(),
		MonthlyRent:         f(c.MonthlyRent),
		Charges:             toChargesDTO(c.Charges),
		DepositInstallments: c.DepositInstallments,
		Deposit: DepositDTO{
			Amount:   f(c.Deposit.Amount),
			Balance:  f(c.Deposit.Balance),
			Status:   string(c.Deposit.Status),
			Payments: toPaymentDTOs(c.Deposit.Payments),
		},
	}
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:           string(inv.ID),
		ContractID:   string(inv.ContractID),
		UnitID:       string(inv.UnitID),
		Tenant:       inv.Tenant,
		Period:       string(inv.Period),
		DueDate:      inv.DueDate.String(),
		BaseRent:     f(inv.BaseRent),
		Charges:      toChargesDTO(inv.Charges),
		Total:        f(inv.Total),
		Balance:      f(inv.Balance),
		Status:       string(inv.Status),
		Payments:     toPaymentDTOs(inv.Payments),
		ReminderSent: inv.ReminderSent,
	}
}

func toInvoiceDTOs(invoices []billing.Invoice) []InvoiceDTO {
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	return dtos
}

func toBookingDTO(b billing.Booking) BookingDTO {
	return BookingDTO{
		ID:        string(b.ID),
		UnitID:    string(b.UnitID),
		Guest:     b.Guest,
		StartDate: b.StartDate.String(),
		EndDate:   b.EndDate.String(),
		Guests:    b.Guests,
		Total:     f(b.Total),
		Deposit:   f(b.Deposit),
		Balance:   f(b.Balance),
		Status:    string(b.Status),
		Payments:  toPaymentDTOs(b.Payments),
	}
}

func toSettingsDTO(s billing.Settings) SettingsDTO {
	return SettingsDTO{
		DefaultCharges: toChargesDTO(s.DefaultCharges),
		NightlyRates: RatesDTO{
			P1: f(s.NightlyRates.P1),
			P2: f(s.NightlyRates.P2),
			P3: f(s.NightlyRates.P3),
			P4: f(s.NightlyRates.P4),
		},
		BookingDepositPercent: f(s.BookingDepositPercent),
	}
}
