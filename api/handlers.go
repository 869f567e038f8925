/*
handlers.go - HTTP API handlers for the rental ledger

PURPOSE:
  Exposes the billing facade via REST. Handles HTTP request/response, JSON
  serialization, and input validation; all bookkeeping rules live in the
  billing package.

ENDPOINTS:
  Units:
    GET    /api/units                        List rentable units

  Contracts:
    GET    /api/contracts                    List leases
    POST   /api/contracts                    Create lease + invoice schedule
    GET    /api/contracts/{id}               Get one lease
    PUT    /api/contracts/{id}               Edit lease terms (reconciles invoices)
    DELETE /api/contracts/{id}               Delete lease (cascades invoices)
    GET    /api/contracts/{id}/invoices      Lease's invoices by period
    POST   /api/contracts/{id}/deposit/payments  Record deposit payment

  Invoices:
    GET    /api/invoices                     List invoices (?contract_id=&period=)
    POST   /api/invoices/{id}/payments       Record invoice payment / credit note
    POST   /api/invoices/{id}/reminder       Mark reminder sent

  Bookings:
    GET    /api/bookings                     List short stays
    POST   /api/bookings                     Create booking
    POST   /api/bookings/quote               Suggested price for a stay
    GET    /api/bookings/{id}                Get one booking
    DELETE /api/bookings/{id}                Delete booking
    POST   /api/bookings/{id}/payments       Record booking payment

  Settings:
    GET    /api/settings                     Current settings
    PUT    /api/settings                     Replace settings

  Reports:
    GET    /api/reports/payments.csv         All payments as CSV (read-side)

ERROR HANDLING:
  Errors map onto HTTP status via billing's predicates:
  - 400: validation errors, invalid input
  - 404: record not found
  - 500: storage failures
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-ledger/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *billing.Service
	validate *validator.Validate
}

// NewHandler creates a new handler over the billing facade.
func NewHandler(service *billing.Service) *Handler {
	return &Handler{
		Service:  service,
		validate: validator.New(),
	}
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. Writes the error response itself; returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// UNIT HANDLERS
// =============================================================================

// ListUnits returns all rentable units.
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Service.Units(r.Context())
	if err != nil {
		httpError(w, "Failed to list units", err)
		return
	}
	dtos := make([]UnitDTO, len(units))
	for i, u := range units {
		dtos[i] = toUnitDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all leases.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Service.Contracts(r.Context())
	if err != nil {
		httpError(w, "Failed to list contracts", err)
		return
	}
	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns a single lease.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	contract, err := h.Service.Contract(r.Context(), id)
	if err != nil {
		httpError(w, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*contract))
}

func (h *Handler) contractInput(w http.ResponseWriter, r *http.Request) (billing.ContractInput, bool) {
	var req ContractRequest
	if !h.decodeAndValidate(w, r, &req) {
		return billing.ContractInput{}, false
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return billing.ContractInput{}, false
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return billing.ContractInput{}, false
	}

	return billing.ContractInput{
		UnitID:              billing.UnitID(req.UnitID),
		Tenant:              req.Tenant,
		StartDate:           start,
		EndDate:             end,
		MonthlyRent:         decimal.NewFromFloat(req.MonthlyRent),
		Charges:             req.Charges.toChargeSet(),
		DepositInstallments: req.DepositInstallments,
	}, true
}

// CreateContract creates a lease and its full invoice schedule.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	in, ok := h.contractInput(w, r)
	if !ok {
		return
	}

	contract, invoices, err := h.Service.CreateContract(r.Context(), in)
	if err != nil {
		httpError(w, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, ContractCreatedDTO{
		Contract: toContractDTO(*contract),
		Invoices: toInvoiceDTOs(invoices),
	})
}

// UpdateContract edits lease terms and reconciles the invoice set.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	in, ok := h.contractInput(w, r)
	if !ok {
		return
	}

	contract, err := h.Service.UpdateContract(r.Context(), id, in)
	if err != nil {
		httpError(w, "Failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*contract))
}

// DeleteContract deletes a lease and its invoices.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteContract(r.Context(), id); err != nil {
		httpError(w, "Failed to delete contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContractInvoices returns a lease's invoices ordered by period.
func (h *Handler) GetContractInvoices(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	invoices, err := h.Service.ContractInvoices(r.Context(), id)
	if err != nil {
		httpError(w, "Failed to get invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTOs(invoices))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

func (h *Handler) paymentInput(w http.ResponseWriter, r *http.Request) (billing.PaymentInput, bool) {
	var req PaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return billing.PaymentInput{}, false
	}

	var date billing.Date
	if req.Date != "" {
		var err error
		if date, err = billing.ParseDate(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return billing.PaymentInput{}, false
		}
	}

	return billing.PaymentInput{
		Amount: decimal.NewFromFloat(req.Amount),
		Date:   date,
		Payer:  req.Payer,
		Method: billing.PaymentMethod(req.Method),
		Note:   req.Note,
	}, true
}

// RecordInvoicePayment appends a payment or credit note to an invoice.
func (h *Handler) RecordInvoicePayment(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	in, ok := h.paymentInput(w, r)
	if !ok {
		return
	}

	inv, err := h.Service.RecordInvoicePayment(r.Context(), id, in)
	if err != nil {
		httpError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// RecordDepositPayment appends a payment to a lease's deposit sub-ledger.
func (h *Handler) RecordDepositPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.ContractID(chi.URLParam(r, "id"))
	in, ok := h.paymentInput(w, r)
	if !ok {
		return
	}

	contract, err := h.Service.RecordDepositPayment(r.Context(), id, in)
	if err != nil {
		httpError(w, "Failed to record deposit payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*contract))
}

// RecordBookingPayment appends a payment to a booking.
func (h *Handler) RecordBookingPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.BookingID(chi.URLParam(r, "id"))
	in, ok := h.paymentInput(w, r)
	if !ok {
		return
	}

	booking, err := h.Service.RecordBookingPayment(r.Context(), id, in)
	if err != nil {
		httpError(w, "Failed to record booking payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*booking))
}

// MarkReminderSent flags an invoice as reminded.
func (h *Handler) MarkReminderSent(w http.ResponseWriter, r *http.Request) {
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Service.MarkReminderSent(r.Context(), id); err != nil {
		httpError(w, "Failed to mark reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices, optionally filtered by contract and period.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		invoices []billing.Invoice
		err      error
	)
	if contractID := r.URL.Query().Get("contract_id"); contractID != "" {
		invoices, err = h.Service.ContractInvoices(ctx, billing.ContractID(contractID))
	} else {
		invoices, err = h.Service.Invoices(ctx)
	}
	if err != nil {
		httpError(w, "Failed to list invoices", err)
		return
	}

	if period := r.URL.Query().Get("period"); period != "" {
		p, err := billing.ParsePeriod(period)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		filtered := invoices[:0]
		for _, inv := range invoices {
			if inv.Period == p {
				filtered = append(filtered, inv)
			}
		}
		invoices = filtered
	}

	writeJSON(w, http.StatusOK, toInvoiceDTOs(invoices))
}

// ListOverdueInvoices returns invoices past due today with an open balance.
func (h *Handler) ListOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	overdue, err := overdueInvoices(r.Context(), h.Service, billing.Today())
	if err != nil {
		httpError(w, "Failed to list overdue invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTOs(overdue))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns all short stays.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.Bookings(r.Context())
	if err != nil {
		httpError(w, "Failed to list bookings", err)
		return
	}
	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := billing.BookingID(chi.URLParam(r, "id"))
	booking, err := h.Service.Booking(r.Context(), id)
	if err != nil {
		httpError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*booking))
}

// QuoteBooking returns the pricer's suggestion for a stay.
func (h *Handler) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	quote, err := h.Service.QuoteBooking(r.Context(), start, end, req.Guests)
	if err != nil {
		httpError(w, "Failed to quote booking", err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteDTO{
		Nights:  quote.Nights,
		Total:   f(quote.Total),
		Deposit: f(quote.Deposit),
	})
}

// CreateBooking creates a short stay.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	in := billing.BookingInput{
		UnitID:    billing.UnitID(req.UnitID),
		Guest:     req.Guest,
		StartDate: start,
		EndDate:   end,
		Guests:    req.Guests,
	}
	if req.Total != nil {
		total := decimal.NewFromFloat(*req.Total)
		in.Total = &total
	}
	if req.Deposit != nil {
		deposit := decimal.NewFromFloat(*req.Deposit)
		in.Deposit = &deposit
	}

	booking, err := h.Service.CreateBooking(r.Context(), in)
	if err != nil {
		httpError(w, "Failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*booking))
}

// DeleteBooking deletes a booking.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := billing.BookingID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteBooking(r.Context(), id); err != nil {
		httpError(w, "Failed to delete booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the singleton settings record.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		httpError(w, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(*settings))
}

// SaveSettings replaces the singleton settings record.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	settings := billing.Settings{
		DefaultCharges: *req.DefaultCharges.toChargeSet(),
		NightlyRates: billing.RateTable{
			P1: decimal.NewFromFloat(req.NightlyRates.P1),
			P2: decimal.NewFromFloat(req.NightlyRates.P2),
			P3: decimal.NewFromFloat(req.NightlyRates.P3),
			P4: decimal.NewFromFloat(req.NightlyRates.P4),
		},
		BookingDepositPercent: decimal.NewFromFloat(req.BookingDepositPercent),
	}

	if err := h.Service.SaveSettings(r.Context(), settings); err != nil {
		httpError(w, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// httpError maps a billing error onto an HTTP status.
func httpError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
