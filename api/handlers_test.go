/*
handlers_test.go - HTTP-level tests for the rental API

Exercises the router end to end over the in-memory store: JSON contracts,
status-code mapping, and the main create/pay/reconcile flows.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-ledger/billing"
	"github.com/warp/rental-ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store := memory.New()
	service := billing.NewService(store)

	ctx := context.Background()
	require.NoError(t, store.Apply(ctx, billing.Batch{
		PutUnits: []billing.Unit{
			{ID: "u-1", Name: "Apartment 1", Category: billing.UnitMonthlyApartment},
			{ID: "u-2", Name: "Studio 2", Category: billing.UnitDailyApartment},
		},
	}))
	_, err := service.EnsureSettings(ctx)
	require.NoError(t, err)

	return NewRouter(NewHandler(service))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func contractRequest() ContractRequest {
	return ContractRequest{
		UnitID:      "u-1",
		Tenant:      "Alice",
		StartDate:   "2024-01-15",
		EndDate:     "2024-03-15",
		MonthlyRent: 1000,
	}
}

func createContract(t *testing.T, router http.Handler) ContractCreatedDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/contracts", contractRequest())
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[ContractCreatedDTO](t, rec)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestAPI_CreateContract_ReturnsSchedule(t *testing.T) {
	// GIVEN: A valid lease request
	// WHEN: POST /api/contracts
	// THEN: 201 with the contract and its three pending invoices

	router := newTestRouter(t)
	created := createContract(t, router)

	assert.NotEmpty(t, created.Contract.ID)
	assert.Equal(t, "Alice", created.Contract.Tenant)
	assert.Equal(t, float64(1000), created.Contract.Deposit.Amount)
	assert.Equal(t, "pending", created.Contract.Deposit.Status)

	require.Len(t, created.Invoices, 3)
	assert.Equal(t, "2024-01", created.Invoices[0].Period)
	assert.Equal(t, "2024-01-15", created.Invoices[0].DueDate)
	assert.Equal(t, float64(1000), created.Invoices[0].Balance)
	assert.Equal(t, "pending", created.Invoices[0].Status)
}

func TestAPI_CreateContract_MissingTenant_400(t *testing.T) {
	router := newTestRouter(t)

	req := contractRequest()
	req.Tenant = ""
	rec := doJSON(t, router, http.MethodPost, "/api/contracts", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
}

func TestAPI_CreateContract_EndBeforeStart_400(t *testing.T) {
	router := newTestRouter(t)

	req := contractRequest()
	req.EndDate = "2023-12-01"
	rec := doJSON(t, router, http.MethodPost, "/api/contracts", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetContract_Unknown_404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/contracts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_UpdateContract_ReconcilesInvoices(t *testing.T) {
	// GIVEN: A lease through March
	// WHEN: PUT extends the end date through April
	// THEN: The lease's invoice list gains the 2024-04 period

	router := newTestRouter(t)
	created := createContract(t, router)

	req := contractRequest()
	req.EndDate = "2024-04-15"
	rec := doJSON(t, router, http.MethodPut, "/api/contracts/"+created.Contract.ID, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/contracts/"+created.Contract.ID+"/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	invoices := decode[[]InvoiceDTO](t, rec)
	require.Len(t, invoices, 4)
	assert.Equal(t, "2024-04", invoices[3].Period)
}

func TestAPI_DeleteContract_Cascades(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/contracts/"+created.Contract.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/contracts/"+created.Contract.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]InvoiceDTO](t, rec))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestAPI_RecordInvoicePayment_ReturnsUpdatedLedger(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)
	target := created.Invoices[0].ID

	rec := doJSON(t, router, http.MethodPost, "/api/invoices/"+target+"/payments", PaymentRequest{
		Amount: 400, Date: "2024-01-20", Payer: "Alice", Method: "transfer",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	inv := decode[InvoiceDTO](t, rec)
	assert.Equal(t, float64(600), inv.Balance)
	assert.Equal(t, "partial", inv.Status)
	require.Len(t, inv.Payments, 1)
	assert.Equal(t, "2024-01-20", inv.Payments[0].Date)
}

func TestAPI_RecordInvoicePayment_CreditNote(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)
	target := created.Invoices[0].ID

	doJSON(t, router, http.MethodPost, "/api/invoices/"+target+"/payments", PaymentRequest{
		Amount: 400, Method: "cash",
	})
	rec := doJSON(t, router, http.MethodPost, "/api/invoices/"+target+"/payments", PaymentRequest{
		Amount: -400, Method: "cash", Note: "booked in error",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	inv := decode[InvoiceDTO](t, rec)
	assert.Equal(t, float64(1000), inv.Balance)
	assert.Equal(t, "pending", inv.Status)
	assert.Len(t, inv.Payments, 2)
}

func TestAPI_RecordInvoicePayment_ZeroAmount_400(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodPost,
		"/api/invoices/"+created.Invoices[0].ID+"/payments",
		PaymentRequest{Amount: 0, Method: "cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RecordInvoicePayment_BadMethod_400(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodPost,
		"/api/invoices/"+created.Invoices[0].ID+"/payments",
		PaymentRequest{Amount: 100, Method: "cheque"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RecordDepositPayment(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodPost,
		"/api/contracts/"+created.Contract.ID+"/deposit/payments",
		PaymentRequest{Amount: 600, Method: "cash"})
	require.Equal(t, http.StatusOK, rec.Code)

	contract := decode[ContractDTO](t, rec)
	assert.Equal(t, float64(400), contract.Deposit.Balance)
	assert.Equal(t, "partial", contract.Deposit.Status)
}

func TestAPI_MarkReminderSent(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)
	target := created.Invoices[0].ID

	rec := doJSON(t, router, http.MethodPost, "/api/invoices/"+target+"/reminder", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/invoices?contract_id="+created.Contract.ID, nil)
	invoices := decode[[]InvoiceDTO](t, rec)
	assert.True(t, invoices[0].ReminderSent)
}

// =============================================================================
// INVOICE FILTERS
// =============================================================================

func TestAPI_ListInvoices_PeriodFilter(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodGet,
		"/api/invoices?contract_id="+created.Contract.ID+"&period=2024-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	invoices := decode[[]InvoiceDTO](t, rec)
	require.Len(t, invoices, 1)
	assert.Equal(t, "2024-02", invoices[0].Period)
}

func TestAPI_ListInvoices_MalformedPeriod_400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/invoices?period=2024-13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListOverdueInvoices(t *testing.T) {
	// GIVEN: A 2024 lease, so every due date is in the past
	// WHEN: One invoice is fully paid
	// THEN: /api/invoices/overdue returns only the ones with an open balance

	router := newTestRouter(t)
	created := createContract(t, router)

	rec := doJSON(t, router, http.MethodPost,
		"/api/invoices/"+created.Invoices[0].ID+"/payments",
		PaymentRequest{Amount: 1000, Method: "transfer"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/invoices/overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	overdue := decode[[]InvoiceDTO](t, rec)
	require.Len(t, overdue, 2)
	for _, inv := range overdue {
		assert.NotEqual(t, created.Invoices[0].ID, inv.ID)
		assert.Greater(t, inv.Balance, float64(0))
	}
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestAPI_QuoteBooking(t *testing.T) {
	// Default settings: 2 guests at 150/night, 30% deposit.
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings/quote", QuoteRequest{
		StartDate: "2024-06-01", EndDate: "2024-06-04", Guests: 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	quote := decode[QuoteDTO](t, rec)
	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, float64(450), quote.Total)
	assert.Equal(t, float64(135), quote.Deposit)
}

func TestAPI_CreateBooking_DefaultsToQuote(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", BookingRequest{
		UnitID: "u-2", Guest: "Carol",
		StartDate: "2024-06-01", EndDate: "2024-06-04", Guests: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	booking := decode[BookingDTO](t, rec)
	assert.Equal(t, float64(450), booking.Total)
	assert.Equal(t, float64(135), booking.Deposit)
	assert.Equal(t, "pending", booking.Status)
}

func TestAPI_CreateBooking_SameDay_400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", BookingRequest{
		UnitID: "u-2", Guest: "Carol",
		StartDate: "2024-06-01", EndDate: "2024-06-01", Guests: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_BookingPaymentFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", BookingRequest{
		UnitID: "u-2", Guest: "Carol",
		StartDate: "2024-06-01", EndDate: "2024-06-04", Guests: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[BookingDTO](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/bookings/"+booking.ID+"/payments",
		PaymentRequest{Amount: 450, Method: "transfer"})
	require.Equal(t, http.StatusOK, rec.Code)

	paid := decode[BookingDTO](t, rec)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, float64(0), paid.Balance)

	rec = doJSON(t, router, http.MethodDelete, "/api/bookings/"+booking.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/bookings/"+booking.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestAPI_SettingsRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/settings", SettingsRequest{
		DefaultCharges:        ChargesRequest{Internet: 25},
		NightlyRates:          RatesRequest{P1: 90, P2: 140, P3: 190, P4: 210},
		BookingDepositPercent: 25,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	settings := decode[SettingsDTO](t, rec)
	assert.Equal(t, float64(25), settings.DefaultCharges.Internet)
	assert.Equal(t, float64(140), settings.NightlyRates.P2)
	assert.Equal(t, float64(25), settings.BookingDepositPercent)
}

func TestAPI_SaveSettings_PercentOver100_400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/settings", SettingsRequest{
		NightlyRates:          RatesRequest{P1: 90, P2: 140, P3: 190, P4: 210},
		BookingDepositPercent: 150,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAPI_PaymentsReportCSV(t *testing.T) {
	router := newTestRouter(t)
	created := createContract(t, router)

	doJSON(t, router, http.MethodPost,
		"/api/invoices/"+created.Invoices[0].ID+"/payments",
		PaymentRequest{Amount: 400, Date: "2024-01-20", Payer: "Alice", Method: "transfer"})

	rec := doJSON(t, router, http.MethodGet, "/api/reports/payments.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	body := rec.Body.String()
	assert.Contains(t, body, "date,source,reference,party,payer,method,amount")
	assert.Contains(t, body, "2024-01-20")
	assert.Contains(t, body, "invoice")
	assert.Contains(t, body, "Alice")
}
