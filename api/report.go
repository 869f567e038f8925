/*
report.go - Read-side CSV export of payment records

PURPOSE:
  Flattens every payment entry (invoice, deposit, booking) into CSV rows
  for export. Pure read-side transformation; the billing engine is not
  involved beyond supplying the records.
*/
package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/warp/rental-ledger/billing"
)

type paymentRow struct {
	Source  string // invoice | deposit | booking
	Ref     string // period, contract id, or booking id
	Party   string // tenant or guest
	Payment billing.Payment
}

// PaymentsReportCSV streams every recorded payment as CSV.
func (h *Handler) PaymentsReportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invoices, err := h.Service.Invoices(ctx)
	if err != nil {
		httpError(w, "Failed to load invoices", err)
		return
	}
	contracts, err := h.Service.Contracts(ctx)
	if err != nil {
		httpError(w, "Failed to load contracts", err)
		return
	}
	bookings, err := h.Service.Bookings(ctx)
	if err != nil {
		httpError(w, "Failed to load bookings", err)
		return
	}

	var rows []paymentRow
	for _, inv := range invoices {
		for _, p := range inv.Payments {
			rows = append(rows, paymentRow{Source: "invoice", Ref: string(inv.Period), Party: inv.Tenant, Payment: p})
		}
	}
	for _, c := range contracts {
		for _, p := range c.Deposit.Payments {
			rows = append(rows, paymentRow{Source: "deposit", Ref: string(c.ID), Party: c.Tenant, Payment: p})
		}
	}
	for _, b := range bookings {
		for _, p := range b.Payments {
			rows = append(rows, paymentRow{Source: "booking", Ref: string(b.ID), Party: b.Guest, Payment: p})
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payments.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "source", "reference", "party", "payer", "method", "amount", "note"})
	for _, row := range rows {
		amount, _ := row.Payment.Amount.Float64()
		cw.Write([]string{
			row.Payment.Date.String(),
			row.Source,
			row.Ref,
			row.Party,
			row.Payment.Payer,
			string(row.Payment.Method),
			strconv.FormatFloat(amount, 'f', 2, 64),
			row.Payment.Note,
		})
	}
	cw.Flush()
}
