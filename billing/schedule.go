/*
schedule.go - Monthly invoice schedule generation

PURPOSE:
  Expands a contract's date range into one invoice per calendar month,
  ordered by period ascending. Every generated invoice starts PENDING with
  an empty payment list.

DUE DATES:
  Each invoice is due on the contract start's day-of-month, clamped to the
  last day of shorter months (a contract starting on the 31st produces a
  February invoice due Feb 28/29, not March 2/3).

FAILURE:
  None. A start date after the end date yields an empty schedule; callers
  validate date ranges before invoking.
*/
package billing

// GenerateInvoices produces the full invoice schedule for a contract, one
// invoice per calendar month in [StartDate, EndDate] inclusive. IDs are left
// empty; the facade stamps them at creation time.
func GenerateInvoices(c Contract) []Invoice {
	periods := PeriodsBetween(c.StartDate, c.EndDate)
	if len(periods) == 0 {
		return nil
	}

	invoices := make([]Invoice, len(periods))
	for i, p := range periods {
		invoices[i] = newInvoiceForPeriod(c, p)
	}
	return invoices
}

// newInvoiceForPeriod is the single generation rule, shared by initial
// schedule generation and by reconciliation when new periods appear.
func newInvoiceForPeriod(c Contract, p Period) Invoice {
	total := c.MonthlyRent.Add(c.Charges.Total())
	inv := Invoice{
		ContractID: c.ID,
		UnitID:     c.UnitID,
		Tenant:     c.Tenant,
		Period:     p,
		DueDate:    DueDateFor(p, c.StartDate.Day()),
		BaseRent:   c.MonthlyRent,
		Charges:    c.Charges,
		Total:      total,
	}
	inv.Refresh()
	return inv
}
