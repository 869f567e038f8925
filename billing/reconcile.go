/*
reconcile.go - Diffing contract edits against the existing invoice set

PURPOSE:
  When a contract is edited (extended, shortened, rent or charges changed),
  its invoice schedule must follow without disturbing what has already been
  paid. Reconcile computes a minimal create/update/delete plan; the facade
  applies the plan as one atomic batch.

RULES:
  - Periods no longer in range are deleted. This includes PAID invoices:
    shortening a contract discards the invoices for the dropped months,
    paid or not.
  - Kept invoices are relabeled (tenant, due date) unconditionally. Unpaid
    ones are additionally repriced from the new terms and their ledger
    rerun; PAID invoices keep their frozen totals.
  - Newly covered periods get fresh PENDING invoices via the same rule as
    initial schedule generation.
  - The deposit is re-targeted to the new monthly rent only while it is not
    yet fully paid. A PAID deposit is never reopened by a rent change.

ORDERING:
  Invoices are keyed by period token, unique per contract, so the plan is
  order-independent and never contains duplicate periods.
*/
package billing

// Plan is the outcome of reconciling a contract edit: the updated contract
// record plus the invoice delta to persist atomically alongside it.
type Plan struct {
	Contract Contract
	Keep     []Invoice   // surviving invoices, relabeled and (if unpaid) repriced
	Create   []Invoice   // fresh PENDING invoices for newly covered periods
	Delete   []InvoiceID // invoices whose period fell out of range
}

// Reconcile diffs an edited contract against its previously generated
// invoices. updated must carry the same ID and the existing deposit
// sub-ledger; Reconcile re-targets the deposit when the rules allow.
// Invoices belonging to other contracts are ignored.
func Reconcile(old, updated Contract, existing []Invoice) Plan {
	wanted := make(map[Period]bool)
	for _, p := range PeriodsBetween(updated.StartDate, updated.EndDate) {
		wanted[p] = true
	}

	plan := Plan{Contract: updated}
	covered := make(map[Period]bool)

	for _, inv := range existing {
		if inv.ContractID != updated.ID {
			continue
		}
		if !wanted[inv.Period] || covered[inv.Period] {
			plan.Delete = append(plan.Delete, inv.ID)
			continue
		}
		covered[inv.Period] = true

		// Cosmetic relabeling applies even to paid invoices.
		inv.Tenant = updated.Tenant
		inv.DueDate = DueDateFor(inv.Period, updated.StartDate.Day())

		// Unpaid invoices are repriced from the new terms; paid ones keep
		// their frozen totals.
		if inv.Status != StatusPaid {
			inv.BaseRent = updated.MonthlyRent
			inv.Charges = updated.Charges
			inv.Total = updated.MonthlyRent.Add(updated.Charges.Total())
			inv.Refresh()
		}
		plan.Keep = append(plan.Keep, inv)
	}

	for _, p := range PeriodsBetween(updated.StartDate, updated.EndDate) {
		if !covered[p] {
			plan.Create = append(plan.Create, newInvoiceForPeriod(updated, p))
		}
	}

	// Deposit follows the rent only while not fully paid.
	if old.Deposit.Status != StatusPaid && !old.MonthlyRent.Equal(updated.MonthlyRent) {
		plan.Contract.Deposit.Amount = updated.MonthlyRent
		plan.Contract.Deposit.Refresh()
	}

	return plan
}
