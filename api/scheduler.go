/*
scheduler.go - Background overdue-invoice scanner

PURPOSE:
  Periodically scans for invoices whose due date has passed while a
  positive balance remains, and logs a summary so overdue rent surfaces
  in the server logs without anyone opening the UI.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Read-only: never mutates invoices; reminders stay a manual action
  - Logs every overdue invoice and counts how many still lack a reminder

CONFIGURATION:
  - CheckInterval: How often to scan (default: 1 hour)
  - Enabled: Whether the scanner is active (default: true)

USAGE:
  scanner := NewOverdueScanner(service)
  scanner.Start()
  // ... later
  scanner.Stop()

SEE ALSO:
  - handlers.go: ListOverdueInvoices endpoint (same scan, on demand)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/rental-ledger/billing"
)

// OverdueScanner watches for invoices past due with an open balance.
type OverdueScanner struct {
	Service       *billing.Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOverdueScanner creates a new scanner over the billing facade.
func NewOverdueScanner(service *billing.Service) *OverdueScanner {
	return &OverdueScanner{
		Service:       service,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scanner.
func (sc *OverdueScanner) Start() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.Enabled {
		log.Println("[Overdue] Disabled, not starting")
		return
	}

	sc.ticker = time.NewTicker(sc.CheckInterval)
	sc.wg.Add(1)

	go sc.run()

	log.Printf("[Overdue] Started with check interval: %v", sc.CheckInterval)
}

// Stop stops the scanner.
func (sc *OverdueScanner) Stop() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.ticker != nil {
		sc.ticker.Stop()
		close(sc.stop)
		sc.wg.Wait()
		log.Println("[Overdue] Stopped")
	}
}

func (sc *OverdueScanner) run() {
	defer sc.wg.Done()

	// Run immediately on start
	sc.scan()

	for {
		select {
		case <-sc.ticker.C:
			sc.scan()
		case <-sc.stop:
			return
		}
	}
}

func (sc *OverdueScanner) scan() {
	ctx := context.Background()
	today := billing.Today()

	overdue, err := overdueInvoices(ctx, sc.Service, today)
	if err != nil {
		log.Printf("[Overdue] Error listing invoices: %v", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	unreminded := 0
	for _, inv := range overdue {
		if !inv.ReminderSent {
			unreminded++
		}
		log.Printf("[Overdue] %s period=%s tenant=%q balance=%s due=%s reminded=%v",
			inv.ID, inv.Period, inv.Tenant, inv.Balance.String(), inv.DueDate, inv.ReminderSent)
	}
	log.Printf("[Overdue] %d invoice(s) past due, %d without a reminder", len(overdue), unreminded)
}

// RunNow triggers an immediate scan (for testing/admin).
func (sc *OverdueScanner) RunNow() {
	sc.scan()
}

// overdueInvoices returns invoices past due as of the given day that still
// carry a positive balance, in period order. Shared by the scanner and the
// on-demand endpoint.
func overdueInvoices(ctx context.Context, service *billing.Service, asOf billing.Date) ([]billing.Invoice, error) {
	invoices, err := service.Invoices(ctx)
	if err != nil {
		return nil, err
	}

	var overdue []billing.Invoice
	for _, inv := range invoices {
		if inv.DueDate.Before(asOf) && inv.Balance.IsPositive() {
			overdue = append(overdue, inv)
		}
	}
	return overdue, nil
}
