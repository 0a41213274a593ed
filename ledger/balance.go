/*
balance.go - Aggregate computation from movement history

PURPOSE:
  Replays a slice of movements into keg counts and deposit balances.
  There is no cached running balance anywhere in the system: every report
  recomputes from the raw rows it is given, so a report is always consistent
  with the ledger at the moment it was read.

INVARIANTS:
  outstanding_kegs    == delivered - returned_full
  outstanding_empties == delivered - returned_empty
  deposit_balance     == deposit_charged - deposit_refunded (exact to the cent)

These hold for every scope (global, per-client, per-beer, date-ranged)
because each movement's contribution depends only on its own frozen fields.
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT - Computed aggregates over a set of movements
// =============================================================================

type Report struct {
	Delivered     int64
	ReturnedFull  int64
	ReturnedEmpty int64

	// Kegs physically still at the client (full returns came back).
	OutstandingKegs int64

	// Empties still owed back; deposit not yet refunded for these.
	OutstandingEmpties int64

	DepositCharged  decimal.Decimal
	DepositRefunded decimal.Decimal
	DepositBalance  decimal.Decimal

	// Signed net billable goods value: deliveries +, returns -.
	GoodsTotal decimal.Decimal
}

// emptyReport returns a report with explicit zero decimals so JSON output
// renders "0" rather than a zero-value struct.
func emptyReport() Report {
	return Report{
		DepositCharged:  decimal.Zero,
		DepositRefunded: decimal.Zero,
		DepositBalance:  decimal.Zero,
		GoodsTotal:      decimal.Zero,
	}
}

// Summarize replays movements into a Report. Order does not matter; every
// aggregate is a commutative sum.
func Summarize(movements []Movement) Report {
	r := emptyReport()
	for _, m := range movements {
		switch m.Type {
		case TypeDelivery:
			r.Delivered += int64(m.Quantity)
		case TypeReturnFull:
			r.ReturnedFull += int64(m.Quantity)
		case TypeReturnEmpty:
			r.ReturnedEmpty += int64(m.Quantity)
		}
		r.DepositCharged = r.DepositCharged.Add(m.DepositCharged())
		r.DepositRefunded = r.DepositRefunded.Add(m.DepositRefunded())
		r.GoodsTotal = r.GoodsTotal.Add(m.GoodsValue())
	}
	r.OutstandingKegs = r.Delivered - r.ReturnedFull
	r.OutstandingEmpties = r.Delivered - r.ReturnedEmpty
	r.DepositBalance = r.DepositCharged.Sub(r.DepositRefunded)
	return r
}

// =============================================================================
// BREAKDOWNS - Same aggregates with an extra group-by
// =============================================================================

// ClientReport is the per-client breakdown row.
type ClientReport struct {
	ClientID   ClientID
	ClientName string
	Report
}

// BeerReport is the per-beer breakdown row.
type BeerReport struct {
	BeerID   BeerID
	BeerName string
	Report
}

// SummarizeByClient groups movements by client and summarizes each group.
// Rows are sorted by client name ascending. Movements referencing a client
// missing from names keep an empty name; they still aggregate.
func SummarizeByClient(movements []Movement, names map[ClientID]string) []ClientReport {
	groups := make(map[ClientID][]Movement)
	for _, m := range movements {
		groups[m.ClientID] = append(groups[m.ClientID], m)
	}

	reports := make([]ClientReport, 0, len(groups))
	for id, ms := range groups {
		reports = append(reports, ClientReport{
			ClientID:   id,
			ClientName: names[id],
			Report:     Summarize(ms),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].ClientName != reports[j].ClientName {
			return reports[i].ClientName < reports[j].ClientName
		}
		return reports[i].ClientID < reports[j].ClientID
	})
	return reports
}

// SummarizeByBeer groups movements by beer, sorted by beer name ascending.
func SummarizeByBeer(movements []Movement, names map[BeerID]string) []BeerReport {
	groups := make(map[BeerID][]Movement)
	for _, m := range movements {
		groups[m.BeerID] = append(groups[m.BeerID], m)
	}

	reports := make([]BeerReport, 0, len(groups))
	for id, ms := range groups {
		reports = append(reports, BeerReport{
			BeerID:   id,
			BeerName: names[id],
			Report:   Summarize(ms),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].BeerName != reports[j].BeerName {
			return reports[i].BeerName < reports[j].BeerName
		}
		return reports[i].BeerID < reports[j].BeerID
	})
	return reports
}
