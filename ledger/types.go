/*
Package ledger provides the core keg-deposit ("consigne") ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking keg
  deliveries and returns between a distributor and its clients. Every
  delivery and return is one immutable Movement row; outstanding keg counts
  and deposit balances are always recomputed from the movement history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client: A customer (bar, restaurant) that receives kegs
  - Beer: Immutable catalog reference data with price and deposit per keg
  - Movement: One ledger entry (delivery or return of N kegs)
  - MovementType: delivery, return_full, return_empty

DESIGN PRINCIPLES:
  1. Frozen values: Movements copy the beer's price and deposit at creation
     time. Catalog edits never change the value of historical movements.
  2. Precision: Uses decimal.Decimal for all money to avoid floating-point
     drift across many small additions.
  3. Recompute, don't cache: No running balance is stored; every report
     replays the raw movement rows.

SEE ALSO:
  - balance.go: Aggregate computation from movements
  - service.go: Validation, creation, duplicate suppression
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID int64
type BeerID int64
type MovementID string

// =============================================================================
// MOVEMENT TYPE
// =============================================================================

type MovementType string

const (
	// TypeDelivery records kegs going out to a client. Charges the deposit.
	TypeDelivery MovementType = "delivery"

	// TypeReturnFull records full kegs coming back (wrong beer sent, refused
	// delivery). Credits the goods value but not the deposit.
	TypeReturnFull MovementType = "return_full"

	// TypeReturnEmpty records empty kegs coming back. Triggers the deposit
	// refund.
	TypeReturnEmpty MovementType = "return_empty"
)

// ParseMovementType validates a wire-level movement type string.
// The legacy single-return form "return" maps to an empty-keg return,
// which is what it meant in practice (deposit refund trigger).
func ParseMovementType(s string) (MovementType, bool) {
	switch MovementType(s) {
	case TypeDelivery, TypeReturnFull, TypeReturnEmpty:
		return MovementType(s), true
	}
	if s == "return" {
		return TypeReturnEmpty, true
	}
	return "", false
}

// IsReturn reports whether the type credits goods value back to the client.
func (t MovementType) IsReturn() bool {
	return t == TypeReturnFull || t == TypeReturnEmpty
}

// =============================================================================
// CLIENT - Customer reference data
// =============================================================================

type Client struct {
	ID        ClientID
	Name      string // unique
	Address   string
	Email     string
	TaxID     string
	CreatedAt time.Time
}

// =============================================================================
// BEER - Immutable catalog reference data
// =============================================================================

// Beer is catalog reference data. Rows are only ever added, never edited:
// price changes are new catalog rows, and historical movements keep the
// values that were current when they were created.
type Beer struct {
	ID            BeerID
	Name          string // unique
	VolumeLiters  float64
	PriceTTC      decimal.Decimal // price per keg, tax included
	DepositPerKeg decimal.Decimal
	CreatedAt     time.Time
}

// =============================================================================
// MOVEMENT - The ledger entry
// =============================================================================

// Movement is one immutable ledger entry. PricePerKeg and DepositPerKeg are
// frozen copies of the beer's catalog values at creation time; a movement's
// contribution to any total is a function of its own fields only.
type Movement struct {
	ID       MovementID
	Date     time.Time // business date, day granularity, UTC
	Type     MovementType
	ClientID ClientID
	BeerID   BeerID
	Quantity int

	// Frozen at creation time, copied from the Beer record.
	PricePerKeg   decimal.Decimal
	DepositPerKeg decimal.Decimal

	Note string

	// IdempotencyKey dedupes retried submissions. Optional.
	IdempotencyKey string

	// CreatedAt is the record timestamp, used only for duplicate-submission
	// detection, never for business logic.
	CreatedAt time.Time
}

// qty returns the quantity as a decimal for money arithmetic.
func (m Movement) qty() decimal.Decimal {
	return decimal.NewFromInt(int64(m.Quantity))
}

// GoodsValue returns the signed billable goods value of this movement:
// deliveries positive, returns (full or empty) negative.
func (m Movement) GoodsValue() decimal.Decimal {
	v := m.PricePerKeg.Mul(m.qty())
	if m.Type.IsReturn() {
		return v.Neg()
	}
	return v
}

// DepositCharged returns the deposit charged by this movement (deliveries
// only).
func (m Movement) DepositCharged() decimal.Decimal {
	if m.Type != TypeDelivery {
		return decimal.Zero
	}
	return m.DepositPerKeg.Mul(m.qty())
}

// DepositRefunded returns the deposit credited back by this movement
// (empty-keg returns only).
func (m Movement) DepositRefunded() decimal.Decimal {
	if m.Type != TypeReturnEmpty {
		return decimal.Zero
	}
	return m.DepositPerKeg.Mul(m.qty())
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// MustDecimal parses a decimal literal, panicking on malformed input.
// Use only for compile-time constants (catalog seeds, tests).
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// FormatMoney renders a monetary amount with two-digit precision,
// rounding half up.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Day truncates a time to midnight UTC. All business dates are stored at
// day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
