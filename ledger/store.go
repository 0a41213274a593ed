/*
store.go - Persistence interface for the keg ledger

PURPOSE:
  Defines the interface between domain logic and the database. Movements are
  append-then-delete only: no update path exists, because a movement's frozen
  price/deposit fields must never change after creation. Deletion is the one
  mutation, and it is a hard delete.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests
*/
package ledger

import (
	"context"
	"time"
)

// Filter scopes movement loads and reports. Nil fields mean "all".
type Filter struct {
	ClientID *ClientID
	BeerID   *BeerID
	Range    *DateRange
}

// Store handles persistence for clients, beers, and movements.
// Movements have no update operation; frozen fields stay frozen.
type Store interface {
	// Clients.
	CreateClient(ctx context.Context, c Client) (Client, error)
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	// DeleteClient removes a client row. The caller is responsible for the
	// referenced-movements check; the FK constraint is the backstop.
	DeleteClient(ctx context.Context, id ClientID) error
	ClientHasMovements(ctx context.Context, id ClientID) (bool, error)

	// Beers (catalog; rows are added, never edited).
	CreateBeer(ctx context.Context, b Beer) (Beer, error)
	GetBeer(ctx context.Context, id BeerID) (*Beer, error)
	GetBeerByName(ctx context.Context, name string) (*Beer, error)
	ListBeers(ctx context.Context) ([]Beer, error)

	// Movements.
	Append(ctx context.Context, m Movement) error
	GetMovement(ctx context.Context, id MovementID) (*Movement, error)
	// GetByIdempotencyKey returns the movement stored under key, or nil.
	GetByIdempotencyKey(ctx context.Context, key string) (*Movement, error)
	// FindRecentMatch returns the most recent movement with an identical
	// payload (date, type, client, beer, quantity, note) created at or after
	// since, or nil. Used for duplicate-submission suppression.
	FindRecentMatch(ctx context.Context, m Movement, since time.Time) (*Movement, error)
	// Load returns movements matching the filter, date descending then
	// creation time descending (newest first).
	Load(ctx context.Context, f Filter) ([]Movement, error)
	// Delete hard-deletes one movement. ErrMovementNotFound if absent.
	Delete(ctx context.Context, id MovementID) error
}
