/*
service.go - Movement validation, creation, deletion, and reporting

PURPOSE:
  The Service is the one write path into the ledger. It validates referenced
  entities, freezes the beer's current price/deposit onto the new movement,
  suppresses duplicate submissions, and serves the aggregate reports.

DUPLICATE SUPPRESSION:
  Two mechanisms, strongest first:
  1. Caller-supplied idempotency key: the same key always returns the same
     stored movement. This is the robust path for retrying clients.
  2. Payload match within a short window: with no key, an identical payload
     submitted within the window of the latest matching row returns that row
     instead of inserting. This guards against double form POSTs, not against
     legitimate repeat orders, so the window stays short.
  Two concurrent identical submissions can race past the window check; the
  window is cosmetic, not correctness-critical, and the store's transaction
  isolation is the only serialization.

CONCURRENCY:
  Each operation is one request-scoped call against the store. No in-process
  aggregate caching, no background jobs, no retries; failures propagate.
*/
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDuplicateWindow bounds the payload-match duplicate suppression.
const DefaultDuplicateWindow = 15 * time.Second

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store     Store
	now       func() time.Time
	dupWindow time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a clock, used by tests to step through the duplicate
// suppression window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDuplicateWindow overrides the payload-match suppression window.
// Zero disables payload matching (idempotency keys still apply).
func WithDuplicateWindow(d time.Duration) Option {
	return func(s *Service) { s.dupWindow = d }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		now:       time.Now,
		dupWindow: DefaultDuplicateWindow,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// =============================================================================
// CLIENTS
// =============================================================================

// CreateClient registers a new client. Names are unique.
func (s *Service) CreateClient(ctx context.Context, c Client) (Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Client{}, ErrNameRequired
	}
	c.CreatedAt = s.now().UTC()
	created, err := s.store.CreateClient(ctx, c)
	if err != nil {
		return Client{}, err
	}
	return created, nil
}

func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	return s.store.ListClients(ctx)
}

// DeleteClient removes a client. Blocked while any movement references it:
// cascading would silently rewrite ledger history.
func (s *Service) DeleteClient(ctx context.Context, id ClientID) error {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return &NotFoundError{Kind: "client", ID: formatID(int64(id))}
	}
	referenced, err := s.store.ClientHasMovements(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return &ConflictError{Kind: "client", Name: c.Name, Reason: ErrClientHasMovements}
	}
	return s.store.DeleteClient(ctx, id)
}

// =============================================================================
// BEERS
// =============================================================================

// CreateBeer adds a catalog row. There is no edit or versioning; a price
// change is a new row with a new name.
func (s *Service) CreateBeer(ctx context.Context, b Beer) (Beer, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return Beer{}, ErrNameRequired
	}
	if b.PriceTTC.IsNegative() || b.DepositPerKeg.IsNegative() {
		return Beer{}, ErrInvalidAmount
	}
	b.CreatedAt = s.now().UTC()
	created, err := s.store.CreateBeer(ctx, b)
	if err != nil {
		return Beer{}, err
	}
	return created, nil
}

func (s *Service) ListBeers(ctx context.Context) ([]Beer, error) {
	return s.store.ListBeers(ctx)
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// CreateMovementInput is the validated payload for a new ledger entry.
type CreateMovementInput struct {
	Date           time.Time
	Type           MovementType
	ClientID       ClientID
	BeerID         BeerID
	Quantity       int
	Note           string
	IdempotencyKey string
}

// CreateMovement validates the input, freezes the beer's current price and
// deposit onto the movement, and appends it. Returns the stored movement,
// which is an existing row when duplicate suppression matched.
func (s *Service) CreateMovement(ctx context.Context, in CreateMovementInput) (*Movement, error) {
	if _, ok := ParseMovementType(string(in.Type)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMovementType, in.Type)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, in.Quantity)
	}
	if in.Date.IsZero() {
		return nil, ErrInvalidDate
	}

	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, &NotFoundError{Kind: "client", ID: formatID(int64(in.ClientID))}
	}

	beer, err := s.store.GetBeer(ctx, in.BeerID)
	if err != nil {
		return nil, err
	}
	if beer == nil {
		return nil, &NotFoundError{Kind: "beer", ID: formatID(int64(in.BeerID))}
	}

	// Idempotency key wins over everything: same key, same row.
	if in.IdempotencyKey != "" {
		existing, err := s.store.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := s.now().UTC()
	m := Movement{
		ID:             MovementID(uuid.NewString()),
		Date:           Day(in.Date),
		Type:           in.Type,
		ClientID:       in.ClientID,
		BeerID:         in.BeerID,
		Quantity:       in.Quantity,
		PricePerKeg:    beer.PriceTTC,
		DepositPerKeg:  beer.DepositPerKeg,
		Note:           strings.TrimSpace(in.Note),
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
	}

	// Keyless retries: an identical payload inside the window is treated as
	// a duplicate form POST and resolved to the existing row.
	if in.IdempotencyKey == "" && s.dupWindow > 0 {
		match, err := s.store.FindRecentMatch(ctx, m, now.Add(-s.dupWindow))
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	if err := s.store.Append(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMovement fetches one movement by id.
func (s *Service) GetMovement(ctx context.Context, id MovementID) (*Movement, error) {
	m, err := s.store.GetMovement(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &NotFoundError{Kind: "movement", ID: string(id)}
	}
	return m, nil
}

// ListMovements returns movements matching the filter, newest first.
// No default range: an empty filter lists the whole ledger.
func (s *Service) ListMovements(ctx context.Context, f Filter) ([]Movement, error) {
	return s.store.Load(ctx, f)
}

// DeleteMovement hard-deletes one row, unconditionally. No balance
// re-validation runs: deleting returns out of order can drive a client's
// outstanding count negative, which is accepted correction behavior.
func (s *Service) DeleteMovement(ctx context.Context, id MovementID) error {
	return s.store.Delete(ctx, id)
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportResult bundles the global aggregates with both breakdowns and the
// resolved date range.
type ReportResult struct {
	Range    DateRange
	Totals   Report
	ByClient []ClientReport
	ByBeer   []BeerReport
}

// Report computes aggregates over the filter scope. A nil range defaults to
// the current calendar month to date.
func (s *Service) Report(ctx context.Context, f Filter) (*ReportResult, error) {
	if f.Range == nil {
		r := CurrentMonthToDate(s.now().UTC())
		f.Range = &r
	}
	if !f.Range.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDate, f.Range)
	}

	movements, err := s.store.Load(ctx, f)
	if err != nil {
		return nil, err
	}

	clientNames, err := s.clientNames(ctx)
	if err != nil {
		return nil, err
	}
	beerNames, err := s.beerNames(ctx)
	if err != nil {
		return nil, err
	}

	return &ReportResult{
		Range:    *f.Range,
		Totals:   Summarize(movements),
		ByClient: SummarizeByClient(movements, clientNames),
		ByBeer:   SummarizeByBeer(movements, beerNames),
	}, nil
}

func (s *Service) clientNames(ctx context.Context) (map[ClientID]string, error) {
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[ClientID]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *Service) beerNames(ctx context.Context) (map[BeerID]string, error) {
	beers, err := s.store.ListBeers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[BeerID]string, len(beers))
	for _, b := range beers {
		names[b.ID] = b.Name
	}
	return names, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
