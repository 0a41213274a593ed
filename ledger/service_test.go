package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kegtracer/engine/ledger"
	"github.com/kegtracer/engine/ledger/store"
)

// fixture wires a service over the in-memory store with a steppable clock
// and one client and one beer ready to use.
type fixture struct {
	svc    *ledger.Service
	store  *store.Memory
	client ledger.Client
	beer   ledger.Beer
	now    time.Time
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store: store.NewMemory(),
		now:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	opts = append([]ledger.Option{ledger.WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = ledger.NewService(f.store, opts...)

	var err error
	f.client, err = f.svc.CreateClient(ctx, ledger.Client{Name: "Le Zinc"})
	require.NoError(t, err)
	f.beer, err = f.svc.CreateBeer(ctx, ledger.Beer{
		Name:          "Coreff IPA 20L",
		VolumeLiters:  20,
		PriceTTC:      ledger.MustDecimal("85.00"),
		DepositPerKeg: ledger.MustDecimal("30.00"),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) delivery(qty int) ledger.CreateMovementInput {
	return ledger.CreateMovementInput{
		Date:     f.now,
		Type:     ledger.TypeDelivery,
		ClientID: f.client.ID,
		BeerID:   f.beer.ID,
		Quantity: qty,
	}
}

// =============================================================================
// MOVEMENT CREATION
// =============================================================================

func TestCreateMovementFreezesCatalogValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN a delivery recorded at today's catalog price
	m, err := f.svc.CreateMovement(ctx, f.delivery(3))
	require.NoError(t, err)
	assert.Equal(t, "85.00", ledger.FormatMoney(m.PricePerKeg))
	assert.Equal(t, "30.00", ledger.FormatMoney(m.DepositPerKeg))

	// WHEN the catalog row changes underneath it
	f.store.UpdateBeerPrice(f.beer.ID, "99.00", "40.00")

	// THEN the stored movement keeps its frozen values
	got, err := f.svc.GetMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "85.00", ledger.FormatMoney(got.PricePerKeg))
	assert.Equal(t, "30.00", ledger.FormatMoney(got.DepositPerKeg))

	// AND a new delivery freezes the new values
	f.now = f.now.Add(time.Minute)
	m2, err := f.svc.CreateMovement(ctx, f.delivery(1))
	require.NoError(t, err)
	assert.Equal(t, "99.00", ledger.FormatMoney(m2.PricePerKeg))
	assert.Equal(t, "40.00", ledger.FormatMoney(m2.DepositPerKeg))
}

func TestCreateMovementValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		in := f.delivery(0)
		_, err := f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		in.Quantity = -2
		_, err = f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
	})

	t.Run("rejects unknown movement type", func(t *testing.T) {
		in := f.delivery(1)
		in.Type = "pickup"
		_, err := f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrInvalidMovementType)
	})

	t.Run("rejects zero date", func(t *testing.T) {
		in := f.delivery(1)
		in.Date = time.Time{}
		_, err := f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrInvalidDate)
	})

	t.Run("rejects unknown client", func(t *testing.T) {
		in := f.delivery(1)
		in.ClientID = 9999
		_, err := f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrClientNotFound)
	})

	t.Run("rejects unknown beer", func(t *testing.T) {
		in := f.delivery(1)
		in.BeerID = 9999
		_, err := f.svc.CreateMovement(ctx, in)
		assert.ErrorIs(t, err, ledger.ErrBeerNotFound)
	})
}

func TestCreateMovementTruncatesDateToDay(t *testing.T) {
	f := newFixture(t)

	in := f.delivery(1)
	in.Date = time.Date(2024, 3, 15, 18, 45, 12, 0, time.UTC)

	m, err := f.svc.CreateMovement(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), m.Date)
}

// =============================================================================
// DUPLICATE SUPPRESSION
// =============================================================================

func TestIdempotencyKeyReturnsSameMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.delivery(2)
	in.IdempotencyKey = "order-42"

	first, err := f.svc.CreateMovement(ctx, in)
	require.NoError(t, err)

	// WHEN the same key is submitted again, hours later
	f.now = f.now.Add(6 * time.Hour)
	second, err := f.svc.CreateMovement(ctx, in)
	require.NoError(t, err)

	// THEN no new row is created
	assert.Equal(t, first.ID, second.ID)
	movements, err := f.svc.ListMovements(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestPayloadMatchSuppressesWithinWindow(t *testing.T) {
	f := newFixture(t, ledger.WithDuplicateWindow(15*time.Second))
	ctx := context.Background()

	// GIVEN a keyless submission
	first, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)

	// WHEN the identical payload arrives 5 seconds later (double form POST)
	f.now = f.now.Add(5 * time.Second)
	second, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)

	// THEN the existing row is returned
	assert.Equal(t, first.ID, second.ID)

	// BUT a different quantity is a new movement
	third, err := f.svc.CreateMovement(ctx, f.delivery(3))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestPayloadMatchExpiresAfterWindow(t *testing.T) {
	f := newFixture(t, ledger.WithDuplicateWindow(15*time.Second))
	ctx := context.Background()

	first, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)

	// WHEN the identical payload arrives after the window (a repeat order)
	f.now = f.now.Add(16 * time.Second)
	second, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)

	// THEN it is recorded as a new movement
	assert.NotEqual(t, first.ID, second.ID)
}

func TestZeroWindowDisablesPayloadMatch(t *testing.T) {
	f := newFixture(t, ledger.WithDuplicateWindow(0))
	ctx := context.Background()

	first, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)
	second, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

// =============================================================================
// DELETION
// =============================================================================

func TestDeleteMovementIsUnconditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN a delivery and its matching empty return
	delivered, err := f.svc.CreateMovement(ctx, f.delivery(2))
	require.NoError(t, err)
	ret := f.delivery(2)
	ret.Type = ledger.TypeReturnEmpty
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.CreateMovement(ctx, ret)
	require.NoError(t, err)

	// WHEN the delivery is deleted out from under the return
	require.NoError(t, f.svc.DeleteMovement(ctx, delivered.ID))

	// THEN the balance goes negative: deletion is a correction tool and
	// does not re-validate history
	res, err := f.svc.Report(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), res.Totals.OutstandingEmpties)
	assert.Equal(t, "-60.00", ledger.FormatMoney(res.Totals.DepositBalance))
}

func TestDeleteMovementNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteMovement(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ledger.ErrMovementNotFound)
}

func TestDeleteClientBlockedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateMovement(ctx, f.delivery(1))
	require.NoError(t, err)

	// WHEN deleting a client that still has ledger rows
	err = f.svc.DeleteClient(ctx, f.client.ID)

	// THEN the deletion is refused as a conflict
	assert.ErrorIs(t, err, ledger.ErrClientHasMovements)
	assert.True(t, ledger.IsConflict(err))
}

func TestDeleteClientWithoutMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.svc.CreateClient(ctx, ledger.Client{Name: "Au Comptoir"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteClient(ctx, other.ID))
	err = f.svc.DeleteClient(ctx, other.ID)
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)
}

// =============================================================================
// CLIENTS AND BEERS
// =============================================================================

func TestCreateClientValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateClient(ctx, ledger.Client{Name: "   "})
	assert.ErrorIs(t, err, ledger.ErrNameRequired)

	_, err = f.svc.CreateClient(ctx, ledger.Client{Name: "Le Zinc"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateName)
}

func TestCreateBeerRejectsNegativeAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBeer(ctx, ledger.Beer{
		Name:     "Broken",
		PriceTTC: ledger.MustDecimal("-1.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReportDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN one delivery this month and one in February
	_, err := f.svc.CreateMovement(ctx, f.delivery(3))
	require.NoError(t, err)
	old := f.delivery(5)
	old.Date = time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.CreateMovement(ctx, old)
	require.NoError(t, err)

	// WHEN reporting with no explicit range
	res, err := f.svc.Report(ctx, ledger.Filter{})
	require.NoError(t, err)

	// THEN only the current month's movement counts
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), res.Range.From)
	assert.Equal(t, int64(3), res.Totals.Delivered)

	// AND months_back=1 sees only February
	feb := ledger.MonthsBack(f.now, 1)
	res, err = f.svc.Report(ctx, ledger.Filter{Range: &feb})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Totals.Delivered)
}

func TestReportBreakdowns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.svc.CreateClient(ctx, ledger.Client{Name: "Au Comptoir"})
	require.NoError(t, err)

	_, err = f.svc.CreateMovement(ctx, f.delivery(3))
	require.NoError(t, err)
	in := f.delivery(1)
	in.ClientID = other.ID
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.CreateMovement(ctx, in)
	require.NoError(t, err)

	res, err := f.svc.Report(ctx, ledger.Filter{})
	require.NoError(t, err)

	// THEN totals cover both clients and rows come back sorted by name
	assert.Equal(t, int64(4), res.Totals.Delivered)
	require.Len(t, res.ByClient, 2)
	assert.Equal(t, "Au Comptoir", res.ByClient[0].ClientName)
	assert.Equal(t, int64(1), res.ByClient[0].Delivered)
	assert.Equal(t, "Le Zinc", res.ByClient[1].ClientName)
	assert.Equal(t, int64(3), res.ByClient[1].Delivered)
	require.Len(t, res.ByBeer, 1)
	assert.Equal(t, "Coreff IPA 20L", res.ByBeer[0].BeerName)

	// AND filtering by client scopes every aggregate
	res, err = f.svc.Report(ctx, ledger.Filter{ClientID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Totals.Delivered)
	assert.Equal(t, "30.00", ledger.FormatMoney(res.Totals.DepositCharged))
}

func TestReportRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)

	bad := ledger.DateRange{
		From: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := f.svc.Report(context.Background(), ledger.Filter{Range: &bad})
	assert.ErrorIs(t, err, ledger.ErrInvalidDate)
}

// =============================================================================
// CATALOG SEED
// =============================================================================

func TestSeedCatalogIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	added, err := ledger.SeedCatalog(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, len(ledger.DefaultCatalog), added)

	// Seeding again adds nothing
	added, err = ledger.SeedCatalog(ctx, mem)
	require.NoError(t, err)
	assert.Zero(t, added)

	// Every seeded row carries the standard consigne
	beers, err := mem.ListBeers(ctx)
	require.NoError(t, err)
	for _, b := range beers {
		assert.Equal(t, "30.00", ledger.FormatMoney(b.DepositPerKeg), b.Name)
	}
}
