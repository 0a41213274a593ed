package ledger

import (
	"context"
)

// =============================================================================
// CATALOG SEED - Fixed beer reference data inserted at startup
// =============================================================================

// DefaultDepositPerKeg is the standard consigne charged per keg: debited on
// delivery, credited back when the empty comes home.
var DefaultDepositPerKeg = MustDecimal("30.00")

// DefaultCatalog is the distributor's keg range with TTC prices. Seeded once
// at process start; names already present are left untouched, so a price
// change in this table never touches an existing row.
var DefaultCatalog = []Beer{
	{Name: "Coreff Blonde 20L", VolumeLiters: 20, PriceTTC: MustDecimal("68.00")},
	{Name: "Coreff Blonde 30L", VolumeLiters: 30, PriceTTC: MustDecimal("102.00")},
	{Name: "Coreff Blonde Bio 20L", VolumeLiters: 20, PriceTTC: MustDecimal("74.00")},
	{Name: "Coreff Blonde Bio 30L", VolumeLiters: 30, PriceTTC: MustDecimal("110.00")},
	{Name: "Coreff IPA 20L", VolumeLiters: 20, PriceTTC: MustDecimal("85.00")},
	{Name: "Coreff IPA 30L", VolumeLiters: 30, PriceTTC: MustDecimal("127.00")},
	{Name: "Coreff Blanche 20L", VolumeLiters: 20, PriceTTC: MustDecimal("81.00")},
	{Name: "Coreff Rousse 20L", VolumeLiters: 20, PriceTTC: MustDecimal("82.00")},
	{Name: "Coreff Ambrée 22L", VolumeLiters: 22, PriceTTC: MustDecimal("78.00")},
	{Name: "Cidre Val de Rance 20L", VolumeLiters: 20, PriceTTC: MustDecimal("96.00")},
}

// SeedCatalog inserts the default catalog rows whose names are not already
// present. Returns how many rows were added.
func SeedCatalog(ctx context.Context, store Store) (int, error) {
	added := 0
	for _, b := range DefaultCatalog {
		existing, err := store.GetBeerByName(ctx, b.Name)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		if b.DepositPerKeg.IsZero() {
			b.DepositPerKeg = DefaultDepositPerKeg
		}
		if _, err := store.CreateBeer(ctx, b); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
