package matching

import "inventory-sync-backend/internal/services/snapshot"

// MatchedPair aligns one updatable Shopify variant with its Square
// counterpart for a single reconciliation pass.
type MatchedPair struct {
	IdentityKey string
	Square      snapshot.InventoryRecord
	Shopify     snapshot.InventoryRecord
}

// Match aligns the two snapshots by identity key. A pair is produced for each
// Shopify record that has a platform item id and a Square record under the
// same key; everything else is skipped. Unmatched Square items never create
// Shopify products.
//
// Duplicate Square identity keys are last-write-wins: the later variation
// overwrites the earlier in the lookup. The duplicated keys are returned so
// the caller can log them.
func Match(squareRecords, shopifyRecords []snapshot.InventoryRecord) ([]MatchedPair, []string) {
	lookup := make(map[string]snapshot.InventoryRecord, len(squareRecords))
	var duplicates []string
	for _, rec := range squareRecords {
		if _, seen := lookup[rec.IdentityKey]; seen {
			duplicates = append(duplicates, rec.IdentityKey)
		}
		lookup[rec.IdentityKey] = rec
	}

	var pairs []MatchedPair
	for _, rec := range shopifyRecords {
		if rec.PlatformItemID == "" {
			continue
		}
		squareRec, ok := lookup[rec.IdentityKey]
		if !ok {
			continue
		}
		pairs = append(pairs, MatchedPair{
			IdentityKey: rec.IdentityKey,
			Square:      squareRec,
			Shopify:     rec,
		})
	}
	return pairs, duplicates
}
