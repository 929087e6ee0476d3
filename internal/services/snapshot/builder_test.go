package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sync-backend/internal/platforms/shopify"
	"inventory-sync-backend/internal/platforms/square"
)

type fakeSquare struct {
	items  []square.CatalogItem
	counts map[string][]square.InventoryCount
	errFor string
}

func (f *fakeSquare) ListCatalogItems(ctx context.Context) ([]square.CatalogItem, error) {
	return f.items, nil
}

func (f *fakeSquare) GetInventoryCounts(ctx context.Context, variationID string) ([]square.InventoryCount, error) {
	if variationID == f.errFor {
		return nil, errors.New("square unavailable")
	}
	return f.counts[variationID], nil
}

type fakeShopify struct {
	products []shopify.Product
	err      error
}

func (f *fakeShopify) ListProducts(ctx context.Context, session shopify.Session) ([]shopify.Product, error) {
	return f.products, f.err
}

func squareItem(name string, variations ...square.CatalogObject) square.CatalogItem {
	return square.CatalogItem{
		Type: "ITEM",
		ItemData: &square.ItemData{
			Name:       name,
			Variations: variations,
		},
	}
}

func TestSquareSnapshotSumsCountsAcrossLocations(t *testing.T) {
	sq := &fakeSquare{
		items: []square.CatalogItem{
			squareItem("Widget", square.CatalogObject{
				ID:                "var_1",
				ItemVariationData: &square.ItemVariationData{SKU: "A1"},
			}),
		},
		counts: map[string][]square.InventoryCount{
			"var_1": {
				{CatalogObjectID: "var_1", LocationID: "loc_1", Quantity: "3"},
				{CatalogObjectID: "var_1", LocationID: "loc_2", Quantity: "4"},
			},
		},
	}

	records, err := NewBuilder(sq, &fakeShopify{}).SquareSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A1", records[0].IdentityKey)
	assert.Equal(t, "var_1", records[0].PlatformItemID)
	assert.Equal(t, 7, records[0].Quantity)
	assert.Equal(t, "loc_1", records[0].LocationID)
}

func TestSquareSnapshotFallsBackToItemName(t *testing.T) {
	sq := &fakeSquare{
		items: []square.CatalogItem{
			squareItem("Plain Mug", square.CatalogObject{
				ID:                "var_1",
				ItemVariationData: &square.ItemVariationData{SKU: ""},
			}),
		},
		counts: map[string][]square.InventoryCount{},
	}

	records, err := NewBuilder(sq, &fakeShopify{}).SquareSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Plain Mug", records[0].IdentityKey)
	assert.Equal(t, 0, records[0].Quantity)
}

func TestSquareSnapshotCountFailureIsFatal(t *testing.T) {
	sq := &fakeSquare{
		items: []square.CatalogItem{
			squareItem("Widget",
				square.CatalogObject{ID: "var_1", ItemVariationData: &square.ItemVariationData{SKU: "A1"}},
				square.CatalogObject{ID: "var_2", ItemVariationData: &square.ItemVariationData{SKU: "B2"}},
			),
		},
		counts: map[string][]square.InventoryCount{
			"var_1": {{CatalogObjectID: "var_1", LocationID: "loc_1", Quantity: "1"}},
		},
		errFor: "var_2",
	}

	records, err := NewBuilder(sq, &fakeShopify{}).SquareSnapshot(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "var_2")
}

func TestSquareSnapshotNegativeTotalClampedToZero(t *testing.T) {
	sq := &fakeSquare{
		items: []square.CatalogItem{
			squareItem("Widget", square.CatalogObject{
				ID:                "var_1",
				ItemVariationData: &square.ItemVariationData{SKU: "A1"},
			}),
		},
		counts: map[string][]square.InventoryCount{
			"var_1": {{CatalogObjectID: "var_1", LocationID: "loc_1", Quantity: "-2"}},
		},
	}

	records, err := NewBuilder(sq, &fakeShopify{}).SquareSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Quantity)
}

func TestShopifySnapshotFlattensVariants(t *testing.T) {
	sh := &fakeShopify{
		products: []shopify.Product{
			{
				ID:    100,
				Title: "Widget",
				Variants: []shopify.Variant{
					{ID: 1, SKU: "A1", InventoryItemID: 9001},
					{ID: 2, SKU: "", InventoryItemID: 9002},
					{ID: 3, SKU: "C3", InventoryItemID: 0},
				},
			},
		},
	}

	records, err := NewBuilder(&fakeSquare{}, sh).ShopifySnapshot(context.Background(), shopify.NewSession("demo.myshopify.com", "token"))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "A1", records[0].IdentityKey)
	assert.Equal(t, "9001", records[0].PlatformItemID)

	// Empty SKU falls back to the product title.
	assert.Equal(t, "Widget", records[1].IdentityKey)
	assert.Equal(t, "9002", records[1].PlatformItemID)

	// No inventory item id yields an empty platform id.
	assert.Equal(t, "C3", records[2].IdentityKey)
	assert.Equal(t, "", records[2].PlatformItemID)
}

func TestShopifySnapshotListFailureIsFatal(t *testing.T) {
	sh := &fakeShopify{err: errors.New("shopify unavailable")}

	records, err := NewBuilder(&fakeSquare{}, sh).ShopifySnapshot(context.Background(), shopify.NewSession("demo.myshopify.com", "token"))
	require.Error(t, err)
	assert.Nil(t, records)
}
