package snapshot

import (
	"context"
	"fmt"
	"strconv"

	"inventory-sync-backend/internal/platforms/shopify"
	"inventory-sync-backend/internal/platforms/square"
)

// InventoryRecord is the normalized, platform-agnostic view of one sellable
// unit. Records live only for the duration of a single sync run.
type InventoryRecord struct {
	IdentityKey    string
	PlatformItemID string
	Quantity       int
	LocationID     string
}

// SquareAPI is the slice of the Square client the builder needs.
type SquareAPI interface {
	ListCatalogItems(ctx context.Context) ([]square.CatalogItem, error)
	GetInventoryCounts(ctx context.Context, variationID string) ([]square.InventoryCount, error)
}

// ShopifyAPI is the slice of the Shopify client the builder needs.
type ShopifyAPI interface {
	ListProducts(ctx context.Context, session shopify.Session) ([]shopify.Product, error)
}

// Builder flattens both platforms into comparable records. A failure listing
// either catalog is fatal: no partial snapshot is usable.
type Builder struct {
	square  SquareAPI
	shopify ShopifyAPI
}

func NewBuilder(squareAPI SquareAPI, shopifyAPI ShopifyAPI) *Builder {
	return &Builder{square: squareAPI, shopify: shopifyAPI}
}

// SquareSnapshot lists the ITEM catalog and, variation by variation, fetches
// inventory counts and sums them across locations. The identity key is the
// variation SKU, falling back to the parent item's name when the SKU is
// empty. A count fetch failure aborts the snapshot.
func (b *Builder) SquareSnapshot(ctx context.Context) ([]InventoryRecord, error) {
	items, err := b.square.ListCatalogItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing square catalog: %w", err)
	}

	var records []InventoryRecord
	for _, item := range items {
		if item.ItemData == nil {
			continue
		}
		for _, variation := range item.ItemData.Variations {
			key := ""
			if variation.ItemVariationData != nil {
				key = variation.ItemVariationData.SKU
			}
			if key == "" {
				key = item.ItemData.Name
			}
			if key == "" {
				continue
			}

			counts, err := b.square.GetInventoryCounts(ctx, variation.ID)
			if err != nil {
				return nil, fmt.Errorf("fetching inventory count for %s: %w", variation.ID, err)
			}

			total := 0
			locationID := ""
			for _, count := range counts {
				if n, err := strconv.Atoi(count.Quantity); err == nil {
					total += n
				}
			}
			if total < 0 {
				total = 0
			}
			if len(counts) > 0 {
				locationID = counts[0].LocationID
			}

			records = append(records, InventoryRecord{
				IdentityKey:    key,
				PlatformItemID: variation.ID,
				Quantity:       total,
				LocationID:     locationID,
			})
		}
	}
	return records, nil
}

// ShopifySnapshot lists products and flattens them to variants. The identity
// key is the variant SKU, falling back to the product title. The platform
// item id is the variant's inventory_item_id; variants without one produce a
// record with an empty id and are skipped later by the matcher.
func (b *Builder) ShopifySnapshot(ctx context.Context, session shopify.Session) ([]InventoryRecord, error) {
	products, err := b.shopify.ListProducts(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("listing shopify products: %w", err)
	}

	var records []InventoryRecord
	for _, product := range products {
		for _, variant := range product.Variants {
			key := variant.SKU
			if key == "" {
				key = product.Title
			}
			if key == "" {
				continue
			}

			itemID := ""
			if variant.InventoryItemID != 0 {
				itemID = strconv.FormatInt(variant.InventoryItemID, 10)
			}

			records = append(records, InventoryRecord{
				IdentityKey:    key,
				PlatformItemID: itemID,
			})
		}
	}
	return records, nil
}
