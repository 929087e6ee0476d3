package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client is a thin wrapper over the Square REST API. One instance per
// merchant; construct it from the user's stored credentials and pass it in,
// never share a process-wide client.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

const apiVersion = "2023-07-20"

func NewClient(accessToken, environment string) (*Client, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("square access token is empty")
	}

	baseURL := strings.TrimSpace(os.Getenv("SQUARE_API_BASE_URL"))
	if baseURL == "" {
		if environment == "production" {
			baseURL = "https://connect.squareup.com"
		} else {
			baseURL = "https://connect.squareupsandbox.com"
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type CatalogItem struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	ItemData *ItemData `json:"item_data"`
}

type ItemData struct {
	Name       string          `json:"name"`
	Variations []CatalogObject `json:"variations"`
}

type CatalogObject struct {
	ID                string             `json:"id"`
	ItemVariationData *ItemVariationData `json:"item_variation_data"`
}

type ItemVariationData struct {
	SKU string `json:"sku"`
}

// InventoryCount quantities come back as strings on the wire.
type InventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	Quantity        string `json:"quantity"`
}

type listCatalogResponse struct {
	Objects []CatalogItem `json:"objects"`
	Cursor  string        `json:"cursor"`
}

type inventoryCountResponse struct {
	Counts []InventoryCount `json:"counts"`
}

// ListCatalogItems pages through the full ITEM catalog.
func (c *Client) ListCatalogItems(ctx context.Context) ([]CatalogItem, error) {
	var items []CatalogItem
	cursor := ""

	for {
		params := url.Values{}
		params.Set("types", "ITEM")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var parsed listCatalogResponse
		if err := c.get(ctx, "/v2/catalog/list", params, &parsed); err != nil {
			return nil, err
		}
		items = append(items, parsed.Objects...)

		if parsed.Cursor == "" {
			return items, nil
		}
		cursor = parsed.Cursor
	}
}

// GetInventoryCounts fetches the per-location counts for one variation.
func (c *Client) GetInventoryCounts(ctx context.Context, variationID string) ([]InventoryCount, error) {
	var parsed inventoryCountResponse
	if err := c.get(ctx, "/v2/inventory/"+url.PathEscape(variationID), nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Counts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", apiVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("square api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, dest)
}
