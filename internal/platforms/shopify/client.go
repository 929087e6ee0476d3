package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session carries one user's shop domain and admin token into each call.
type Session struct {
	Shop        string
	AccessToken string
}

func NewSession(shop, accessToken string) Session {
	return Session{Shop: shop, AccessToken: accessToken}
}

// Client talks to the Shopify Admin REST API. It holds no per-user state;
// the session is explicit on every call.
type Client struct {
	apiVersion string
	http       *http.Client
}

const pageSize = 250

func NewClient() *Client {
	version := strings.TrimSpace(os.Getenv("SHOPIFY_API_VERSION"))
	if version == "" {
		version = "2023-07"
	}
	return &Client{
		apiVersion: version,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	ID              int64  `json:"id"`
	SKU             string `json:"sku"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

type listProductsResponse struct {
	Products []Product `json:"products"`
}

// ListProducts pages through the shop's products, pageSize at a time.
func (c *Client) ListProducts(ctx context.Context, session Session) ([]Product, error) {
	var products []Product
	sinceID := int64(0)

	for {
		endpoint := fmt.Sprintf("%s/products.json?limit=%d", c.base(session), pageSize)
		if sinceID > 0 {
			endpoint += "&since_id=" + strconv.FormatInt(sinceID, 10)
		}

		var parsed listProductsResponse
		if err := c.do(ctx, session, http.MethodGet, endpoint, nil, &parsed); err != nil {
			return nil, err
		}
		products = append(products, parsed.Products...)

		if len(parsed.Products) < pageSize {
			return products, nil
		}
		sinceID = parsed.Products[len(parsed.Products)-1].ID
	}
}

// SetInventoryLevel sets the available quantity for an inventory item at one
// location. The write is absolute, not a delta.
func (c *Client) SetInventoryLevel(ctx context.Context, session Session, inventoryItemID, locationID string, available int) error {
	itemID, err := strconv.ParseInt(inventoryItemID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid inventory item id %q: %w", inventoryItemID, err)
	}
	locID, err := strconv.ParseInt(locationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid location id %q: %w", locationID, err)
	}

	payload := map[string]interface{}{
		"inventory_item_id": itemID,
		"location_id":       locID,
		"available":         available,
	}
	endpoint := c.base(session) + "/inventory_levels/set.json"
	return c.do(ctx, session, http.MethodPost, endpoint, payload, nil)
}

func (c *Client) base(session Session) string {
	scheme := "https"
	if strings.TrimSpace(os.Getenv("SHOPIFY_INSECURE_HTTP")) == "true" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/admin/api/%s", scheme, session.Shop, c.apiVersion)
}

func (c *Client) do(ctx context.Context, session Session, method, endpoint string, payload interface{}, dest interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", session.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}
