// internal/pkg/commerce/client.go
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the client has no base URL
var ErrNotConfigured = errors.New("commerce backend URL is not configured")

// ErrProductNotFound is returned when neither id nor handle lookup finds a product
var ErrProductNotFound = errors.New("commerce product not found")

// APIError carries a non-success response from the backend
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Cart represents a backend cart
type Cart struct {
	ID       string     `json:"id"`
	RegionID string     `json:"region_id,omitempty"`
	Items    []LineItem `json:"items,omitempty"`
}

// LineItem represents one backend cart line
type LineItem struct {
	ID        string         `json:"id"`
	VariantID string         `json:"variant_id"`
	Quantity  int            `json:"quantity"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Product represents a backend product
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Handle   string    `json:"handle"`
	Variants []Variant `json:"variants,omitempty"`
}

// Variant represents a purchasable backend product variant
type Variant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	SKU   string `json:"sku,omitempty"`
}

// ListParams filters ListProducts
type ListParams struct {
	Limit  int
	Query  string
	Handle string
}

type cartResponse struct {
	Cart Cart `json:"cart"`
}

type productResponse struct {
	Product Product `json:"product"`
}

type productsResponse struct {
	Products []Product `json:"products"`
}

// Client talks to the store API of the commerce backend.
// Cookies set by the backend are kept and replayed on later calls.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a commerce client; trailing slashes on baseURL are ignored
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// CreateCart creates a cart, scoped to a region when regionID is set
func (c *Client) CreateCart(ctx context.Context, regionID string) (*Cart, error) {
	body := map[string]string{}
	if regionID != "" {
		body["region_id"] = regionID
	}

	var resp cartResponse
	if err := c.do(ctx, http.MethodPost, "/store/carts", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &resp.Cart, nil
}

// AddLineItem adds a variant to a cart with configuration metadata
func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int, metadata map[string]any) (*Cart, error) {
	body := map[string]any{
		"variant_id": variantID,
		"quantity":   quantity,
	}
	if metadata != nil {
		body["metadata"] = metadata
	}

	var resp cartResponse
	path := "/store/carts/" + url.PathEscape(cartID) + "/line-items"
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to add line item: %w", err)
	}
	return &resp.Cart, nil
}

// UpdateLineItem changes the quantity of a cart line
func (c *Client) UpdateLineItem(ctx context.Context, cartID, lineID string, quantity int) (*Cart, error) {
	body := map[string]int{"quantity": quantity}

	var resp cartResponse
	path := "/store/carts/" + url.PathEscape(cartID) + "/line-items/" + url.PathEscape(lineID)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to update line item: %w", err)
	}
	return &resp.Cart, nil
}

// ListProducts lists backend products
func (c *Client) ListProducts(ctx context.Context, params ListParams) ([]Product, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Query != "" {
		query.Set("q", params.Query)
	}
	if params.Handle != "" {
		query.Set("handle", params.Handle)
	}

	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "/store/products?"+query.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return resp.Products, nil
}

// RetrieveProduct looks a product up by id, falling back to a handle search
func (c *Client) RetrieveProduct(ctx context.Context, idOrHandle string) (*Product, error) {
	var resp productResponse
	err := c.do(ctx, http.MethodGet, "/store/products/"+url.PathEscape(idOrHandle), nil, &resp)
	if err == nil {
		return &resp.Product, nil
	}
	if errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
		return nil, err
	}

	products, listErr := c.ListProducts(ctx, ListParams{Handle: idOrHandle})
	if listErr != nil {
		return nil, listErr
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return &products[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Close releases idle keep-alive connections
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
