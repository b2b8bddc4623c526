// internal/interfaces/http/handlers/product.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// listParams are the query parameters that override persisted list preferences
var listParams = []string{"q", "category", "sort", "min_price", "max_price"}

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	productService *product.Service
	cartService    *cart.Service
	log            logrus.FieldLogger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, cartService *cart.Service, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		cartService:    cartService,
		log:            log,
	}
}

// SelectionRequest carries the shopper's current part and option picks
type SelectionRequest struct {
	SelectedParts   []string `json:"selected_parts"`
	SelectedOptions []string `json:"selected_options"`
}

func (r SelectionRequest) selection() product.Selection {
	return product.Selection{
		Parts:   product.Dedupe(r.SelectedParts),
		Options: product.Dedupe(r.SelectedOptions),
	}
}

// PriceRequest represents a price breakdown request
type PriceRequest struct {
	SelectionRequest
	Quantity int `json:"quantity"`
}

// GetProducts handles GET /products.
// Without query parameters the session's saved filters apply; supplied parameters replace them.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)
	ctx := c.Request.Context()

	var req product.ProductListRequest
	if hasListParams(c) {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid query parameters",
				"details": err.Error(),
			})
			return
		}
	} else {
		req = requestFromPrefs(h.cartService.GetPrefs(ctx, sessionID))
	}

	response, err := h.productService.GetProducts(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	prefs, err := prefsFromRequest(&req)
	if err == nil && hasListParams(c) {
		if prefs, err = h.cartService.SavePrefs(ctx, sessionID, prefs); err != nil {
			h.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to persist list preferences")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    response,
		"prefs":   prefs.Normalize(),
	})
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.productService.GetProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    p,
	})
}

// GetCategories handles GET /products/categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Categories retrieved successfully",
		"data":    h.productService.GetCategories(),
	})
}

// GetPrice handles POST /products/:id/price
func (h *ProductHandler) GetPrice(c *gin.Context) {
	p, err := h.productService.GetProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sel := req.selection()
	if err := product.ValidateSelection(p, sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Price computed successfully",
		"data":    pricing.Compute(p, sel, cart.ClampQuantity(quantity)),
	})
}

// TogglePart handles POST /products/:id/selection/parts/:partId
func (h *ProductHandler) TogglePart(c *gin.Context) {
	h.toggle(c, func(p *product.Product, sel product.Selection) product.Selection {
		return product.TogglePart(sel, c.Param("partId"))
	})
}

// ToggleOption handles POST /products/:id/selection/options/:optionId
func (h *ProductHandler) ToggleOption(c *gin.Context) {
	h.toggle(c, func(p *product.Product, sel product.Selection) product.Selection {
		return product.ToggleOption(p, sel, c.Param("optionId"))
	})
}

func (h *ProductHandler) toggle(c *gin.Context, apply func(*product.Product, product.Selection) product.Selection) {
	p, err := h.productService.GetProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}

	var req SelectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
	}

	next := apply(p, req.selection())
	c.JSON(http.StatusOK, gin.H{
		"message": "Selection updated successfully",
		"data": gin.H{
			"selection": next,
			"price":     pricing.Compute(p, next, 1),
		},
	})
}

// GetPrefs handles GET /prefs
func (h *ProductHandler) GetPrefs(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences retrieved successfully",
		"data":    h.cartService.GetPrefs(c.Request.Context(), sessionID),
	})
}

// SavePrefs handles PUT /prefs
func (h *ProductHandler) SavePrefs(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	var prefs cart.Prefs
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	saved, err := h.cartService.SavePrefs(c.Request.Context(), sessionID, prefs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save preferences",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences saved successfully",
		"data":    saved,
	})
}

func hasListParams(c *gin.Context) bool {
	query := c.Request.URL.Query()
	for _, key := range listParams {
		if query.Has(key) {
			return true
		}
	}
	return false
}

func requestFromPrefs(prefs cart.Prefs) product.ProductListRequest {
	req := product.ProductListRequest{
		Query:    prefs.Query,
		Category: prefs.Category,
		Sort:     prefs.Sort,
	}
	if prefs.MinPrice != nil {
		req.MinPrice = prefs.MinPrice.String()
	}
	if prefs.MaxPrice != nil {
		req.MaxPrice = prefs.MaxPrice.String()
	}
	return req
}

func prefsFromRequest(req *product.ProductListRequest) (cart.Prefs, error) {
	filter, err := req.ToFilter()
	if err != nil {
		return cart.Prefs{}, err
	}
	return cart.Prefs{
		Sort:     req.Sort,
		Category: filter.Category,
		Query:    req.Query,
		MinPrice: filter.MinPrice,
		MaxPrice: filter.MaxPrice,
	}, nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, product.ErrProductNotFound), errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrInvalidSelection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
