// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// QuoteGenerator renders a cart as a PDF document
type QuoteGenerator interface {
	GenerateQuote(c *cart.CartResponse) (*bytes.Buffer, error)
}

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	quotes      QuoteGenerator
	log         logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, quotes QuoteGenerator, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		quotes:      quotes,
		log:         log,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.AddToCart(c.Request.Context(), sessionID, &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    cartResponse,
	})
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.UpdateCartItem(c.Request.Context(), sessionID, c.Param("id"), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    cartResponse,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	cartResponse, err := h.cartService.RemoveFromCart(c.Request.Context(), sessionID, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    cartResponse,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	if err := h.cartService.ClearCart(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// GetCartItemCount handles GET /cart/count
func (h *CartHandler) GetCartItemCount(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	count, err := h.cartService.GetCartItemCount(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get cart count",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart count retrieved successfully",
		"data": gin.H{
			"count": count,
		},
	})
}

// DownloadQuote handles GET /cart/quote.pdf
func (h *CartHandler) DownloadQuote(c *gin.Context) {
	sessionID, _ := middleware.GetSessionIDFromContext(c)

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}
	if len(cartResponse.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cart is empty",
		})
		return
	}

	pdfBuffer, err := h.quotes.GenerateQuote(cartResponse)
	if err != nil {
		h.log.WithError(err).WithField("session_id", sessionID).Error("Failed to generate quote")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate quote",
		})
		return
	}

	filename := fmt.Sprintf("devis-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
