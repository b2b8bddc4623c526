// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/session"
	"github.com/your-org/storefront/internal/viewer"
)

// Dependencies are the services the API routes are served from
type Dependencies struct {
	Config   *config.Config
	Products *product.Service
	Carts    *cart.Service
	Quotes   handlers.QuoteGenerator
	Sessions *session.Manager
	Viewer   *viewer.Hub
	Log      logrus.FieldLogger
}

// SetupRoutes registers every API route on rg
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	shopper := rg.Group("")
	shopper.Use(middleware.Session(deps.Config.Session, deps.Sessions, deps.Log))

	SetupProductRoutes(shopper, deps)
	SetupCartRoutes(shopper, deps)
	SetupViewerRoutes(rg, deps)
}

// SetupProductRoutes sets up catalog and preference routes
func SetupProductRoutes(rg *gin.RouterGroup, deps Dependencies) {
	productHandler := handlers.NewProductHandler(deps.Products, deps.Carts, deps.Log)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/categories", productHandler.GetCategories)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("/:id/price", productHandler.GetPrice)
		products.POST("/:id/selection/parts/:partId", productHandler.TogglePart)
		products.POST("/:id/selection/options/:optionId", productHandler.ToggleOption)
	}

	prefs := rg.Group("/prefs")
	{
		prefs.GET("", productHandler.GetPrefs)
		prefs.PUT("", productHandler.SavePrefs)
	}
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartHandler := handlers.NewCartHandler(deps.Carts, deps.Quotes, deps.Log)

	cartGroup := rg.Group("/cart")
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.GET("/count", cartHandler.GetCartItemCount)
		cartGroup.GET("/quote.pdf", cartHandler.DownloadQuote)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
	}
}

// SetupViewerRoutes sets up the headless viewer routes
func SetupViewerRoutes(rg *gin.RouterGroup, deps Dependencies) {
	viewerHandler := handlers.NewViewerHandler(deps.Viewer, middleware.OriginChecker(deps.Config.Security), deps.Log)

	viewers := rg.Group("/viewer/:session")
	{
		viewers.GET("", viewerHandler.GetSnapshot)
		viewers.POST("/events", viewerHandler.EmitEvent)
		viewers.GET("/ws", viewerHandler.Stream)
		viewers.DELETE("", viewerHandler.CloseSession)
	}
}
