// Package http is the kiosk's local surface: the lookup form calls the
// price endpoint, and the rendering layer consumes the standby view over a
// websocket. Rendering is purely reactive; nothing here mutates scheduler
// state except the typed events the renderer reports back.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/config"
	"github.com/nimbus-retail/kioskd/internal/model"
	"github.com/nimbus-retail/kioskd/internal/pricing"
	"github.com/nimbus-retail/kioskd/internal/standby"
)

// PriceChecker resolves a scanned code to a product.
type PriceChecker interface {
	Check(ctx context.Context, code string) (*model.Product, error)
}

type Server struct {
	pricing PriceChecker
	engine  *standby.Engine
}

func NewRouter(svc PriceChecker, engine *standby.Engine, cfg *config.Config) *gin.Engine {
	s := &Server{pricing: svc, engine: engine}

	r := gin.Default()
	// CORS: the lookup form and renderer run in a browser shell that may be
	// served from a different local origin than this API
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		AllowCredentials: false,
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/price", RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow), s.checkPrice)
	api.GET("/standby/view", s.currentView)

	r.GET("/ws/view", s.viewSocket)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// checkPrice resolves ?code= to a normalized product record.
func (s *Server) checkPrice(c *gin.Context) {
	code := c.Query("code")
	product, err := s.pricing.Check(c.Request.Context(), code)
	switch {
	case errors.Is(err, pricing.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code parameter"})
	case errors.Is(err, pricing.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case err != nil:
		log.Error().Err(err).Msg("price check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	default:
		c.JSON(http.StatusOK, product)
	}
}

func (s *Server) currentView(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.CurrentView())
}
