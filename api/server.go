// Package api exposes the HTTP surface: user and order management, quote
// lookup, health, and metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/internal/broker"
	"github.com/stonkshq/stonks/internal/marketdata"
	"github.com/stonkshq/stonks/internal/orders"
	"github.com/stonkshq/stonks/internal/users"
)

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger
	users      *users.Service
	orders     *orders.Service
	quotes     marketdata.QuoteClient
}

// NewServer creates the API server with all routes registered.
func NewServer(
	logger *zap.Logger,
	usersSvc *users.Service,
	ordersSvc *orders.Service,
	quotes marketdata.QuoteClient,
) *Server {
	server := &Server{
		logger: logger,
		users:  usersSvc,
		orders: ordersSvc,
		quotes: quotes,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	server.router = router
	server.registerRoutes()
	return server
}

// Router returns the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/quotes/:symbol", s.getQuote)

		userRoutes := v1.Group("/users")
		{
			userRoutes.POST("", s.createUser)
			userRoutes.GET("", s.listUsers)
			userRoutes.GET("/:uuid", s.getUser)
			userRoutes.PUT("/:uuid", s.updateUser)
			userRoutes.DELETE("/:uuid", s.deleteUser)

			orderRoutes := userRoutes.Group("/:uuid/orders")
			{
				orderRoutes.POST("", s.createOrder)
				orderRoutes.GET("", s.listOrders)
				orderRoutes.GET("/:orderUuid", s.getOrder)
				orderRoutes.PUT("/:orderUuid", s.updateOrder)
				orderRoutes.DELETE("/:orderUuid", s.deleteOrder)
			}
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validationUser    *users.ValidationError
		validationOrder   *orders.ValidationError
		insufficientFunds *broker.InsufficientBalanceError
		insufficientStock *broker.InsufficientStockError
		fetchErr          *marketdata.FetchError
		parseErr          *marketdata.ParseError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrOwnerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, users.ErrHasPendingOrders),
		errors.Is(err, orders.ErrOrderComplete):
		status = http.StatusConflict
	case errors.As(err, &validationUser), errors.As(err, &validationOrder):
		status = http.StatusBadRequest
	case errors.As(err, &insufficientFunds), errors.As(err, &insufficientStock):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("handler error", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
