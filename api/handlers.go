package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stonkshq/stonks/internal/orders"
	"github.com/stonkshq/stonks/pkg/models"
)

// userRequest is the payload for creating or updating a user.
type userRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// orderCreateRequest is the payload for placing an order.
type orderCreateRequest struct {
	Side   string          `json:"side" binding:"required"`
	Symbol string          `json:"symbol" binding:"required"`
	Amount int64           `json:"amount" binding:"required"`
	Bid    decimal.Decimal `json:"bid" binding:"required"`
}

// orderUpdateRequest is the payload for reworking a pending order.
type orderUpdateRequest struct {
	Symbol string          `json:"symbol" binding:"required"`
	Amount int64           `json:"amount" binding:"required"`
	Bid    decimal.Decimal `json:"bid" binding:"required"`
}

// --- User handlers ---

func (s *Server) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.Create(c.Request.Context(), req.Email, req.Username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *Server) listUsers(c *gin.Context) {
	all, err := s.users.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": all})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}

	user, err := s.users.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.Update(c.Request.Context(), id, req.Email, req.Username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}

	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Order handlers ---

func (s *Server) createOrder(c *gin.Context) {
	ownerUUID, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}

	var req orderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.Create(c.Request.Context(), ownerUUID, orders.CreateRequest{
		Side:   req.Side,
		Symbol: req.Symbol,
		Amount: req.Amount,
		Bid:    req.Bid,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	ownerUUID, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}

	all, err := s.orders.List(c.Request.Context(), ownerUUID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": all})
}

func (s *Server) getOrder(c *gin.Context) {
	ownerUUID, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}
	orderUUID, ok := s.parseUUID(c, c.Param("orderUuid"))
	if !ok {
		return
	}

	order, err := s.orders.Get(c.Request.Context(), ownerUUID, orderUUID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) updateOrder(c *gin.Context) {
	ownerUUID, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}
	orderUUID, ok := s.parseUUID(c, c.Param("orderUuid"))
	if !ok {
		return
	}

	var req orderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.orders.Update(c.Request.Context(), ownerUUID, orderUUID, orders.UpdateRequest{
		Symbol: req.Symbol,
		Amount: req.Amount,
		Bid:    req.Bid,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deleteOrder(c *gin.Context) {
	ownerUUID, ok := s.parseUUID(c, c.Param("uuid"))
	if !ok {
		return
	}
	orderUUID, ok := s.parseUUID(c, c.Param("orderUuid"))
	if !ok {
		return
	}

	if err := s.orders.Delete(c.Request.Context(), ownerUUID, orderUUID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Quote handler ---

func (s *Server) getQuote(c *gin.Context) {
	symbol, err := models.ParseSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := s.quotes.Quote(c.Request.Context(), symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

func (s *Server) parseUUID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid: " + raw})
		return uuid.Nil, false
	}
	return id, true
}
