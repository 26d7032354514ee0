package handler

import (
	"errors"
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler sets up the routing dependencies for Order endpoints
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("", middleware.RequireRole(model.RolePublic, model.RoleWholesale, model.RoleAdmin), h.CreateOrder)
		orders.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleLogistics), h.ListOrders)
		orders.GET("/mine", middleware.RequireRole(model.RolePublic, model.RoleWholesale, model.RoleAdmin), h.ListMyOrders)
		orders.GET("/:code", middleware.RequireRole(model.RolePublic, model.RoleWholesale, model.RoleAdmin, model.RoleLogistics), h.GetOrder)
		orders.POST("/:code/payment-proof", middleware.RequireRole(model.RolePublic, model.RoleWholesale, model.RoleAdmin), h.SubmitPaymentProof)
		orders.POST("/:code/verify-payment", middleware.RequireRole(model.RoleAdmin), h.VerifyPayment)
		orders.POST("/:code/approve", middleware.RequireRole(model.RoleAdmin), h.ApproveOrder)
		orders.POST("/:code/logistics", middleware.RequireRole(model.RoleLogistics, model.RoleAdmin), h.AdvanceLogistics)
	}
}

type paymentProofRequest struct {
	ProofRef string `json:"proof_ref" binding:"required"`
}

type verifyPaymentRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

type logisticsRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder handles POST /orders to place a new order
// @Summary      Place an order
// @Description  Creates an order, generates the invoice and branches the lifecycle by payment method
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders handles GET /orders with an optional status filter
// @Summary      List orders
// @Description  Retrieves a paginated list of all orders, optionally filtered by status
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 10)"
// @Param        status  query     string  false  "Filter by order status"
// @Success      200     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	status := c.Query("status")

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), page, limit, status)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	}))
}

// ListMyOrders handles GET /orders/mine for the authenticated buyer
// @Summary      List own orders
// @Description  Retrieves the authenticated user's orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /orders/mine [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), c.GetString("userID"), page, limit)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	}))
}

// GetOrder handles GET /orders/:code
// @Summary      Get order by code
// @Description  Fetch a single order with its full status timeline
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Order code"
// @Success      200   {object}  response.Response{data=service.OrderResponse}
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /orders/{code} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	// Buyers can only read their own orders; staff can read any.
	role := c.GetString("userRole")
	if role != model.RoleAdmin && role != model.RoleLogistics && order.UserID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// SubmitPaymentProof handles POST /orders/:code/payment-proof
// @Summary      Submit payment proof
// @Description  Attaches a bank transfer proof reference and moves the order into payment review
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string               true  "Order code"
// @Param        payload  body      paymentProofRequest  true  "Proof reference"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{code}/payment-proof [post]
func (h *OrderHandler) SubmitPaymentProof(c *gin.Context) {
	var req paymentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.SubmitPaymentProof(c.Request.Context(), c.Param("code"), c.GetString("userID"), req.ProofRef)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// VerifyPayment handles POST /orders/:code/verify-payment
// @Summary      Verify payment proof
// @Description  Admin approves or rejects a submitted bank transfer proof
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string                true  "Order code"
// @Param        payload  body      verifyPaymentRequest  true  "Verification decision"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{code}/verify-payment [post]
func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.VerifyPayment(c.Request.Context(), c.Param("code"), c.GetString("userID"), *req.Approved)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ApproveOrder handles POST /orders/:code/approve
// @Summary      Approve order
// @Description  Approves a paid order, atomically deducting stock for every line item
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Order code"
// @Success      200   {object}  response.Response{data=service.OrderResponse}
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Failure      422   {object}  response.Response
// @Router       /orders/{code}/approve [post]
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	order, err := h.orderService.ApproveOrder(c.Request.Context(), c.Param("code"), c.GetString("userID"))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// AdvanceLogistics handles POST /orders/:code/logistics
// @Summary      Advance logistics status
// @Description  Moves an approved order one step along the fulfillment chain
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string            true  "Order code"
// @Param        payload  body      logisticsRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{code}/logistics [post]
func (h *OrderHandler) AdvanceLogistics(c *gin.Context) {
	var req logisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.AdvanceLogistics(c.Request.Context(), c.Param("code"), c.GetString("userID"), model.OrderStatus(req.Status))
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// writeOrderError maps engine errors to HTTP statuses. Conflicts (409) are
// state machine violations, unprocessable (422) are business rule failures.
func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPaymentNotSettled):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrBelowMinOrderQuantity):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
