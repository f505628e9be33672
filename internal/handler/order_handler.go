package handler

import (
	"net/http"
	"strconv"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orderService    service.OrderService
	discountService service.DiscountService
}

func NewOrderHandler(orderService service.OrderService, discountService service.DiscountService) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		discountService: discountService,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleInternal, model.RolePortal)

	orders := router.Group("/api/orders")
	{
		orders.POST("", anyRole, h.CreateOrder)
		orders.GET("", anyRole, h.ListOrders)
		orders.GET("/:id", anyRole, h.GetOrder)
	}

	// Checkout-time discount code validation, before the order is placed
	router.GET("/api/discounts/validate", anyRole, h.ValidateDiscountCode)
}

// CreateOrder places a one-off storefront order
// @Summary      Create order
// @Description  Places a storefront order in CONFIRMED status, pricing lines and applying an optional discount code
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns a paginated order list
// @Summary      List orders
// @Description  Retrieves a paginated list of orders; portal users only see their own
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actorFrom(c), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, orders, p, total))
}

// GetOrder returns one order with its lines
// @Summary      Get order
// @Description  Fetch a single order by ID
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ValidateDiscountCode checks a code against a purchase context without applying it
// @Summary      Validate discount code
// @Description  Evaluates a discount code against a subtotal and quantity, returning validity, reason, and amount
// @Tags         discounts
// @Security     BearerAuth
// @Produce      json
// @Param        code      query     string  true   "Discount code"
// @Param        subtotal  query     string  true   "Purchase subtotal"
// @Param        quantity  query     int     false  "Total quantity (default 1)"
// @Success      200       {object}  response.Response{data=service.Evaluation}
// @Failure      400       {object}  response.Response
// @Router       /api/discounts/validate [get]
func (h *OrderHandler) ValidateDiscountCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "code is required"))
		return
	}

	subtotal, err := decimal.NewFromString(c.DefaultQuery("subtotal", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid subtotal"))
		return
	}
	quantity, _ := strconv.Atoi(c.DefaultQuery("quantity", "1"))

	_, eval, err := h.discountService.EvaluateByCode(c.Request.Context(), code, subtotal, quantity, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, eval))
}
