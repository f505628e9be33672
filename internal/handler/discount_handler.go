package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	discountService service.DiscountService
}

func NewDiscountHandler(discountService service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: discountService}
}

func (h *DiscountHandler) RegisterRoutes(router *gin.RouterGroup) {
	staffOnly := middleware.RequireRole(model.RoleAdmin, model.RoleInternal)

	discounts := router.Group("/api/discounts")
	{
		discounts.POST("", staffOnly, h.CreateDiscount)
		discounts.GET("", staffOnly, h.ListDiscounts)
		discounts.GET("/:id", staffOnly, h.GetDiscount)
		discounts.PUT("/:id", staffOnly, h.UpdateDiscount)
	}
}

// CreateDiscount creates a discount code
// @Summary      Create discount
// @Description  Creates a new discount with type, value, and applicability constraints
// @Tags         discounts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDiscountRequest  true  "Create Discount Payload"
// @Success      201      {object}  response.Response{data=service.DiscountResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/discounts [post]
func (h *DiscountHandler) CreateDiscount(c *gin.Context) {
	var req service.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	discount, err := h.discountService.CreateDiscount(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, discount))
}

// ListDiscounts returns a paginated discount list
// @Summary      List discounts
// @Description  Retrieves a paginated list of discounts
// @Tags         discounts
// @Security     BearerAuth
// @Produce      json
// @Param        active  query     bool  false  "Only active discounts"
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/discounts [get]
func (h *DiscountHandler) ListDiscounts(c *gin.Context) {
	p := pagination.Parse(c)
	activeOnly := c.Query("active") == "true"

	discounts, total, err := h.discountService.ListDiscounts(c.Request.Context(), p.Page, p.Limit, activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, discounts, p, total))
}

// GetDiscount returns one discount
// @Summary      Get discount
// @Description  Fetch a single discount by ID
// @Tags         discounts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Discount ID"
// @Success      200  {object}  response.Response{data=service.DiscountResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/discounts/{id} [get]
func (h *DiscountHandler) GetDiscount(c *gin.Context) {
	discount, err := h.discountService.GetDiscount(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, discount))
}

// UpdateDiscount updates a discount's editable fields
// @Summary      Update discount
// @Description  Updates discount constraints; type and code are immutable
// @Tags         discounts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Discount ID"
// @Param        payload  body      service.UpdateDiscountRequest  true  "Update Discount Payload"
// @Success      200      {object}  response.Response{data=service.DiscountResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/discounts/{id} [put]
func (h *DiscountHandler) UpdateDiscount(c *gin.Context) {
	var req service.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	discount, err := h.discountService.UpdateDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, discount))
}
