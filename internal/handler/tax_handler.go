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

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	staffOnly := middleware.RequireRole(model.RoleAdmin, model.RoleInternal)

	taxes := router.Group("/api/taxes")
	{
		taxes.POST("", staffOnly, h.CreateTax)
		taxes.GET("", staffOnly, h.ListTaxes)
		taxes.GET("/:id", staffOnly, h.GetTax)
		taxes.PUT("/:id", staffOnly, h.UpdateTax)
	}
}

// CreateTax creates a tax definition
// @Summary      Create tax
// @Description  Creates a tax with PERCENTAGE or FIXED computation
// @Tags         taxes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaxRequest  true  "Create Tax Payload"
// @Success      201      {object}  response.Response{data=service.TaxResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/taxes [post]
func (h *TaxHandler) CreateTax(c *gin.Context) {
	var req service.CreateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tax, err := h.taxService.CreateTax(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tax))
}

// ListTaxes returns a paginated tax list
// @Summary      List taxes
// @Description  Retrieves a paginated list of taxes
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/taxes [get]
func (h *TaxHandler) ListTaxes(c *gin.Context) {
	p := pagination.Parse(c)

	taxes, total, err := h.taxService.ListTaxes(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, taxes, p, total))
}

// GetTax returns one tax definition
// @Summary      Get tax
// @Description  Fetch a single tax by ID
// @Tags         taxes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax ID"
// @Success      200  {object}  response.Response{data=service.TaxResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/taxes/{id} [get]
func (h *TaxHandler) GetTax(c *gin.Context) {
	tax, err := h.taxService.GetTax(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tax))
}

// UpdateTax updates a tax definition
// @Summary      Update tax
// @Description  Updates tax name, amount, or active flag; computation is immutable
// @Tags         taxes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Tax ID"
// @Param        payload  body      service.UpdateTaxRequest  true  "Update Tax Payload"
// @Success      200      {object}  response.Response{data=service.TaxResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/taxes/{id} [put]
func (h *TaxHandler) UpdateTax(c *gin.Context) {
	var req service.UpdateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tax, err := h.taxService.UpdateTax(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tax))
}
