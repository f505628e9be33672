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

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

func (h *PlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleInternal, model.RolePortal)
	staffOnly := middleware.RequireRole(model.RoleAdmin, model.RoleInternal)

	plans := router.Group("/api/plans")
	{
		plans.GET("", anyRole, h.ListPlans)
		plans.GET("/:id", anyRole, h.GetPlan)
		plans.POST("", staffOnly, h.CreatePlan)
		plans.PUT("/:id", staffOnly, h.UpdatePlan)
	}
}

// CreatePlan creates a recurring billing plan
// @Summary      Create plan
// @Description  Creates a recurring plan defining billing cadence and lifecycle capabilities
// @Tags         plans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePlanRequest  true  "Create Plan Payload"
// @Success      201      {object}  response.Response{data=service.PlanResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, plan))
}

// ListPlans returns a paginated plan list
// @Summary      List plans
// @Description  Retrieves a paginated list of recurring plans
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	p := pagination.Parse(c)

	plans, total, err := h.planService.ListPlans(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, plans, p, total))
}

// GetPlan returns one plan
// @Summary      Get plan
// @Description  Fetch a single recurring plan by ID
// @Tags         plans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Plan ID"
// @Success      200  {object}  response.Response{data=service.PlanResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planService.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, plan))
}

// UpdatePlan updates a plan's capabilities
// @Summary      Update plan
// @Description  Updates plan name and lifecycle capability flags; cadence is immutable
// @Tags         plans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Plan ID"
// @Param        payload  body      service.UpdatePlanRequest  true  "Update Plan Payload"
// @Success      200      {object}  response.Response{data=service.PlanResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/plans/{id} [put]
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	var req service.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, plan))
}
