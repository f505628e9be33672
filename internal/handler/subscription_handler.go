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

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	schedulerService    service.SchedulerService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, schedulerService service.SchedulerService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		schedulerService:    schedulerService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleInternal, model.RolePortal)
	staffOnly := middleware.RequireRole(model.RoleAdmin, model.RoleInternal)

	subs := router.Group("/api/subscriptions")
	{
		subs.POST("", anyRole, h.CreateSubscription)
		subs.GET("", anyRole, h.ListSubscriptions)
		subs.GET("/:id", anyRole, h.GetSubscription)
		subs.PUT("/:id/lines", staffOnly, h.UpdateLines)
		subs.PUT("/:id/status", anyRole, h.UpdateStatus)
		subs.POST("/:id/renew", anyRole, h.RenewSubscription)
	}

	billing := router.Group("/api/billing")
	{
		billing.GET("/due", staffOnly, h.ListDueSubscriptions)
		billing.POST("/run", staffOnly, h.RunRecurringBilling)
	}
}

// CreateSubscription creates a subscription in DRAFT status
// @Summary      Create subscription
// @Description  Creates a new subscription with product lines in DRAFT status
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSubscriptionRequest  true  "Create Subscription Payload"
// @Success      201      {object}  response.Response{data=service.SubscriptionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req service.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sub, err := h.subscriptionService.CreateSubscription(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sub))
}

// ListSubscriptions lists subscriptions with computed totals
// @Summary      List subscriptions
// @Description  Retrieves a paginated list of subscriptions; portal users only see their own
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	p := pagination.Parse(c)

	subs, total, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), actorFrom(c), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, subs, p, total))
}

// GetSubscription returns one subscription with its lines and totals
// @Summary      Get subscription
// @Description  Fetch a single subscription by ID
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  response.Response{data=service.SubscriptionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// UpdateLines replaces the line set of an editable subscription
// @Summary      Update subscription lines
// @Description  Replaces all lines; only allowed while the subscription is DRAFT or QUOTATION
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                   true  "Subscription ID"
// @Param        payload  body      service.UpdateSubscriptionLinesRequest   true  "Lines Payload"
// @Success      200      {object}  response.Response{data=service.SubscriptionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/subscriptions/{id}/lines [put]
func (h *SubscriptionHandler) UpdateLines(c *gin.Context) {
	var req service.UpdateSubscriptionLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sub, err := h.subscriptionService.UpdateLines(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// UpdateStatus transitions a subscription through its lifecycle
// @Summary      Transition subscription status
// @Description  Moves a subscription to a new lifecycle status, enforcing the transition table and role restrictions
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                    true  "Subscription ID"
// @Param        payload  body      service.UpdateSubscriptionStatusRequest   true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.SubscriptionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/subscriptions/{id}/status [put]
func (h *SubscriptionHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateSubscriptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sub, err := h.subscriptionService.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// RenewSubscription creates a fresh DRAFT subscription from a terminated one
// @Summary      Renew subscription
// @Description  Creates a new DRAFT subscription copying the lines of a CLOSED or CANCELLED one
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Subscription ID"
// @Success      201  {object}  response.Response{data=service.SubscriptionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/subscriptions/{id}/renew [post]
func (h *SubscriptionHandler) RenewSubscription(c *gin.Context) {
	sub, err := h.subscriptionService.Renew(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sub))
}

// ListDueSubscriptions previews which active subscriptions are due for billing
// @Summary      List due subscriptions
// @Description  Returns active subscriptions whose next invoice date has been reached, never-invoiced first
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.DueSubscription}
// @Failure      500  {object}  response.Response
// @Router       /api/billing/due [get]
func (h *SubscriptionHandler) ListDueSubscriptions(c *gin.Context) {
	due, err := h.schedulerService.FindDueSubscriptions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, due))
}

// RunRecurringBilling generates invoices for all due subscriptions
// @Summary      Run recurring billing
// @Description  Generates an invoice for each due subscription; failures are reported per item without aborting the run
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.RecurringRunResult}
// @Failure      500  {object}  response.Response
// @Router       /api/billing/run [post]
func (h *SubscriptionHandler) RunRecurringBilling(c *gin.Context) {
	result, err := h.schedulerService.GenerateRecurringInvoices(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
