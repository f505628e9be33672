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

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService service.PaymentService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, paymentService service.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleInternal, model.RolePortal)
	staffOnly := middleware.RequireRole(model.RoleAdmin, model.RoleInternal)

	invoices := router.Group("/api/invoices")
	{
		invoices.POST("/generate/:subscription_id", staffOnly, h.GenerateInvoice)
		invoices.GET("", anyRole, h.ListInvoices)
		invoices.GET("/:id", anyRole, h.GetInvoice)
		invoices.PUT("/:id/confirm", staffOnly, h.ConfirmInvoice)
		invoices.PUT("/:id/fail", staffOnly, h.MarkInvoiceFailed)
		invoices.PUT("/:id/cancel", staffOnly, h.CancelInvoice)
		invoices.PUT("/:id/retry", anyRole, h.RetryInvoice)
		invoices.GET("/:id/payments", anyRole, h.ListInvoicePayments)
	}
}

// GenerateInvoice creates a DRAFT invoice from a subscription
// @Summary      Generate invoice
// @Description  Generates a DRAFT invoice from an active subscription's lines, applying discounts before tax
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        subscription_id  path      string  true  "Subscription ID"
// @Success      201              {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409              {object}  response.Response
// @Router       /api/invoices/generate/{subscription_id} [post]
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GenerateFromSubscription(c.Request.Context(), actorFrom(c), c.Param("subscription_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated invoice list
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices; portal users only see their own
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status           query     string  false  "Filter by status (DRAFT, CONFIRMED, PAID, FAILED, CANCELLED)"
// @Param        subscription_id  query     string  false  "Filter by subscription"
// @Param        page             query     int     false  "Page number (default 1)"
// @Param        limit            query     int     false  "Number of items per page (default 20)"
// @Success      200              {object}  response.Response{data=object}
// @Failure      500              {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), actorFrom(c), c.Query("status"), c.Query("subscription_id"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, invoices, p, total))
}

// GetInvoice returns one invoice with its lines
// @Summary      Get invoice
// @Description  Fetch a single invoice by ID
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ConfirmInvoice confirms a DRAFT invoice and records the automatic payment
// @Summary      Confirm invoice
// @Description  Confirms a DRAFT invoice; a completed payment for the full total is recorded and the invoice moves to PAID
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/confirm [put]
func (h *InvoiceHandler) ConfirmInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.Confirm(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// MarkInvoiceFailed marks a CONFIRMED invoice as FAILED
// @Summary      Mark invoice failed
// @Description  Marks a CONFIRMED invoice as FAILED after an unsuccessful payment attempt
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/fail [put]
func (h *InvoiceHandler) MarkInvoiceFailed(c *gin.Context) {
	invoice, err := h.invoiceService.MarkFailed(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// CancelInvoice cancels a DRAFT or CONFIRMED invoice
// @Summary      Cancel invoice
// @Description  Cancels an invoice that has not been paid
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/cancel [put]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RetryInvoice moves a FAILED invoice back to CONFIRMED for another attempt
// @Summary      Retry failed invoice
// @Description  Returns a FAILED invoice to CONFIRMED so payment can be retried
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/retry [put]
func (h *InvoiceHandler) RetryInvoice(c *gin.Context) {
	invoice, err := h.paymentService.RetryFailed(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ListInvoicePayments returns the payments recorded against an invoice
// @Summary      List invoice payments
// @Description  Retrieves all payments recorded against an invoice
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *InvoiceHandler) ListInvoicePayments(c *gin.Context) {
	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
