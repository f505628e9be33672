package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type OrderLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	CustomerID   string             `json:"customer_id"`
	DiscountCode string             `json:"discount_code"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type OrderLineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxAmount   string `json:"tax_amount"`
	Subtotal    string `json:"subtotal"`
}

type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNo        string              `json:"order_no"`
	CustomerID     string              `json:"customer_id"`
	Status         string              `json:"status"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	DiscountAmount string              `json:"discount_amount"`
	Total          string              `json:"total"`
	Lines          []OrderLineResponse `json:"lines"`
	CreatedAt      string              `json:"created_at"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, actor Actor, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, actor Actor, page, limit int) ([]OrderResponse, int64, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	discountRepo repository.DiscountRepository
	sequenceRepo repository.SequenceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	discounts    DiscountService
	events       BillingEventPublisher
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	discountRepo repository.DiscountRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	discounts DiscountService,
	events BillingEventPublisher,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		discountRepo: discountRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		discounts:    discounts,
		events:       events,
	}
}

// --- Implementation ---

// CreateOrder prices a one-off storefront purchase and persists it directly
// in CONFIRMED status. Per-line tax is computed on the undiscounted line
// base; an optional discount code applies once at document level against
// the untaxed subtotal. A failing code rejects the whole order rather than
// silently dropping the discount.
func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (OrderResponse, error) {
	customerID := actor.ID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return OrderResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid customer id")
		}
		if !actor.IsStaff() && parsed != actor.ID {
			return OrderResponse{}, apperror.New(apperror.KindForbidden, "cannot order on behalf of another customer")
		}
		customerID = parsed
	}

	now := time.Now()
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	totalQuantity := 0
	lines := make([]model.OrderLine, 0, len(req.Lines))

	for _, lr := range req.Lines {
		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return OrderResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid product id")
		}
		product, err := s.productRepo.FindByIDWithTax(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return OrderResponse{}, apperror.New(apperror.KindNotFound, "product not found")
			}
			return OrderResponse{}, fmt.Errorf("failed to fetch product: %w", err)
		}
		if !product.IsActive {
			return OrderResponse{}, apperror.New(apperror.KindValidation, "product %s is not available", product.Name)
		}

		base := product.SalesPrice.Mul(decimalFromInt(lr.Quantity))
		lineTax := decimal.Zero
		if product.Tax != nil {
			lineTax = taxAmount(base, lr.Quantity, TaxSpec{
				Computation: product.Tax.Computation,
				Amount:      product.Tax.Amount,
			})
		}

		lines = append(lines, model.OrderLine{
			ProductID:   product.ID,
			Description: product.Name,
			Quantity:    lr.Quantity,
			UnitPrice:   product.SalesPrice,
			TaxID:       product.TaxID,
			TaxAmount:   lineTax,
			Subtotal:    base,
		})
		subtotal = subtotal.Add(base)
		taxTotal = taxTotal.Add(lineTax)
		totalQuantity += lr.Quantity
	}

	discountAmt := decimal.Zero
	var discountID *uuid.UUID
	if req.DiscountCode != "" {
		discount, eval, err := s.discounts.EvaluateByCode(ctx, req.DiscountCode, subtotal, totalQuantity, now)
		if err != nil {
			return OrderResponse{}, err
		}
		if !eval.Valid {
			return OrderResponse{}, apperror.New(apperror.KindValidation, "%s", eval.Reason)
		}
		discountAmt = eval.Amount
		discountID = &discount.ID
	}

	order := model.Order{
		CustomerID:     customerID,
		Status:         model.OrderConfirmed,
		Subtotal:       subtotal,
		TaxAmount:      taxTotal,
		DiscountID:     discountID,
		DiscountAmount: discountAmt,
		Total:          subtotal.Sub(discountAmt).Add(taxTotal),
		Lines:          lines,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		orderNo, seqErr := s.sequenceRepo.Next(txCtx, model.SeqOrder)
		if seqErr != nil {
			return fmt.Errorf("failed to generate order number: %w", seqErr)
		}
		order.OrderNo = orderNo

		if createErr := s.orderRepo.Create(txCtx, &order); createErr != nil {
			return fmt.Errorf("failed to create order: %w", createErr)
		}

		if discountID != nil {
			ok, incErr := s.discountRepo.IncrementUsage(txCtx, *discountID)
			if incErr != nil {
				return fmt.Errorf("failed to increment discount usage: %w", incErr)
			}
			if !ok {
				return apperror.New(apperror.KindValidation, "Discount usage limit reached")
			}
		}

		return writeAuditEntry(txCtx, s.auditRepo, actor, model.ActionCreateOrder, order.ID.String(), order.OrderNo, map[string]interface{}{
			"total": order.Total.StringFixed(2),
			"lines": len(order.Lines),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	if s.events != nil {
		s.events.Publish("order.created", map[string]interface{}{
			"order_id": order.ID.String(),
			"order_no": order.OrderNo,
		})
	}

	created, err := s.orderRepo.FindByIDWithLines(ctx, order.ID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}
	return toOrderResponse(*created), nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid order id")
	}

	order, err := s.orderRepo.FindByIDWithLines(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, apperror.New(apperror.KindNotFound, "order not found")
		}
		return OrderResponse{}, fmt.Errorf("failed to fetch order: %w", err)
	}
	if !actor.IsStaff() && order.CustomerID != actor.ID {
		return OrderResponse{}, apperror.New(apperror.KindForbidden, "order belongs to another customer")
	}

	return toOrderResponse(*order), nil
}

func (s *orderService) ListOrders(ctx context.Context, actor Actor, page, limit int) ([]OrderResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var customerID *uuid.UUID
	if !actor.IsStaff() {
		id := actor.ID
		customerID = &id
	}

	orders, total, err := s.orderRepo.List(ctx, customerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	result := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	return result, total, nil
}

// --- Mapping ---

func toOrderResponse(o model.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		line := OrderLineResponse{
			ID:          l.ID.String(),
			ProductID:   l.ProductID.String(),
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			TaxAmount:   l.TaxAmount.StringFixed(2),
			Subtotal:    l.Subtotal.StringFixed(2),
		}
		if l.Product != nil {
			line.ProductName = l.Product.Name
		}
		lines = append(lines, line)
	}

	return OrderResponse{
		ID:             o.ID.String(),
		OrderNo:        o.OrderNo,
		CustomerID:     o.CustomerID.String(),
		Status:         o.Status,
		Subtotal:       o.Subtotal.StringFixed(2),
		TaxAmount:      o.TaxAmount.StringFixed(2),
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		Lines:          lines,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
	}
}
