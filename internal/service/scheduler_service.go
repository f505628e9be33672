package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
)

// --- DTOs ---

type DueSubscription struct {
	ID             string  `json:"id"`
	SubscriptionNo string  `json:"subscription_no"`
	CustomerID     string  `json:"customer_id"`
	BillingPeriod  string  `json:"billing_period"`
	LastInvoicedAt *string `json:"last_invoiced_at"` // nil = never invoiced
}

type RecurringItemResult struct {
	SubscriptionNo string `json:"subscription_no"`
	InvoiceNo      string `json:"invoice_no,omitempty"`
	Error          string `json:"error,omitempty"`
}

type RecurringRunResult struct {
	Generated int                   `json:"generated"`
	Failed    int                   `json:"failed"`
	Total     int                   `json:"total"`
	Details   []RecurringItemResult `json:"details"`
}

// --- Interface ---

type SchedulerService interface {
	FindDueSubscriptions(ctx context.Context) ([]DueSubscription, error)
	GenerateRecurringInvoices(ctx context.Context, actor Actor) (RecurringRunResult, error)
}

type schedulerService struct {
	subscriptionRepo repository.SubscriptionRepository
	invoiceRepo      repository.InvoiceRepository
	invoiceService   InvoiceService
}

func NewSchedulerService(
	subscriptionRepo repository.SubscriptionRepository,
	invoiceRepo repository.InvoiceRepository,
	invoiceService InvoiceService,
) SchedulerService {
	return &schedulerService{
		subscriptionRepo: subscriptionRepo,
		invoiceRepo:      invoiceRepo,
		invoiceService:   invoiceService,
	}
}

// --- Implementation ---

// nextInvoiceTime advances last by the plan's billing cadence. MONTHLY and
// YEARLY move by calendar units, not fixed day counts.
func nextInvoiceTime(last time.Time, period string, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch period {
	case model.BillingPeriodDaily:
		return last.AddDate(0, 0, interval)
	case model.BillingPeriodWeekly:
		return last.AddDate(0, 0, 7*interval)
	case model.BillingPeriodYearly:
		return last.AddDate(interval, 0, 0)
	default: // MONTHLY
		return last.AddDate(0, interval, 0)
	}
}

// FindDueSubscriptions returns ACTIVE plan-backed subscriptions that have
// no open invoice and whose billing period has elapsed since their last
// invoice (or that have never been invoiced at all). Ordered longest
// overdue first, with never-invoiced subscriptions ahead of everything.
func (s *schedulerService) FindDueSubscriptions(ctx context.Context) ([]DueSubscription, error) {
	candidates, err := s.subscriptionRepo.FindActiveWithPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active subscriptions: %w", err)
	}

	type dueEntry struct {
		due    DueSubscription
		lastAt *time.Time
	}

	now := time.Now()
	entries := make([]dueEntry, 0, len(candidates))
	for _, sub := range candidates {
		if sub.Plan == nil {
			continue
		}

		open, openErr := s.invoiceRepo.FindOpenBySubscription(ctx, sub.ID)
		if openErr != nil {
			return nil, fmt.Errorf("failed to check open invoices: %w", openErr)
		}
		if open != nil {
			continue
		}

		latest, latestErr := s.invoiceRepo.FindLatestBySubscription(ctx, sub.ID)
		if latestErr != nil {
			return nil, fmt.Errorf("failed to fetch latest invoice: %w", latestErr)
		}

		entry := dueEntry{due: DueSubscription{
			ID:             sub.ID.String(),
			SubscriptionNo: sub.SubscriptionNo,
			CustomerID:     sub.CustomerID.String(),
			BillingPeriod:  sub.Plan.BillingPeriod,
		}}

		if latest != nil {
			next := nextInvoiceTime(latest.CreatedAt, sub.Plan.BillingPeriod, sub.Plan.BillingInterval)
			if next.After(now) {
				continue
			}
			lastAt := latest.CreatedAt
			entry.lastAt = &lastAt
			formatted := lastAt.Format(time.RFC3339)
			entry.due.LastInvoicedAt = &formatted
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].lastAt, entries[j].lastAt
		if a == nil {
			return b != nil // never-invoiced first
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	due := make([]DueSubscription, 0, len(entries))
	for _, entry := range entries {
		due = append(due, entry.due)
	}
	return due, nil
}

// GenerateRecurringInvoices runs the generator over the due list. Each
// subscription is its own unit of work: a failure (such as a duplicate
// invoice raced in by another caller) is recorded and the batch moves on.
func (s *schedulerService) GenerateRecurringInvoices(ctx context.Context, actor Actor) (RecurringRunResult, error) {
	due, err := s.FindDueSubscriptions(ctx)
	if err != nil {
		return RecurringRunResult{}, err
	}

	result := RecurringRunResult{Total: len(due), Details: make([]RecurringItemResult, 0, len(due))}
	for _, sub := range due {
		item := RecurringItemResult{SubscriptionNo: sub.SubscriptionNo}
		invoice, genErr := s.invoiceService.GenerateFromSubscription(ctx, actor, sub.ID)
		if genErr != nil {
			item.Error = genErr.Error()
			result.Failed++
		} else {
			item.InvoiceNo = invoice.InvoiceNo
			result.Generated++
		}
		result.Details = append(result.Details, item)
	}

	return result, nil
}
