package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

var tracer = otel.Tracer("github.com/bibbank/microfinance-ledger/internal/application/usecase")

// DueNoticeOffsets are the days before a due date at which a due_soon
// notice is raised.
var DueNoticeOffsets = []int{3, 2, 1, 0}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withLoanLock runs fn while holding the per-loan lock.
func withLoanLock(ctx context.Context, locker port.LoanLocker, loanID string, fn func() error) error {
	unlock, err := locker.Lock(ctx, loanID)
	if err != nil {
		return fmt.Errorf("lock loan %s: %w", loanID, err)
	}
	defer unlock()
	return fn()
}

// publishCommitted publishes events of a committed unit of work. Failures are
// logged, not returned.
func publishCommitted(ctx context.Context, publisher port.EventPublisher, logger *slog.Logger, evts []event.DomainEvent) {
	if len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		logger.ErrorContext(ctx, "publish events failed", "count", len(evts), "error", err)
	}
}

// scheduleDueNotices queues due_soon notices for periods, skipping instants
// already past. Failures are logged, not returned.
func scheduleDueNotices(
	ctx context.Context, scheduler port.NotificationScheduler, logger *slog.Logger,
	periods []model.CollectionPeriod, now time.Time,
) {
	notices := DueNotices(periods, now)
	if len(notices) == 0 {
		return
	}
	if err := scheduler.ScheduleDueNotices(ctx, notices...); err != nil {
		logger.WarnContext(ctx, "schedule due notices failed", "count", len(notices), "error", err)
	}
}

// DueNotices lists the future due_soon notices for periods.
func DueNotices(periods []model.CollectionPeriod, now time.Time) []port.DueNotice {
	var out []port.DueNotice
	for _, p := range periods {
		if p.Status().IsPaid() {
			continue
		}
		for _, days := range DueNoticeOffsets {
			at := p.DueDate().AddDate(0, 0, -days)
			if !at.After(now) {
				continue
			}
			out = append(out, port.DueNotice{PeriodRef: p.Ref(), DaysBefore: days, At: at})
		}
	}
	return out
}

func parseLoanType(s string) (valueobject.LoanType, error) {
	lt, err := valueobject.NewLoanType(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return valueobject.LoanType{}, &model.UnsupportedLoanTypeError{LoanType: s}
	}
	return lt, nil
}

func parseCurrency(s string) (money.Currency, error) {
	if s == "" {
		return money.PHP, nil
	}
	c, err := money.NewCurrency(strings.ToUpper(s))
	if err != nil {
		return money.Currency{}, &model.ValidationError{Field: "currency", Message: err.Error()}
	}
	return c, nil
}

func parseMethod(s string) (valueobject.PaymentMethod, error) {
	m, err := valueobject.NewPaymentMethod(s)
	if err != nil {
		return valueobject.PaymentMethod{}, &model.ValidationError{Field: "method", Message: err.Error()}
	}
	return m, nil
}
