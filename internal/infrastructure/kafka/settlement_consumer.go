package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	pkgkafka "github.com/bibbank/microfinance-ledger/pkg/kafka"
)

// DefaultSettlementsTopic carries confirmed gateway settlements.
const DefaultSettlementsTopic = "payment-settlements"

// Settlement is a payment the gateway has confirmed.
type Settlement struct {
	SettlementID string          `json:"settlement_id"`
	PeriodRef    string          `json:"period_ref"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method,omitempty"`
}

// PaymentApplier is satisfied by usecase.ApplyPaymentUseCase.
type PaymentApplier interface {
	Execute(ctx context.Context, req dto.ApplyPaymentRequest) (dto.PaymentResponse, error)
}

// SettlementHandler turns settlement messages into ApplyPayment calls keyed
// by settlement ID, so a redelivered message is acknowledged without posting
// twice. Version conflicts are retried; other domain rejections are logged and
// the message is acknowledged so it cannot block the partition.
type SettlementHandler struct {
	applier  PaymentApplier
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// NewSettlementHandler creates a handler that tries each settlement up to
// attempts times.
func NewSettlementHandler(applier PaymentApplier, attempts int, backoff time.Duration, logger *slog.Logger) *SettlementHandler {
	if attempts < 1 {
		attempts = 3
	}
	return &SettlementHandler{applier: applier, logger: logger, attempts: attempts, backoff: backoff}
}

// Handle implements pkg/kafka.Handler. A non-nil return leaves the offset
// uncommitted.
func (h *SettlementHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	var s Settlement
	if err := json.Unmarshal(msg.Value, &s); err != nil {
		h.logger.ErrorContext(ctx, "discarding malformed settlement", "key", string(msg.Key), "error", err)
		return nil
	}
	method := s.Method
	if method == "" {
		method = "GATEWAY"
	}
	req := dto.ApplyPaymentRequest{
		PeriodRef:  s.PeriodRef,
		Amount:     s.Amount,
		Method:     method,
		ReceivedBy: "settlement:" + s.SettlementID,

		SettlementID: s.SettlementID,
	}
	if s.SettlementID == "" {
		h.logger.ErrorContext(ctx, "discarding settlement without id", "period_ref", s.PeriodRef)
		return nil
	}

	var err error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		var resp dto.PaymentResponse
		resp, err = h.applier.Execute(ctx, req)
		if err == nil {
			h.logger.InfoContext(ctx, "settlement applied",
				"settlement_id", s.SettlementID,
				"period_ref", s.PeriodRef,
				"amount", s.Amount.String(),
				"loan_status", resp.LoanStatus,
			)
			return nil
		}
		if !model.IsRetryable(err) || attempt == h.attempts {
			break
		}
		h.logger.WarnContext(ctx, "settlement conflicted, retrying",
			"settlement_id", s.SettlementID, "attempt", attempt, "error", err)
		if err := sleep(ctx, h.backoff*time.Duration(attempt)); err != nil {
			return err
		}
	}

	if model.IsDuplicateSettlement(err) {
		h.logger.InfoContext(ctx, "settlement already applied", "settlement_id", s.SettlementID)
		return nil
	}
	if model.IsInvalidInput(err) || model.IsNotFound(err) || model.IsStateConflict(err) {
		h.logger.ErrorContext(ctx, "settlement rejected",
			"settlement_id", s.SettlementID, "period_ref", s.PeriodRef, "error", err)
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
