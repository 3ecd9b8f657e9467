package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/pkg/auth"
)

// LedgerHandler is the gRPC handler for ledger operations.
type LedgerHandler struct {
	UnimplementedLedgerServiceServer

	uc     *usecase.Set
	logger *slog.Logger
}

// NewLedgerHandler creates a new handler with all use-case dependencies.
func NewLedgerHandler(uc *usecase.Set, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{uc: uc, logger: logger}
}

func (h *LedgerHandler) GenerateSchedule(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error) {
	resp, err := h.uc.GenerateSchedule.Execute(ctx, *req)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) ApplyPayment(ctx context.Context, req *dto.ApplyPaymentRequest) (*dto.PaymentResponse, error) {
	in := *req
	in.ReceivedBy = auth.ActorFromContext(ctx, in.ReceivedBy)
	resp, err := h.uc.ApplyPayment.Execute(ctx, in)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) SweepStatuses(ctx context.Context, _ *SweepStatusesRequest) (*dto.SweepResponse, error) {
	resp, err := h.uc.SweepStatuses.Execute(ctx)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) RequestPenaltyEndorsement(ctx context.Context, req *dto.RequestEndorsementRequest) (*dto.EndorsementResponse, error) {
	in := *req
	in.RequestedBy = auth.ActorFromContext(ctx, in.RequestedBy)
	resp, err := h.uc.RequestEndorsement.Execute(ctx, in)
	return reply(ctx, h.logger, resp, err)
}

// ResolveEndorsement records the authenticated caller as the reviewer.
func (h *LedgerHandler) ResolveEndorsement(ctx context.Context, req *dto.ResolveEndorsementRequest) (*dto.EndorsementResponse, error) {
	in := *req
	in.ReviewerID = auth.ActorFromContext(ctx, "")
	resp, err := h.uc.ResolveEndorsement.Execute(ctx, in)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) ListEndorsements(ctx context.Context, req *dto.ListEndorsementsRequest) (*EndorsementList, error) {
	found, err := h.uc.ListEndorsements.Execute(ctx, *req)
	return reply(ctx, h.logger, EndorsementList{Endorsements: found}, err)
}

func (h *LedgerHandler) GetLoan(ctx context.Context, req *dto.GetLoanRequest) (*dto.LoanDetailResponse, error) {
	resp, err := h.uc.GetLoan.Execute(ctx, *req)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) GetLoanLedger(ctx context.Context, req *dto.GetLoanRequest) (*dto.LedgerResponse, error) {
	resp, err := h.uc.GetLoanLedger.Execute(ctx, *req)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) GetBorrowerPayments(ctx context.Context, req *dto.GetBorrowerPaymentsRequest) (*PaymentList, error) {
	found, err := h.uc.GetBorrowerPayments.Execute(ctx, *req)
	return reply(ctx, h.logger, PaymentList{Payments: found}, err)
}

func (h *LedgerHandler) QuoteDisbursement(ctx context.Context, req *dto.QuoteDisbursementRequest) (*dto.QuoteResponse, error) {
	resp, err := h.uc.QuoteDisbursement.Execute(ctx, *req)
	return reply(ctx, h.logger, resp, err)
}

func (h *LedgerHandler) UpdatePeriodNote(ctx context.Context, req *dto.UpdatePeriodNoteRequest) (*dto.PeriodResponse, error) {
	resp, err := h.uc.UpdatePeriodNote.Execute(ctx, *req)
	return reply(ctx, h.logger, resp, err)
}

func reply[T any](ctx context.Context, logger *slog.Logger, resp T, err error) (*T, error) {
	if err != nil {
		st := toStatus(err)
		if st.Code() == codes.Internal {
			logger.ErrorContext(ctx, "grpc call failed", "error", err)
		}
		return nil, st.Err()
	}
	return &resp, nil
}

// toStatus maps an error category onto a gRPC status.
func toStatus(err error) *status.Status {
	switch {
	case model.IsNotFound(err):
		return status.New(codes.NotFound, err.Error())
	case model.IsInvalidInput(err):
		return status.New(codes.InvalidArgument, err.Error())
	case model.IsStateConflict(err):
		return status.New(codes.FailedPrecondition, err.Error())
	case model.IsRetryable(err):
		return status.New(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	default:
		return status.New(codes.Internal, "internal error")
	}
}
