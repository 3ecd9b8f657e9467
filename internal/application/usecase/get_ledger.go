package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
)

// GetLoanLedgerUseCase returns a loan with its periods and payment history.
type GetLoanLedgerUseCase struct {
	store port.LedgerStore
}

// NewGetLoanLedgerUseCase wires dependencies.
func NewGetLoanLedgerUseCase(store port.LedgerStore) *GetLoanLedgerUseCase {
	return &GetLoanLedgerUseCase{store: store}
}

// Execute reads the ledger in one transaction so the three views agree.
func (uc *GetLoanLedgerUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LedgerResponse, error) {
	var resp dto.LedgerResponse
	err := uc.store.WithinTx(ctx, func(repos port.Repositories) error {
		loan, err := repos.Loans.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		periods, err := repos.Periods.FindByLoanID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find periods: %w", err)
		}
		payments, err := repos.Payments.FindByLoanID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find payments: %w", err)
		}
		resp = dto.LedgerResponse{
			Loan:     toLoanResponse(loan),
			Periods:  toPeriodResponses(periods),
			Payments: toPaymentResponses(payments),
		}
		return nil
	})
	if err != nil {
		return dto.LedgerResponse{}, err
	}
	return resp, nil
}

// GetBorrowerPaymentsUseCase lists every payment a borrower made, newest first.
type GetBorrowerPaymentsUseCase struct {
	store port.LedgerStore
}

// NewGetBorrowerPaymentsUseCase wires dependencies.
func NewGetBorrowerPaymentsUseCase(store port.LedgerStore) *GetBorrowerPaymentsUseCase {
	return &GetBorrowerPaymentsUseCase{store: store}
}

// Execute fetches the borrower's payment records. An unknown borrower has none.
func (uc *GetBorrowerPaymentsUseCase) Execute(
	ctx context.Context,
	req dto.GetBorrowerPaymentsRequest,
) ([]dto.PaymentRecordResponse, error) {
	records, err := uc.store.Repositories().Payments.FindByBorrowerID(ctx, req.BorrowerID)
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	return toPaymentResponses(records), nil
}
