package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
)

// GetLoanUseCase retrieves a loan and its periods.
type GetLoanUseCase struct {
	store port.LedgerStore
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(store port.LedgerStore) *GetLoanUseCase {
	return &GetLoanUseCase{store: store}
}

// Execute fetches a loan by ID.
func (uc *GetLoanUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanDetailResponse, error) {
	repos := uc.store.Repositories()

	loan, err := repos.Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanDetailResponse{}, fmt.Errorf("find loan: %w", err)
	}
	periods, err := repos.Periods.FindByLoanID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanDetailResponse{}, fmt.Errorf("find periods: %w", err)
	}

	return dto.LoanDetailResponse{
		Loan:    toLoanResponse(loan),
		Periods: toPeriodResponses(periods),
	}, nil
}
