package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// QuoteDisbursementUseCase prices a prospective loan. It reads no state.
type QuoteDisbursementUseCase struct{}

// NewQuoteDisbursementUseCase returns the use case.
func NewQuoteDisbursementUseCase() *QuoteDisbursementUseCase {
	return &QuoteDisbursementUseCase{}
}

// Execute returns the service fee, net release and repayment figures.
func (uc *QuoteDisbursementUseCase) Execute(
	_ context.Context,
	req dto.QuoteDisbursementRequest,
) (dto.QuoteResponse, error) {
	loanType, err := parseLoanType(req.LoanType)
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("parse terms: %w", err)
	}
	currency, err := parseCurrency(req.Currency)
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("parse terms: %w", err)
	}

	q, err := model.QuoteDisbursement(
		loanType,
		money.New(req.Principal, currency),
		req.InterestRate,
		req.TermPeriods,
		money.New(req.PreviousBalance, currency),
	)
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("quote disbursement: %w", err)
	}

	return dto.QuoteResponse{
		LoanType:          q.LoanType.String(),
		Currency:          currency.Code(),
		Principal:         q.Principal.Amount(),
		ServiceFee:        q.ServiceFee.Amount(),
		PreviousBalance:   q.PreviousBalance.Amount(),
		NetReleased:       q.NetReleased.Amount(),
		InterestPerPeriod: q.InterestPerPeriod.Amount(),
		TotalInterest:     q.TotalInterest.Amount(),
		TotalPayable:      q.TotalPayable.Amount(),
		Installment:       q.Installment.Amount(),
	}, nil
}
