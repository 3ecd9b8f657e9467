package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

// ListEndorsementsUseCase lists endorsements for reviewers.
type ListEndorsementsUseCase struct {
	store port.LedgerStore
}

// NewListEndorsementsUseCase wires dependencies.
func NewListEndorsementsUseCase(store port.LedgerStore) *ListEndorsementsUseCase {
	return &ListEndorsementsUseCase{store: store}
}

// Execute returns endorsements in the requested status, PENDING by default.
func (uc *ListEndorsementsUseCase) Execute(
	ctx context.Context,
	req dto.ListEndorsementsRequest,
) ([]dto.EndorsementResponse, error) {
	status := valueobject.EndorsementStatusPending
	if req.Status != "" {
		s, err := valueobject.NewEndorsementStatus(strings.ToUpper(req.Status))
		if err != nil {
			return nil, &model.ValidationError{Field: "status", Message: err.Error()}
		}
		status = s
	}

	found, err := uc.store.Repositories().Endorsements.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("find endorsements: %w", err)
	}

	out := make([]dto.EndorsementResponse, 0, len(found))
	for _, e := range found {
		out = append(out, toEndorsementResponse(e))
	}
	return out, nil
}
