package model_test

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
	}{
		{"loan not found", &model.LoanNotFoundError{LoanID: "L1"}, model.ErrNotFound},
		{"period not found", &model.PeriodNotFoundError{PeriodRef: "L1-C1"}, model.ErrNotFound},
		{"endorsement not found", &model.EndorsementNotFoundError{EndorsementID: "PE1"}, model.ErrNotFound},
		{"invalid amount", &model.InvalidAmountError{Field: "amount", Amount: dec("0")}, model.ErrInvalidInput},
		{"duplicate schedule", &model.DuplicateScheduleError{LoanID: "L1"}, model.ErrInvalidInput},
		{"unsupported type", &model.UnsupportedLoanTypeError{LoanType: "X"}, model.ErrInvalidInput},
		{"validation", &model.ValidationError{Field: "f", Message: "m"}, model.ErrInvalidInput},
		{"penalty applied", &model.PenaltyAlreadyAppliedError{PeriodRef: "L1-C1", Penalty: dec("1")}, model.ErrStateConflict},
		{"endorsement resolved", &model.EndorsementResolvedError{EndorsementID: "PE1", Status: "APPROVED"}, model.ErrStateConflict},
		{"loan closed", &model.LoanClosedError{LoanID: "L1"}, model.ErrStateConflict},
		{"period state", &model.PeriodStateError{PeriodRef: "L1-C1", Status: "PAID", Reason: "x"}, model.ErrStateConflict},
		{"concurrency", &model.ConcurrencyConflictError{LoanID: "L1", Reason: "version"}, model.ErrConcurrencyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("apply payment: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.category)
			assert.NotEmpty(t, tt.err.Error())
			assert.Equal(t, tt.category == model.ErrNotFound, model.IsNotFound(wrapped))
			assert.Equal(t, tt.category == model.ErrInvalidInput, model.IsInvalidInput(wrapped))
			assert.Equal(t, tt.category == model.ErrStateConflict, model.IsStateConflict(wrapped))
			assert.Equal(t, tt.category == model.ErrConcurrencyConflict, model.IsRetryable(wrapped))
		})
	}
}

func TestIdentifierFormats(t *testing.T) {
	assert.Equal(t, "L00042", model.FormatLoanID(42))
	assert.Equal(t, "PE00007", model.FormatEndorsementID(7))
	assert.Equal(t, "L00042-C3", model.PeriodRef("L00042", 3))

	at := time.UnixMilli(1736931600000)
	ref := model.NewPaymentRef("L00042-C3", at)
	assert.Regexp(t, regexp.MustCompile(`^L00042-C3-P-1736931600000-[0-9a-f]{6}$`), ref)
	assert.NotEqual(t, ref, model.NewPaymentRef("L00042-C3", at))
}
