package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/money"
)

// ---------------------------------------------------------------------------
// PaymentAllocator – waterfall allocation of confirmed payments
// ---------------------------------------------------------------------------

// AllocationRequest is one payment against a loan's schedule.
type AllocationRequest struct {
	Loan       model.Loan
	Periods    []model.CollectionPeriod
	PeriodRef  string
	Amount     decimal.Decimal
	Method     valueobject.PaymentMethod
	ReceivedBy string
	At         time.Time
}

// Allocation is the settled outcome of a payment. Nothing in it is persisted yet.
type Allocation struct {
	Loan        model.Loan
	Touched     []model.CollectionPeriod // existing periods the payment mutated, in sequence order
	Generated   []model.CollectionPeriod // open-term continuation periods
	Records     []model.PaymentRecord
	Applied     decimal.Decimal
	Leftover    decimal.Decimal
	ScoreDelta  decimal.Decimal
	PriorStatus valueobject.PeriodStatus
}

// PaymentAllocator applies payments with the rule matching the loan type.
type PaymentAllocator struct{}

// NewPaymentAllocator returns an allocator.
func NewPaymentAllocator() *PaymentAllocator {
	return &PaymentAllocator{}
}

// Allocate runs the waterfall, adjusts the credit score from the first
// touched period's prior tier and re-derives the loan status.
func (a *PaymentAllocator) Allocate(req AllocationRequest) (Allocation, error) {
	if !req.Amount.IsPositive() {
		return Allocation{}, &model.InvalidAmountError{Field: "amount", Amount: req.Amount}
	}
	if req.Loan.Status().IsClosed() {
		return Allocation{}, &model.LoanClosedError{LoanID: req.Loan.ID()}
	}

	periods := make([]model.CollectionPeriod, len(req.Periods))
	copy(periods, req.Periods)
	sort.Slice(periods, func(i, j int) bool { return periods[i].Sequence() < periods[j].Sequence() })

	var (
		alloc Allocation
		err   error
	)
	switch {
	case req.Loan.Type().IsFixedTerm():
		alloc, err = a.fixedTerm(req, periods)
	case req.Loan.Type().IsOpenTerm():
		alloc, err = a.openTerm(req, periods)
	default:
		return Allocation{}, &model.UnsupportedLoanTypeError{LoanType: req.Loan.Type().String()}
	}
	if err != nil {
		return Allocation{}, err
	}

	refs := make([]string, 0, len(alloc.Records))
	for _, r := range alloc.Records {
		refs = append(refs, r.Ref())
	}

	loan := req.Loan
	if len(alloc.Touched) > 0 {
		var score decimal.Decimal
		score, alloc.ScoreDelta = AdjustCreditScore(loan.CreditScore(), alloc.PriorStatus)
		loan = loan.WithCreditScore(score, req.At)
	}

	balanceReduction := decimal.Zero
	for _, r := range alloc.Records {
		balanceReduction = balanceReduction.Add(a.balanceReduction(loan, r))
	}
	loan, err = loan.RecordPayment(model.PaymentPosting{
		PeriodRef:        req.PeriodRef,
		Method:           req.Method,
		Amount:           req.Amount,
		Applied:          alloc.Applied,
		BalanceReduction: balanceReduction,
		PaymentRefs:      refs,
	}, req.At)
	if err != nil {
		return Allocation{}, err
	}

	alloc.Loan = loan.WithStatus(DeriveLoanStatus(mergePeriods(periods, alloc.Touched, alloc.Generated)), req.At)
	return alloc, nil
}

// fixedTerm walks periods in sequence from the first with a balance, taking
// min(remaining, balance) from each until the payment is exhausted.
func (a *PaymentAllocator) fixedTerm(req AllocationRequest, periods []model.CollectionPeriod) (Allocation, error) {
	out := Allocation{Applied: decimal.Zero, ScoreDelta: decimal.Zero}
	remaining := req.Amount

	for _, p := range periods {
		if !remaining.IsPositive() {
			break
		}
		if p.Status().IsPaid() || !p.PeriodBalance().IsPositive() {
			continue
		}

		portion := money.Min(remaining, p.PeriodBalance())
		next, pa, err := p.ApplyPayment(portion, req.At)
		if err != nil {
			return Allocation{}, err
		}
		rec, err := model.NewPaymentRecord(model.PaymentLine{
			LoanID:           p.LoanID(),
			BorrowerID:       p.BorrowerID(),
			PeriodRef:        p.Ref(),
			Sequence:         p.Sequence(),
			Amount:           portion,
			InterestPortion:  decimal.Zero,
			PenaltyPortion:   pa.PenaltyPart,
			PrincipalPortion: decimal.Zero,
			Method:           req.Method,
			BalanceAfter:     pa.BalanceAfter,
			PriorStatus:      pa.PriorStatus,
			ReceivedBy:       req.ReceivedBy,
			PaidAt:           req.At,
		})
		if err != nil {
			return Allocation{}, err
		}

		if len(out.Touched) == 0 {
			out.PriorStatus = pa.PriorStatus
		}
		out.Touched = append(out.Touched, next)
		out.Records = append(out.Records, rec)
		out.Applied = out.Applied.Add(portion)
		remaining = remaining.Sub(portion)
	}

	out.Leftover = remaining
	return out, nil
}

// openTerm settles the current period (interest, then any penalty) and puts
// what is left against principal. A fully paid period with principal still
// owed rolls into the next cycle.
func (a *PaymentAllocator) openTerm(req AllocationRequest, periods []model.CollectionPeriod) (Allocation, error) {
	if len(periods) == 0 {
		return Allocation{}, &model.PeriodNotFoundError{PeriodRef: req.PeriodRef}
	}
	current := periods[len(periods)-1]
	if current.Status().IsPaid() {
		return Allocation{}, &model.PeriodStateError{
			PeriodRef: current.Ref(), Status: current.Status().String(), Reason: "no open period to pay into",
		}
	}

	principalOutstanding := req.Loan.PrincipalOutstanding(current.UnpaidPenalty())

	periodPart := money.Min(req.Amount, current.PeriodBalance())
	next, pa, err := current.ApplyPayment(periodPart, req.At)
	if err != nil {
		return Allocation{}, err
	}
	remaining := req.Amount.Sub(periodPart)

	principalPart := money.Min(remaining, principalOutstanding)
	remaining = remaining.Sub(principalPart)
	principalLeft := principalOutstanding.Sub(principalPart)

	rec, err := model.NewPaymentRecord(model.PaymentLine{
		LoanID:           current.LoanID(),
		BorrowerID:       current.BorrowerID(),
		PeriodRef:        current.Ref(),
		Sequence:         current.Sequence(),
		Amount:           periodPart.Add(principalPart),
		InterestPortion:  pa.ScheduledPart,
		PenaltyPortion:   pa.PenaltyPart,
		PrincipalPortion: principalPart,
		Method:           req.Method,
		BalanceAfter:     pa.BalanceAfter,
		PriorStatus:      pa.PriorStatus,
		ReceivedBy:       req.ReceivedBy,
		PaidAt:           req.At,
	})
	if err != nil {
		return Allocation{}, err
	}

	out := Allocation{
		Touched:     []model.CollectionPeriod{next},
		Records:     []model.PaymentRecord{rec},
		Applied:     periodPart.Add(principalPart),
		Leftover:    remaining,
		ScoreDelta:  decimal.Zero,
		PriorStatus: pa.PriorStatus,
	}

	if pa.BecamePaid && principalLeft.IsPositive() {
		gen, err := model.NextOpenTermPeriod(req.Loan, next, principalLeft, req.At)
		if err != nil {
			return Allocation{}, err
		}
		out.Generated = append(out.Generated, gen)
	}
	return out, nil
}

// balanceReduction is how far one record moves the loan's outstanding
// balance. FixedTerm balances include interest, so the whole line counts.
// OpenTerm balances are principal plus posted penalty, so interest does not.
func (a *PaymentAllocator) balanceReduction(loan model.Loan, r model.PaymentRecord) decimal.Decimal {
	if loan.Type().IsOpenTerm() {
		return r.PenaltyPortion().Add(r.PrincipalPortion())
	}
	return r.Amount()
}

func mergePeriods(all, touched, generated []model.CollectionPeriod) []model.CollectionPeriod {
	byRef := make(map[string]model.CollectionPeriod, len(touched))
	for _, p := range touched {
		byRef[p.Ref()] = p
	}
	out := make([]model.CollectionPeriod, 0, len(all)+len(generated))
	for _, p := range all {
		if t, ok := byRef[p.Ref()]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, p)
	}
	return append(out, generated...)
}
