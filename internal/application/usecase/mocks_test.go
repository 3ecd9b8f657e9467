package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/event"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
	"github.com/bibbank/microfinance-ledger/pkg/clock"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

// --- Mock Repositories ---

type mockLoanRepository struct {
	saveFunc     func(ctx context.Context, loan model.Loan) error
	findByIDFunc func(ctx context.Context, id string) (model.Loan, error)
	loans        map[string]model.Loan
	savedLoans   []model.Loan
	lastNumber   int64
}

func (m *mockLoanRepository) Save(ctx context.Context, loan model.Loan) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, loan)
	}
	m.savedLoans = append(m.savedLoans, loan)
	m.loans[loan.ID()] = loan.ClearEvents()
	return nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id string) (model.Loan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	l, ok := m.loans[id]
	if !ok {
		return model.Loan{}, &model.LoanNotFoundError{LoanID: id}
	}
	return l, nil
}

func (m *mockLoanRepository) FindByBorrowerID(_ context.Context, borrowerID string) ([]model.Loan, error) {
	var out []model.Loan
	for _, l := range m.loans {
		if l.BorrowerID() == borrowerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLoanRepository) NextLoanNumber(_ context.Context) (int64, error) {
	m.lastNumber++
	return m.lastNumber, nil
}

type mockPeriodRepository struct {
	saveAllFunc func(ctx context.Context, periods ...model.CollectionPeriod) error
	periods     map[string]model.CollectionPeriod
	saveCalls   int
}

func (m *mockPeriodRepository) SaveAll(ctx context.Context, periods ...model.CollectionPeriod) error {
	if m.saveAllFunc != nil {
		return m.saveAllFunc(ctx, periods...)
	}
	m.saveCalls++
	for _, p := range periods {
		m.periods[p.Ref()] = p.ClearEvents()
	}
	return nil
}

func (m *mockPeriodRepository) FindByRef(_ context.Context, ref string) (model.CollectionPeriod, error) {
	p, ok := m.periods[ref]
	if !ok {
		return model.CollectionPeriod{}, &model.PeriodNotFoundError{PeriodRef: ref}
	}
	return p, nil
}

func (m *mockPeriodRepository) FindByLoanID(_ context.Context, loanID string) ([]model.CollectionPeriod, error) {
	var out []model.CollectionPeriod
	for _, p := range m.periods {
		if p.LoanID() == loanID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence() < out[j].Sequence() })
	return out, nil
}

func (m *mockPeriodRepository) LoanIDsWithOpenPeriods(_ context.Context, dueBefore time.Time) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range m.periods {
		if p.Status().IsPaid() || !p.DueDate().Before(dueBefore) || seen[p.LoanID()] {
			continue
		}
		seen[p.LoanID()] = true
		out = append(out, p.LoanID())
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockPeriodRepository) FindByStatuses(_ context.Context, statuses ...valueobject.PeriodStatus) ([]model.CollectionPeriod, error) {
	var out []model.CollectionPeriod
	for _, p := range m.periods {
		for _, s := range statuses {
			if p.Status().Equal(s) {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref() < out[j].Ref() })
	return out, nil
}

type mockPaymentRepository struct {
	appendFunc func(ctx context.Context, records ...model.PaymentRecord) error
	records    []model.PaymentRecord
}

func (m *mockPaymentRepository) Append(ctx context.Context, records ...model.PaymentRecord) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, records...)
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *mockPaymentRepository) FindByLoanID(_ context.Context, loanID string) ([]model.PaymentRecord, error) {
	var out []model.PaymentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].LoanID() == loanID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) FindByBorrowerID(_ context.Context, borrowerID string) ([]model.PaymentRecord, error) {
	var out []model.PaymentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].BorrowerID() == borrowerID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type mockEndorsementRepository struct {
	saveFunc     func(ctx context.Context, e model.PenaltyEndorsement) error
	endorsements map[string]model.PenaltyEndorsement
	lastNumber   int64
}

func (m *mockEndorsementRepository) Save(ctx context.Context, e model.PenaltyEndorsement) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, e)
	}
	m.endorsements[e.ID()] = e.ClearEvents()
	return nil
}

func (m *mockEndorsementRepository) FindByID(_ context.Context, id string) (model.PenaltyEndorsement, error) {
	e, ok := m.endorsements[id]
	if !ok {
		return model.PenaltyEndorsement{}, &model.EndorsementNotFoundError{EndorsementID: id}
	}
	return e, nil
}

func (m *mockEndorsementRepository) FindByStatus(_ context.Context, status valueobject.EndorsementStatus) ([]model.PenaltyEndorsement, error) {
	var out []model.PenaltyEndorsement
	for _, e := range m.endorsements {
		if e.Status().Equal(status) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *mockEndorsementRepository) NextEndorsementNumber(_ context.Context) (int64, error) {
	m.lastNumber++
	return m.lastNumber, nil
}

type mockSettlementRepository struct {
	seen map[string]string
}

func (m *mockSettlementRepository) Record(_ context.Context, settlementID, loanID string, _ time.Time) error {
	if _, ok := m.seen[settlementID]; ok {
		return &model.DuplicateSettlementError{SettlementID: settlementID}
	}
	m.seen[settlementID] = loanID
	return nil
}

// --- Mock Store, Locker, Publisher, Scheduler ---

type mockStore struct {
	repos       port.Repositories
	withinTxErr error
	txCount     int
}

func (m *mockStore) Repositories() port.Repositories { return m.repos }

func (m *mockStore) WithinTx(_ context.Context, fn func(repos port.Repositories) error) error {
	if m.withinTxErr != nil {
		return m.withinTxErr
	}
	m.txCount++
	return fn(m.repos)
}

type mockLocker struct {
	lockFunc func(ctx context.Context, loanID string) (func(), error)
	locked   []string
	held     int
}

func (m *mockLocker) Lock(ctx context.Context, loanID string) (func(), error) {
	if m.lockFunc != nil {
		return m.lockFunc(ctx, loanID)
	}
	m.locked = append(m.locked, loanID)
	m.held++
	return func() { m.held-- }, nil
}

type mockEventPublisher struct {
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func (m *mockEventPublisher) types() []string {
	out := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

type mockNotificationScheduler struct {
	scheduleFunc func(ctx context.Context, notices ...port.DueNotice) error
	notices      []port.DueNotice
}

func (m *mockNotificationScheduler) ScheduleDueNotices(ctx context.Context, notices ...port.DueNotice) error {
	if m.scheduleFunc != nil {
		return m.scheduleFunc(ctx, notices...)
	}
	m.notices = append(m.notices, notices...)
	return nil
}

// --- Harness ---

type harness struct {
	loans        *mockLoanRepository
	periods      *mockPeriodRepository
	payments     *mockPaymentRepository
	endorsements *mockEndorsementRepository
	settlements  *mockSettlementRepository
	store        *mockStore
	locker       *mockLocker
	publisher    *mockEventPublisher
	notices      *mockNotificationScheduler
	clock        *clock.Fixed
	logger       *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loans:        &mockLoanRepository{loans: map[string]model.Loan{}},
		periods:      &mockPeriodRepository{periods: map[string]model.CollectionPeriod{}},
		payments:     &mockPaymentRepository{},
		endorsements: &mockEndorsementRepository{endorsements: map[string]model.PenaltyEndorsement{}},
		settlements:  &mockSettlementRepository{seen: map[string]string{}},
		locker:       &mockLocker{},
		publisher:    &mockEventPublisher{},
		notices:      &mockNotificationScheduler{},
		clock:        clock.NewFixed(testutil.TestDisbursedAt),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.store = &mockStore{repos: port.Repositories{
		Loans:        h.loans,
		Periods:      h.periods,
		Payments:     h.payments,
		Endorsements: h.endorsements,
		Settlements:  h.settlements,
	}}
	return h
}

// seed books a loan and its schedule directly into the mock repositories.
func (h *harness) seed(t *testing.T, id string, lt valueobject.LoanType, principal, rate string, term int) model.Loan {
	t.Helper()
	loan, err := model.NewLoan(model.LoanTerms{
		ID:           id,
		BorrowerID:   testutil.TestBorrowerID,
		Type:         lt,
		Principal:    testutil.Dec(principal),
		InterestRate: testutil.Dec(rate),
		TermPeriods:  term,
		DisbursedAt:  testutil.TestDisbursedAt,
	}, testutil.TestDisbursedAt)
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	periods, err := model.BuildSchedule(loan, testutil.TestDisbursedAt)
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	h.loans.loans[id] = loan.ClearEvents()
	for _, p := range periods {
		h.periods.periods[p.Ref()] = p
	}
	return loan.ClearEvents()
}

// escalate forces a stored period into a late tier.
func (h *harness) escalate(t *testing.T, ref string, to valueobject.PeriodStatus) {
	t.Helper()
	p := h.periods.periods[ref]
	next, ok := p.Escalate(to, 40, h.clock.Now())
	if !ok {
		t.Fatalf("cannot escalate %s to %s", ref, to)
	}
	h.periods.periods[ref] = next.ClearEvents()
}
