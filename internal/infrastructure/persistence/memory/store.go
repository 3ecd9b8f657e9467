// Package memory is an in-process ledger store for single-replica and test use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/internal/domain/port"
	"github.com/bibbank/microfinance-ledger/internal/domain/valueobject"
)

type ledgerData struct {
	loans          map[string]model.Loan
	periods        map[string]model.CollectionPeriod
	payments       []model.PaymentRecord
	endorsements   map[string]model.PenaltyEndorsement
	settlements    map[string]string
	loanSeq        int64
	endorsementSeq int64
}

func newLedgerData() *ledgerData {
	return &ledgerData{
		loans:        make(map[string]model.Loan),
		periods:      make(map[string]model.CollectionPeriod),
		endorsements: make(map[string]model.PenaltyEndorsement),
		settlements:  make(map[string]string),
	}
}

// Aggregates are immutable values, so copying the maps is a full snapshot.
func (d *ledgerData) snapshot() *ledgerData {
	c := &ledgerData{
		loans:          make(map[string]model.Loan, len(d.loans)),
		periods:        make(map[string]model.CollectionPeriod, len(d.periods)),
		payments:       append([]model.PaymentRecord(nil), d.payments...),
		endorsements:   make(map[string]model.PenaltyEndorsement, len(d.endorsements)),
		settlements:    make(map[string]string, len(d.settlements)),
		loanSeq:        d.loanSeq,
		endorsementSeq: d.endorsementSeq,
	}
	for k, v := range d.loans {
		c.loans[k] = v
	}
	for k, v := range d.periods {
		c.periods[k] = v
	}
	for k, v := range d.endorsements {
		c.endorsements[k] = v
	}
	for k, v := range d.settlements {
		c.settlements[k] = v
	}
	return c
}

// Store implements port.LedgerStore in memory. WithinTx holds the store lock
// for the whole unit of work and restores a snapshot when fn fails.
type Store struct {
	mu   sync.Mutex
	data *ledgerData
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newLedgerData()}
}

// Repositories returns repositories that lock per call.
func (s *Store) Repositories() port.Repositories {
	return s.repositories(false)
}

// WithinTx runs fn with exclusive access and rolls back on error.
func (s *Store) WithinTx(ctx context.Context, fn func(repos port.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	saved := s.data.snapshot()
	if err := fn(s.repositories(true)); err != nil {
		s.data = saved
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) repositories(held bool) port.Repositories {
	v := view{store: s, held: held}
	return port.Repositories{
		Loans:        loanRepo{v},
		Periods:      periodRepo{v},
		Payments:     paymentRepo{v},
		Endorsements: endorsementRepo{v},
		Settlements:  settlementRepo{v},
	}
}

type view struct {
	store *Store
	held  bool
}

func (v view) do(fn func(d *ledgerData) error) error {
	if !v.held {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

type loanRepo struct{ v view }

func (r loanRepo) Save(_ context.Context, loan model.Loan) error {
	return r.v.do(func(d *ledgerData) error {
		existing, ok := d.loans[loan.ID()]
		if ok {
			if existing.Version() != loan.Version() {
				return &model.ConcurrencyConflictError{LoanID: loan.ID(), Reason: "version is stale"}
			}
			loan = bumpVersion(loan)
		}
		d.loans[loan.ID()] = loan.ClearEvents()
		return nil
	})
}

func bumpVersion(l model.Loan) model.Loan {
	return model.ReconstructLoan(l.Terms(), model.LoanState{
		PaidAmount:         l.PaidAmount(),
		OutstandingBalance: l.OutstandingBalance(),
		CreditScore:        l.CreditScore(),
		Status:             l.Status(),
		Version:            l.Version() + 1,
		CreatedAt:          l.CreatedAt(),
		UpdatedAt:          l.UpdatedAt(),
	})
}

func (r loanRepo) FindByID(_ context.Context, id string) (model.Loan, error) {
	var out model.Loan
	err := r.v.do(func(d *ledgerData) error {
		l, ok := d.loans[id]
		if !ok {
			return &model.LoanNotFoundError{LoanID: id}
		}
		out = l
		return nil
	})
	return out, err
}

func (r loanRepo) FindByBorrowerID(_ context.Context, borrowerID string) ([]model.Loan, error) {
	var out []model.Loan
	err := r.v.do(func(d *ledgerData) error {
		for _, l := range d.loans {
			if l.BorrowerID() == borrowerID {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	return out, err
}

func (r loanRepo) NextLoanNumber(context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(d *ledgerData) error {
		d.loanSeq++
		n = d.loanSeq
		return nil
	})
	return n, err
}

// ---------------------------------------------------------------------------
// Periods
// ---------------------------------------------------------------------------

type periodRepo struct{ v view }

func (r periodRepo) SaveAll(_ context.Context, periods ...model.CollectionPeriod) error {
	return r.v.do(func(d *ledgerData) error {
		for _, p := range periods {
			d.periods[p.Ref()] = p.ClearEvents()
		}
		return nil
	})
}

func (r periodRepo) FindByRef(_ context.Context, ref string) (model.CollectionPeriod, error) {
	var out model.CollectionPeriod
	err := r.v.do(func(d *ledgerData) error {
		p, ok := d.periods[ref]
		if !ok {
			return &model.PeriodNotFoundError{PeriodRef: ref}
		}
		out = p
		return nil
	})
	return out, err
}

func (r periodRepo) FindByLoanID(_ context.Context, loanID string) ([]model.CollectionPeriod, error) {
	return r.filter(func(_ *ledgerData, p model.CollectionPeriod) bool { return p.LoanID() == loanID })
}

func (r periodRepo) LoanIDsWithOpenPeriods(_ context.Context, dueBefore time.Time) ([]string, error) {
	seen := make(map[string]bool)
	err := r.v.do(func(d *ledgerData) error {
		for _, p := range d.periods {
			if p.Status().IsPaid() || !p.DueDate().Before(dueBefore) {
				continue
			}
			if l, ok := d.loans[p.LoanID()]; ok && l.Status().IsClosed() {
				continue
			}
			seen[p.LoanID()] = true
		}
		return nil
	})
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, err
}

func (r periodRepo) FindByStatuses(_ context.Context, statuses ...valueobject.PeriodStatus) ([]model.CollectionPeriod, error) {
	return r.filter(func(_ *ledgerData, p model.CollectionPeriod) bool {
		for _, s := range statuses {
			if p.Status().Equal(s) {
				return true
			}
		}
		return false
	})
}

func (r periodRepo) filter(keep func(d *ledgerData, p model.CollectionPeriod) bool) ([]model.CollectionPeriod, error) {
	var out []model.CollectionPeriod
	err := r.v.do(func(d *ledgerData) error {
		for _, p := range d.periods {
			if keep(d, p) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoanID() != out[j].LoanID() {
			return out[i].LoanID() < out[j].LoanID()
		}
		return out[i].Sequence() < out[j].Sequence()
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

type paymentRepo struct{ v view }

func (r paymentRepo) Append(_ context.Context, records ...model.PaymentRecord) error {
	return r.v.do(func(d *ledgerData) error {
		for _, rec := range records {
			for _, existing := range d.payments {
				if existing.Ref() == rec.Ref() {
					return &model.ValidationError{Field: "payment_ref", Message: "duplicate " + rec.Ref()}
				}
			}
		}
		d.payments = append(d.payments, records...)
		return nil
	})
}

func (r paymentRepo) FindByLoanID(_ context.Context, loanID string) ([]model.PaymentRecord, error) {
	return r.newestFirst(func(rec model.PaymentRecord) bool { return rec.LoanID() == loanID })
}

func (r paymentRepo) FindByBorrowerID(_ context.Context, borrowerID string) ([]model.PaymentRecord, error) {
	return r.newestFirst(func(rec model.PaymentRecord) bool { return rec.BorrowerID() == borrowerID })
}

func (r paymentRepo) newestFirst(keep func(model.PaymentRecord) bool) ([]model.PaymentRecord, error) {
	var out []model.PaymentRecord
	err := r.v.do(func(d *ledgerData) error {
		for i := len(d.payments) - 1; i >= 0; i-- {
			if keep(d.payments[i]) {
				out = append(out, d.payments[i])
			}
		}
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Endorsements
// ---------------------------------------------------------------------------

type endorsementRepo struct{ v view }

func (r endorsementRepo) Save(_ context.Context, e model.PenaltyEndorsement) error {
	return r.v.do(func(d *ledgerData) error {
		d.endorsements[e.ID()] = e.ClearEvents()
		return nil
	})
}

func (r endorsementRepo) FindByID(_ context.Context, id string) (model.PenaltyEndorsement, error) {
	var out model.PenaltyEndorsement
	err := r.v.do(func(d *ledgerData) error {
		e, ok := d.endorsements[id]
		if !ok {
			return &model.EndorsementNotFoundError{EndorsementID: id}
		}
		out = e
		return nil
	})
	return out, err
}

func (r endorsementRepo) FindByStatus(_ context.Context, status valueobject.EndorsementStatus) ([]model.PenaltyEndorsement, error) {
	var out []model.PenaltyEndorsement
	err := r.v.do(func(d *ledgerData) error {
		for _, e := range d.endorsements {
			if e.Status().Equal(status) {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt().Equal(out[j].RequestedAt()) {
			return out[i].RequestedAt().Before(out[j].RequestedAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out, err
}

func (r endorsementRepo) NextEndorsementNumber(context.Context) (int64, error) {
	var n int64
	err := r.v.do(func(d *ledgerData) error {
		d.endorsementSeq++
		n = d.endorsementSeq
		return nil
	})
	return n, err
}

// ---------------------------------------------------------------------------
// Settlements
// ---------------------------------------------------------------------------

type settlementRepo struct{ v view }

func (r settlementRepo) Record(_ context.Context, settlementID, loanID string, _ time.Time) error {
	return r.v.do(func(d *ledgerData) error {
		if _, ok := d.settlements[settlementID]; ok {
			return &model.DuplicateSettlementError{SettlementID: settlementID}
		}
		d.settlements[settlementID] = loanID
		return nil
	})
}
