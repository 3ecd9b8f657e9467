package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/application/usecase"
	"github.com/bibbank/microfinance-ledger/internal/domain/model"
	"github.com/bibbank/microfinance-ledger/pkg/auth"
)

const maxBodyBytes = 1 << 20

// LedgerHandler exposes the ledger use cases over HTTP.
type LedgerHandler struct {
	uc       *usecase.Set
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLedgerHandler creates a handler backed by the given use cases.
func NewLedgerHandler(uc *usecase.Set, logger *slog.Logger) *LedgerHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &LedgerHandler{uc: uc, validate: v, logger: logger}
}

// RegisterRoutes mounts the ledger API. Callers must already carry claims.
func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	writers := auth.HTTPRequireRole(auth.RoleAdmin, auth.RoleCollector, auth.RoleService)

	r.Route("/loans", func(r chi.Router) {
		r.With(auth.HTTPRequireRole(auth.RoleAdmin, auth.RoleService)).Post("/", h.GenerateSchedule)
		r.Get("/{loanID}", h.GetLoan)
		r.Get("/{loanID}/ledger", h.GetLoanLedger)
	})
	r.Get("/borrowers/{borrowerID}/payments", h.GetBorrowerPayments)
	r.Post("/quotes", h.QuoteDisbursement)

	r.Route("/periods/{periodRef}", func(r chi.Router) {
		r.With(writers).Post("/payments", h.ApplyPayment)
		r.With(auth.HTTPRequireRole(auth.RoleAdmin, auth.RoleCollector)).Post("/endorsements", h.RequestEndorsement)
		r.With(auth.HTTPRequireRole(auth.RoleAdmin, auth.RoleCollector)).Put("/note", h.UpdatePeriodNote)
	})

	r.Route("/endorsements", func(r chi.Router) {
		r.Get("/", h.ListEndorsements)
		r.With(auth.HTTPRequireRole(auth.RoleReviewer)).Post("/{endorsementID}/resolve", h.ResolveEndorsement)
	})

	r.With(auth.HTTPRequireRole(auth.RoleAdmin)).Post("/sweeps", h.SweepStatuses)
}

// GenerateSchedule handles POST /loans.
func (h *LedgerHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateScheduleRequest
	if !h.decode(w, r, &req) || !h.valid(w, r, &req) {
		return
	}
	resp, err := h.uc.GenerateSchedule.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetLoan handles GET /loans/{loanID}.
func (h *LedgerHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.GetLoan.Execute(r.Context(), dto.GetLoanRequest{LoanID: chi.URLParam(r, "loanID")})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLoanLedger handles GET /loans/{loanID}/ledger.
func (h *LedgerHandler) GetLoanLedger(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.GetLoanLedger.Execute(r.Context(), dto.GetLoanRequest{LoanID: chi.URLParam(r, "loanID")})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBorrowerPayments handles GET /borrowers/{borrowerID}/payments.
func (h *LedgerHandler) GetBorrowerPayments(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.GetBorrowerPayments.Execute(r.Context(), dto.GetBorrowerPaymentsRequest{
		BorrowerID: chi.URLParam(r, "borrowerID"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if resp == nil {
		resp = []dto.PaymentRecordResponse{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuoteDisbursement handles POST /quotes.
func (h *LedgerHandler) QuoteDisbursement(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteDisbursementRequest
	if !h.decode(w, r, &req) || !h.valid(w, r, &req) {
		return
	}
	resp, err := h.uc.QuoteDisbursement.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ApplyPayment handles POST /periods/{periodRef}/payments.
func (h *LedgerHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.PeriodRef = chi.URLParam(r, "periodRef")
	if !h.valid(w, r, &req) {
		return
	}
	req.ReceivedBy = auth.ActorFromContext(r.Context(), req.ReceivedBy)

	resp, err := h.uc.ApplyPayment.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestEndorsement handles POST /periods/{periodRef}/endorsements.
func (h *LedgerHandler) RequestEndorsement(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestEndorsementRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.PeriodRef = chi.URLParam(r, "periodRef")
	if !h.valid(w, r, &req) {
		return
	}
	req.RequestedBy = auth.ActorFromContext(r.Context(), req.RequestedBy)

	resp, err := h.uc.RequestEndorsement.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdatePeriodNote handles PUT /periods/{periodRef}/note.
func (h *LedgerHandler) UpdatePeriodNote(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePeriodNoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.PeriodRef = chi.URLParam(r, "periodRef")
	if !h.valid(w, r, &req) {
		return
	}
	resp, err := h.uc.UpdatePeriodNote.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEndorsements handles GET /endorsements?status=.
func (h *LedgerHandler) ListEndorsements(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.ListEndorsements.Execute(r.Context(), dto.ListEndorsementsRequest{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if resp == nil {
		resp = []dto.EndorsementResponse{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResolveEndorsement handles POST /endorsements/{endorsementID}/resolve.
// The reviewer is always the authenticated caller.
func (h *LedgerHandler) ResolveEndorsement(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveEndorsementRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.EndorsementID = chi.URLParam(r, "endorsementID")
	if !h.valid(w, r, &req) {
		return
	}
	req.ReviewerID = auth.ActorFromContext(r.Context(), "")

	resp, err := h.uc.ResolveEndorsement.Execute(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SweepStatuses handles POST /sweeps.
func (h *LedgerHandler) SweepStatuses(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.SweepStatuses.Execute(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads an optional JSON body into dst. It writes the error reply
// itself and reports success.
func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, h.logger, r, &model.ValidationError{Field: "body", Message: "malformed JSON"})
		return false
	}
	return true
}

func (h *LedgerHandler) valid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := h.validate.Struct(v); err != nil {
		writeError(w, h.logger, r, validationError(err))
		return false
	}
	return true
}
