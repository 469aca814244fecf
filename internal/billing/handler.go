package billing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/medcabinet/cabinet/internal/export"
	"github.com/medcabinet/cabinet/internal/platform/httpx"
	"github.com/medcabinet/cabinet/internal/rbac"
	"github.com/medcabinet/cabinet/internal/shared"
)

// Handler manages ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
	now       func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleSecretary))
		r.Get("/invoices", h.listInvoices)
		r.Post("/invoices", h.createInvoice)
		r.Post("/invoices/from-consultation", h.createFromConsultation)
		r.Get("/invoices/export.csv", h.exportInvoices)
		r.Get("/invoices/{id}", h.getInvoice)
		r.Patch("/invoices/{id}", h.updateInvoice)
		r.Delete("/invoices/{id}", h.deleteInvoice)
		r.Get("/invoices/{id}/payments", h.listInvoicePayments)
		r.Post("/payments", h.createPayment)
		r.Delete("/payments/{id}", h.deletePayment)
	})
}

type acteRequest struct {
	Nom          string          `json:"nom" validate:"required"`
	Quantite     int             `json:"quantite" validate:"gt=0"`
	PrixUnitaire decimal.Decimal `json:"prix_unitaire"`
}

type invoiceRequest struct {
	PatientID      string           `json:"patient_id" validate:"required"`
	ConsultationID string           `json:"consultation_id"`
	Actes          []acteRequest    `json:"actes" validate:"dive"`
	MontantTotal   *decimal.Decimal `json:"montant_total"`
	Description    string           `json:"description"`
}

type fromConsultationRequest struct {
	ConsultationID string          `json:"consultation_id" validate:"required"`
	MontantTotal   decimal.Decimal `json:"montant_total"`
	Description    string          `json:"description"`
}

type invoiceUpdateRequest struct {
	PatientID      *string          `json:"patient_id" validate:"omitempty,min=1"`
	ConsultationID *string          `json:"consultation_id"`
	Actes          *[]acteRequest   `json:"actes" validate:"omitempty,dive"`
	MontantTotal   *decimal.Decimal `json:"montant_total"`
	Description    *string          `json:"description"`
}

type paymentRequest struct {
	FactureID    string          `json:"facture_id" validate:"required"`
	Montant      decimal.Decimal `json:"montant"`
	ModePaiement PaymentMode     `json:"mode_paiement" validate:"required"`
	Reference    string          `json:"reference"`
	Notes        string          `json:"notes"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	var status InvoiceStatus
	if raw := strings.TrimSpace(query.Get("statut")); raw != "" {
		status = InvoiceStatus(raw)
		if !status.Valid() {
			httpx.ValidationProblem(w, "unknown status", map[string]string{"statut": "oneof"})
			return
		}
	}
	var (
		rows []InvoiceWithDetails
		err  error
	)
	switch {
	case status != "" && q == "":
		rows, err = h.service.FilterByStatus(r.Context(), status)
	default:
		rows, err = h.service.SearchInvoices(r.Context(), q)
		if err == nil && status != "" {
			rows = KeepStatus(rows, status)
		}
	}
	if err != nil {
		h.serverError(w, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.InvoiceWithDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	actes := toActes(req.Actes)
	total := SumActes(actes)
	if req.MontantTotal != nil {
		total = *req.MontantTotal
	}
	if fields := checkAmounts(actes, &total); fields != nil {
		httpx.ValidationProblem(w, "invalid amounts", fields)
		return
	}
	inv, err := h.service.AddInvoice(r.Context(), InvoiceInput{
		PatientID:      req.PatientID,
		ConsultationID: req.ConsultationID,
		Actes:          actes,
		MontantTotal:   total,
		Description:    req.Description,
	})
	if err != nil {
		h.respond(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) createFromConsultation(w http.ResponseWriter, r *http.Request) {
	var req fromConsultationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.MontantTotal.IsPositive() {
		httpx.ValidationProblem(w, "invalid amounts", map[string]string{"montant_total": "gt"})
		return
	}
	inv, err := h.service.CreateInvoiceFromConsultation(r.Context(), req.ConsultationID, req.MontantTotal, req.Description)
	if err != nil {
		h.respond(w, "create invoice from consultation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := InvoiceUpdate{
		PatientID:      req.PatientID,
		ConsultationID: req.ConsultationID,
		MontantTotal:   req.MontantTotal,
		Description:    req.Description,
	}
	var actes []Acte
	if req.Actes != nil {
		actes = toActes(*req.Actes)
		upd.Actes = &actes
		if upd.MontantTotal == nil {
			total := SumActes(actes)
			upd.MontantTotal = &total
		}
	}
	if upd.MontantTotal != nil || upd.Actes != nil {
		if fields := checkAmounts(actes, upd.MontantTotal); fields != nil {
			httpx.ValidationProblem(w, "invalid amounts", fields)
			return
		}
	}
	inv, err := h.service.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.respond(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.service.DeleteInvoice(r.Context(), id)
	if err != nil {
		h.serverError(w, "delete invoice", err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("billing: invoice %s: %w", id, shared.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetInvoice(r.Context(), id); err != nil {
		h.respond(w, "list invoice payments", err)
		return
	}
	payments, err := h.service.ListPaymentsByInvoice(r.Context(), id)
	if err != nil {
		h.serverError(w, "list invoice payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if !req.ModePaiement.Valid() {
		fields["mode_paiement"] = "oneof"
	}
	if !req.Montant.IsPositive() {
		fields["montant"] = "gt"
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, "invalid payment", fields)
		return
	}
	p, err := h.service.AddPaymentWithin(r.Context(), PaymentInput{
		FactureID:    req.FactureID,
		Montant:      req.Montant,
		ModePaiement: req.ModePaiement,
		Reference:    req.Reference,
		Notes:        req.Notes,
	})
	var balanceErr *BalanceError
	if errors.As(err, &balanceErr) {
		httpx.ValidationProblem(w, "amount exceeds remaining balance "+shared.FormatMoney(balanceErr.Remaining), map[string]string{"montant": "lte"})
		return
	}
	if err != nil {
		h.respond(w, "create payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.service.DeletePayment(r.Context(), id)
	if err != nil {
		h.serverError(w, "delete payment", err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("billing: payment %s: %w", id, shared.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	doc, err := export.CSV(export.DatedFilename("csv", h.now(), "factures"), func(out io.Writer) error {
		return h.service.ExportCSV(r.Context(), out)
	})
	if err != nil {
		h.serverError(w, "export invoices", err)
		return
	}
	if err := export.Write(w, doc); err != nil {
		h.logger.Warn("write invoices export", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.ValidationProblem(w, "invalid request", httpx.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
		httpx.RespondError(w, err)
		return
	}
	h.serverError(w, op, err)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toActes(in []acteRequest) []Acte {
	if len(in) == 0 {
		return nil
	}
	out := make([]Acte, len(in))
	for i, a := range in {
		out[i] = Acte{Nom: a.Nom, Quantite: a.Quantite, PrixUnitaire: a.PrixUnitaire}
	}
	return out
}

// checkAmounts requires a positive total and non-negative unit prices.
func checkAmounts(actes []Acte, total *decimal.Decimal) map[string]string {
	fields := map[string]string{}
	for i, a := range actes {
		if a.PrixUnitaire.IsNegative() {
			fields[fmt.Sprintf("actes[%d].prix_unitaire", i)] = "gte"
		}
	}
	if total != nil && !total.IsPositive() {
		fields["montant_total"] = "gt"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
