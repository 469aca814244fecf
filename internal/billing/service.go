// Package billing is the cabinet ledger: invoices, payments and the rules
// keeping an invoice's paid amount, balance and status consistent with its
// payment history.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/shared"
)

// Observer is notified of ledger mutations.
type Observer interface {
	InvoiceCreated()
	InvoiceDeleted()
	PaymentRecorded(mode string, amount float64)
	PaymentDeleted()
}

// Dependencies lists the collaborators the ledger resolves display fields from.
type Dependencies struct {
	Patients      directory.PatientDirectory
	Consultations directory.ConsultationDirectory
}

// Option customises a Service.
type Option func(*Service)

// WithNow overrides the service clock.
func WithNow(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithSeed stores example records when the backend holds no invoices yet.
func WithSeed(seed Seed) Option {
	return func(s *Service) { s.seed = seed }
}

// WithObserver registers a mutation observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service owns the invoice and payment collections. Every mutation is
// persisted before it becomes visible; reads return copies.
type Service struct {
	mu       sync.Mutex
	repo     *Repository
	deps     Dependencies
	invoices []Invoice
	payments []Payment

	now      func() time.Time
	newID    func() string
	seed     Seed
	observer Observer
	logger   *slog.Logger
}

// NewService loads the ledger from repo, seeding it on first run when a seed
// is configured.
func NewService(ctx context.Context, repo *Repository, deps Dependencies, opts ...Option) (*Service, error) {
	s := &Service{
		repo:   repo,
		deps:   deps,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	invoices, payments, found, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing: load ledger: %w", err)
	}
	if !found && s.seed != nil {
		invoices, payments = s.seed(s.now())
		for i := range invoices {
			recompute(&invoices[i], payments)
		}
		if err := s.save(ctx, invoices, payments); err != nil {
			return nil, fmt.Errorf("billing: seed ledger: %w", err)
		}
		s.logger.Info("billing ledger seeded", slog.Int("invoices", len(invoices)), slog.Int("payments", len(payments)))
	}
	for i := range invoices {
		recompute(&invoices[i], payments)
	}
	s.invoices, s.payments = invoices, payments
	return s, nil
}

// ListInvoices returns every invoice in insertion order.
func (s *Service) ListInvoices(ctx context.Context) ([]Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneInvoices(s.invoices), nil
}

// ListPayments returns every payment in creation order.
func (s *Service) ListPayments(ctx context.Context) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments...), nil
}

// ListPaymentsByInvoice returns the payments referencing invoiceID in creation order.
func (s *Service) ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return paymentsFor(s.payments, invoiceID), nil
}

// GetInvoice returns one invoice or shared.ErrNotFound.
func (s *Service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexInvoice(s.invoices, id)
	if idx < 0 {
		return Invoice{}, fmt.Errorf("billing: invoice %s: %w", id, shared.ErrNotFound)
	}
	return s.invoices[idx].clone(), nil
}

// AddInvoice stores a new unpaid invoice dated now. Amounts are not
// validated here.
func (s *Service) AddInvoice(ctx context.Context, in InvoiceInput) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := Invoice{
		ID:             s.newID(),
		PatientID:      in.PatientID,
		ConsultationID: in.ConsultationID,
		DateFacture:    s.now(),
		MontantTotal:   in.MontantTotal,
		MontantPaye:    decimal.Zero,
		SoldeRestant:   Balance(in.MontantTotal, decimal.Zero),
		Statut:         StatusUnpaid,
		Description:    in.Description,
	}
	if len(in.Actes) > 0 {
		inv.Actes = append([]Acte(nil), in.Actes...)
	}
	next := append(cloneInvoices(s.invoices), inv)
	if err := s.repo.SaveInvoices(ctx, next); err != nil {
		return Invoice{}, fmt.Errorf("billing: save invoices: %w", err)
	}
	s.invoices = next
	if s.observer != nil {
		s.observer.InvoiceCreated()
	}
	return inv.clone(), nil
}

// CreateInvoiceFromConsultation bills a consultation. It returns
// shared.ErrNotFound when the consultation does not resolve. An empty
// description is synthesised from the consultation date and diagnostic.
func (s *Service) CreateInvoiceFromConsultation(ctx context.Context, consultationID string, total decimal.Decimal, description string) (Invoice, error) {
	if s.deps.Consultations == nil {
		return Invoice{}, fmt.Errorf("billing: consultation %s: %w", consultationID, shared.ErrNotFound)
	}
	c, err := s.deps.Consultations.ConsultationByID(ctx, consultationID)
	if err != nil {
		return Invoice{}, err
	}
	if strings.TrimSpace(description) == "" {
		description = ConsultationDescription(c)
	}
	return s.AddInvoice(ctx, InvoiceInput{
		PatientID:      c.PatientID,
		ConsultationID: c.ID,
		MontantTotal:   total,
		Description:    description,
	})
}

// ConsultationDescription is the default label of an invoice billed from a consultation.
func ConsultationDescription(c directory.Consultation) string {
	desc := "Consultation du " + c.DateConsultation.Format("02/01/2006")
	if d := strings.TrimSpace(c.Diagnostic); d != "" {
		desc += " - " + d
	}
	return desc
}

// UpdateInvoice merges the set fields of upd. A new total recomputes the
// balance and status against the current paid amount; the paid amount
// itself only follows payments.
func (s *Service) UpdateInvoice(ctx context.Context, id string, upd InvoiceUpdate) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexInvoice(s.invoices, id)
	if idx < 0 {
		return Invoice{}, fmt.Errorf("billing: invoice %s: %w", id, shared.ErrNotFound)
	}
	next := cloneInvoices(s.invoices)
	inv := &next[idx]
	if upd.PatientID != nil {
		inv.PatientID = *upd.PatientID
	}
	if upd.ConsultationID != nil {
		inv.ConsultationID = *upd.ConsultationID
	}
	if upd.Actes != nil {
		inv.Actes = append([]Acte(nil), (*upd.Actes)...)
	}
	if upd.Description != nil {
		inv.Description = *upd.Description
	}
	if upd.MontantTotal != nil {
		inv.MontantTotal = *upd.MontantTotal
		inv.SoldeRestant = Balance(inv.MontantTotal, inv.MontantPaye)
		inv.Statut = DeriveStatus(inv.MontantTotal, inv.MontantPaye)
	}
	if err := s.repo.SaveInvoices(ctx, next); err != nil {
		return Invoice{}, fmt.Errorf("billing: save invoices: %w", err)
	}
	s.invoices = next
	return inv.clone(), nil
}

// DeleteInvoice removes an invoice and every payment referencing it. It
// reports false when the invoice does not exist.
func (s *Service) DeleteInvoice(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexInvoice(s.invoices, id)
	if idx < 0 {
		return false, nil
	}
	invoices := make([]Invoice, 0, len(s.invoices)-1)
	invoices = append(invoices, s.invoices[:idx]...)
	invoices = append(invoices, s.invoices[idx+1:]...)
	payments := make([]Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if p.FactureID != id {
			payments = append(payments, p)
		}
	}
	if err := s.save(ctx, invoices, payments); err != nil {
		return false, err
	}
	s.invoices, s.payments = invoices, payments
	if s.observer != nil {
		s.observer.InvoiceDeleted()
	}
	return true, nil
}

// BalanceError reports a payment above the remaining balance of its invoice.
type BalanceError struct {
	Remaining decimal.Decimal
}

func (e *BalanceError) Error() string {
	return "billing: amount exceeds remaining balance " + shared.FormatMoney(e.Remaining)
}

func (e *BalanceError) Unwrap() error { return shared.ErrValidation }

// AddPayment records a payment dated now and recomputes its invoice. A
// payment naming an unknown invoice is stored as is; the recompute is then
// a no-op.
func (s *Service) AddPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPayment(ctx, in)
}

// AddPaymentWithin records a payment only when its invoice exists and the
// amount does not exceed the remaining balance. The check and the write
// happen under the same lock. It returns shared.ErrNotFound for an unknown
// invoice and a *BalanceError for an excessive amount.
func (s *Service) AddPaymentWithin(ctx context.Context, in PaymentInput) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexInvoice(s.invoices, in.FactureID)
	if idx < 0 {
		return Payment{}, fmt.Errorf("billing: invoice %s: %w", in.FactureID, shared.ErrNotFound)
	}
	if remaining := s.invoices[idx].SoldeRestant; in.Montant.GreaterThan(remaining) {
		return Payment{}, &BalanceError{Remaining: remaining}
	}
	return s.addPayment(ctx, in)
}

func (s *Service) addPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	p := Payment{
		ID:           s.newID(),
		FactureID:    in.FactureID,
		DatePaiement: s.now(),
		Montant:      in.Montant,
		ModePaiement: in.ModePaiement,
		Reference:    in.Reference,
		Notes:        in.Notes,
	}
	payments := append(append([]Payment(nil), s.payments...), p)
	invoices := cloneInvoices(s.invoices)
	if idx := indexInvoice(invoices, p.FactureID); idx >= 0 {
		recompute(&invoices[idx], payments)
	} else {
		s.logger.Warn("payment recorded for unknown invoice", slog.String("facture_id", p.FactureID), slog.String("payment_id", p.ID))
	}
	if err := s.save(ctx, invoices, payments); err != nil {
		return Payment{}, err
	}
	s.invoices, s.payments = invoices, payments
	if s.observer != nil {
		s.observer.PaymentRecorded(string(p.ModePaiement), p.Montant.InexactFloat64())
	}
	return p, nil
}

// DeletePayment removes a payment and recomputes its former invoice. It
// reports false when the payment does not exist.
func (s *Service) DeletePayment(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := -1
	for i, p := range s.payments {
		if p.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false, nil
	}
	owner := s.payments[pos].FactureID
	payments := make([]Payment, 0, len(s.payments)-1)
	payments = append(payments, s.payments[:pos]...)
	payments = append(payments, s.payments[pos+1:]...)
	invoices := cloneInvoices(s.invoices)
	if idx := indexInvoice(invoices, owner); idx >= 0 {
		recompute(&invoices[idx], payments)
	}
	if err := s.save(ctx, invoices, payments); err != nil {
		return false, err
	}
	s.invoices, s.payments = invoices, payments
	if s.observer != nil {
		s.observer.PaymentDeleted()
	}
	return true, nil
}

// ListInvoicesWithDetails joins every invoice with patient, consultation and
// payment details.
func (s *Service) ListInvoicesWithDetails(ctx context.Context) ([]InvoiceWithDetails, error) {
	s.mu.Lock()
	invoices := cloneInvoices(s.invoices)
	payments := append([]Payment(nil), s.payments...)
	s.mu.Unlock()

	out := make([]InvoiceWithDetails, 0, len(invoices))
	for _, inv := range invoices {
		row, err := s.details(ctx, inv, payments)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// InvoiceWithDetails returns one joined invoice or shared.ErrNotFound.
func (s *Service) InvoiceWithDetails(ctx context.Context, id string) (InvoiceWithDetails, error) {
	s.mu.Lock()
	idx := indexInvoice(s.invoices, id)
	if idx < 0 {
		s.mu.Unlock()
		return InvoiceWithDetails{}, fmt.Errorf("billing: invoice %s: %w", id, shared.ErrNotFound)
	}
	inv := s.invoices[idx].clone()
	payments := paymentsFor(s.payments, id)
	s.mu.Unlock()
	return s.details(ctx, inv, payments)
}

// SearchInvoices matches query case-insensitively against patient names,
// description and consultation diagnostic. A blank query returns everything.
func (s *Service) SearchInvoices(ctx context.Context, query string) ([]InvoiceWithDetails, error) {
	rows, err := s.ListInvoicesWithDetails(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows, nil
	}
	out := make([]InvoiceWithDetails, 0, len(rows))
	for _, row := range rows {
		if matches(q, row.PatientPrenom, row.PatientNom, row.Description, row.ConsultationDiagnostic) {
			out = append(out, row)
		}
	}
	return out, nil
}

// FilterByStatus keeps invoices with the given status.
func (s *Service) FilterByStatus(ctx context.Context, status InvoiceStatus) ([]InvoiceWithDetails, error) {
	rows, err := s.ListInvoicesWithDetails(ctx)
	if err != nil {
		return nil, err
	}
	return KeepStatus(rows, status), nil
}

// KeepStatus returns the rows with the given status, preserving order.
func KeepStatus(rows []InvoiceWithDetails, status InvoiceStatus) []InvoiceWithDetails {
	out := make([]InvoiceWithDetails, 0, len(rows))
	for _, row := range rows {
		if row.Statut == status {
			out = append(out, row)
		}
	}
	return out
}

func (s *Service) details(ctx context.Context, inv Invoice, payments []Payment) (InvoiceWithDetails, error) {
	row := InvoiceWithDetails{Invoice: inv, PatientNom: UnknownPatient, Paiements: paymentsFor(payments, inv.ID)}
	if s.deps.Patients != nil {
		p, err := s.deps.Patients.PatientByID(ctx, inv.PatientID)
		switch {
		case err == nil:
			row.PatientNom, row.PatientPrenom = p.Nom, p.Prenom
		case !errors.Is(err, shared.ErrNotFound):
			return InvoiceWithDetails{}, err
		}
	}
	if inv.ConsultationID != "" && s.deps.Consultations != nil {
		c, err := s.deps.Consultations.ConsultationByID(ctx, inv.ConsultationID)
		switch {
		case err == nil:
			date := c.DateConsultation
			row.ConsultationDiagnostic = c.Diagnostic
			row.ConsultationDate = &date
		case !errors.Is(err, shared.ErrNotFound):
			return InvoiceWithDetails{}, err
		}
	}
	return row, nil
}

// save writes payments then invoices. When the invoice write fails the
// previous payments are written back; loading recomputes every invoice, so
// derived fields follow the stored payments either way.
func (s *Service) save(ctx context.Context, invoices []Invoice, payments []Payment) error {
	if err := s.repo.SavePayments(ctx, payments); err != nil {
		return fmt.Errorf("billing: save payments: %w", err)
	}
	if err := s.repo.SaveInvoices(ctx, invoices); err != nil {
		if rerr := s.repo.SavePayments(ctx, s.payments); rerr != nil {
			s.logger.Error("restore payments after failed invoice save", slog.Any("error", rerr))
		}
		return fmt.Errorf("billing: save invoices: %w", err)
	}
	return nil
}

// recompute derives the paid amount, balance and status of inv from payments.
func recompute(inv *Invoice, payments []Payment) {
	paid := decimal.Zero
	for _, p := range payments {
		if p.FactureID == inv.ID {
			paid = paid.Add(p.Montant)
		}
	}
	inv.MontantPaye = paid
	inv.SoldeRestant = Balance(inv.MontantTotal, paid)
	inv.Statut = DeriveStatus(inv.MontantTotal, paid)
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func indexInvoice(invoices []Invoice, id string) int {
	for i := range invoices {
		if invoices[i].ID == id {
			return i
		}
	}
	return -1
}

func paymentsFor(payments []Payment, invoiceID string) []Payment {
	out := []Payment{}
	for _, p := range payments {
		if p.FactureID == invoiceID {
			out = append(out, p)
		}
	}
	return out
}

func cloneInvoices(invoices []Invoice) []Invoice {
	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.clone()
	}
	return out
}
