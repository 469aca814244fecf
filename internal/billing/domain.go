package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is derived from the payments recorded against an invoice.
type InvoiceStatus string

const (
	StatusUnpaid  InvoiceStatus = "Impayée"
	StatusPartial InvoiceStatus = "Partiellement payée"
	StatusPaid    InvoiceStatus = "Payée"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid:
		return true
	default:
		return false
	}
}

// PaymentMode enumerates accepted settlement channels.
type PaymentMode string

const (
	ModeCash        PaymentMode = "Espèces"
	ModeMobileMoney PaymentMode = "Mobile Money"
	ModeCheque      PaymentMode = "Chèque"
	ModeTransfer    PaymentMode = "Virement"
)

// PaymentModes lists the modes in display order.
var PaymentModes = []PaymentMode{ModeCash, ModeMobileMoney, ModeCheque, ModeTransfer}

// Valid reports whether m is a known mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeMobileMoney, ModeCheque, ModeTransfer:
		return true
	default:
		return false
	}
}

// Acte is a billable medical line item.
type Acte struct {
	Nom          string          `json:"nom"`
	Quantite     int             `json:"quantite"`
	PrixUnitaire decimal.Decimal `json:"prix_unitaire"`
}

// Total returns quantity x unit price.
func (a Acte) Total() decimal.Decimal {
	return a.PrixUnitaire.Mul(decimal.NewFromInt(int64(a.Quantite)))
}

// SumActes totals line items in order.
func SumActes(actes []Acte) decimal.Decimal {
	total := decimal.Zero
	for _, a := range actes {
		total = total.Add(a.Total())
	}
	return total
}

// Invoice is a billable record for a patient. MontantPaye, SoldeRestant and
// Statut are derived and only ever written by the ledger.
type Invoice struct {
	ID             string          `json:"id"`
	PatientID      string          `json:"patient_id"`
	ConsultationID string          `json:"consultation_id,omitempty"`
	DateFacture    time.Time       `json:"date_facture"`
	Actes          []Acte          `json:"actes,omitempty"`
	MontantTotal   decimal.Decimal `json:"montant_total"`
	MontantPaye    decimal.Decimal `json:"montant_paye"`
	SoldeRestant   decimal.Decimal `json:"solde_restant"`
	Statut         InvoiceStatus   `json:"statut"`
	Description    string          `json:"description,omitempty"`
}

func (inv Invoice) clone() Invoice {
	if inv.Actes != nil {
		inv.Actes = append([]Acte(nil), inv.Actes...)
	}
	return inv
}

// Payment is a single settlement against an invoice. Payments are never
// updated in place.
type Payment struct {
	ID           string          `json:"id"`
	FactureID    string          `json:"facture_id"`
	DatePaiement time.Time       `json:"date_paiement"`
	Montant      decimal.Decimal `json:"montant"`
	ModePaiement PaymentMode     `json:"mode_paiement"`
	Reference    string          `json:"reference,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// InvoiceInput carries caller supplied fields for a new invoice.
type InvoiceInput struct {
	PatientID      string
	ConsultationID string
	Actes          []Acte
	MontantTotal   decimal.Decimal
	Description    string
}

// InvoiceUpdate lists the fields to replace; nil leaves a field unchanged.
type InvoiceUpdate struct {
	PatientID      *string
	ConsultationID *string
	Actes          *[]Acte
	MontantTotal   *decimal.Decimal
	Description    *string
}

// PaymentInput carries caller supplied fields for a new payment.
type PaymentInput struct {
	FactureID    string
	Montant      decimal.Decimal
	ModePaiement PaymentMode
	Reference    string
	Notes        string
}

// UnknownPatient replaces the patient name when the id does not resolve.
const UnknownPatient = "Patient inconnu"

// InvoiceWithDetails joins an invoice with display fields and its payments.
type InvoiceWithDetails struct {
	Invoice
	PatientNom             string     `json:"patient_nom"`
	PatientPrenom          string     `json:"patient_prenom"`
	ConsultationDiagnostic string     `json:"consultation_diagnostic,omitempty"`
	ConsultationDate       *time.Time `json:"consultation_date,omitempty"`
	Paiements              []Payment  `json:"paiements"`
}

// PatientName returns "Prenom Nom" or the unknown placeholder.
func (d InvoiceWithDetails) PatientName() string {
	return strings.TrimSpace(d.PatientPrenom + " " + d.PatientNom)
}

// DeriveStatus applies the status rule: nothing paid is Impayée, paid at
// least the total is Payée, anything in between is Partiellement payée.
func DeriveStatus(total, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.IsZero():
		return StatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Balance returns total - paid floored at zero.
func Balance(total, paid decimal.Decimal) decimal.Decimal {
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
