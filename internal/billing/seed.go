package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medcabinet/cabinet/internal/directory"
)

// Seed produces the example records stored on first run.
type Seed func(now time.Time) ([]Invoice, []Payment)

// ExampleSeed bills the directory example consultations: one invoice paid in
// full, one partially paid and one still unpaid.
func ExampleSeed(now time.Time) ([]Invoice, []Payment) {
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }
	invoices := []Invoice{
		{
			ID:             "fac-001",
			PatientID:      directory.SeedPatientAminata,
			ConsultationID: directory.SeedConsultationOne,
			DateFacture:    day(-2),
			Actes: []Acte{
				{Nom: "Consultation générale", Quantite: 1, PrixUnitaire: decimal.NewFromInt(15000)},
				{Nom: "Goutte épaisse", Quantite: 1, PrixUnitaire: decimal.NewFromInt(5000)},
			},
			MontantTotal: decimal.NewFromInt(20000),
			Description:  "Consultation et test paludisme",
		},
		{
			ID:             "fac-002",
			PatientID:      directory.SeedPatientKoffi,
			ConsultationID: directory.SeedConsultationTwo,
			DateFacture:    day(-1),
			MontantTotal:   decimal.NewFromInt(25000),
			Description:    "Consultation de suivi tension artérielle",
		},
		{
			ID:           "fac-003",
			PatientID:    directory.SeedPatientMariam,
			DateFacture:  day(0),
			MontantTotal: decimal.NewFromInt(10000),
			Description:  "Radiographie thoracique",
		},
	}
	payments := []Payment{
		{ID: "pay-001", FactureID: "fac-001", DatePaiement: day(-2), Montant: decimal.NewFromInt(20000), ModePaiement: ModeCash},
		{ID: "pay-002", FactureID: "fac-002", DatePaiement: day(-1), Montant: decimal.NewFromInt(10000), ModePaiement: ModeMobileMoney, Reference: "MM-784512"},
	}
	return invoices, payments
}
