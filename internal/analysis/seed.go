package analysis

import (
	"time"

	"github.com/medcabinet/cabinet/internal/directory"
)

// Seed produces the example bulletins stored on first run.
type Seed func(now time.Time) []Analysis

// ExampleSeed records the lab work of the directory example consultations.
func ExampleSeed(now time.Time) []Analysis {
	return []Analysis{
		{
			ID:              "ana-001",
			PatientID:       directory.SeedPatientAminata,
			ConsultationID:  directory.SeedConsultationOne,
			ProfessionnelID: directory.SeedDoctorTraore,
			DateAnalyse:     now.AddDate(0, 0, -2),
			TypeAnalyse:     "Hématologie",
			Conclusion:      "Paludisme confirmé, anémie légère.",
			Resultats: []AnalysisResult{
				{ID: "res-001", Parametre: "Goutte épaisse", Valeur: "Positif", Statut: ResultAbnormal},
				{ID: "res-002", Parametre: "Hémoglobine", Valeur: "10.8", Unite: "g/dL", ValeurNormale: "12 - 16", Statut: ResultAbnormal},
				{ID: "res-003", Parametre: "Globules blancs", Valeur: "7200", Unite: "/mm3", ValeurNormale: "4000 - 10000", Statut: ResultNormal},
			},
		},
		{
			ID:              "ana-002",
			PatientID:       directory.SeedPatientKoffi,
			ConsultationID:  directory.SeedConsultationTwo,
			ProfessionnelID: directory.SeedDoctorTraore,
			DateAnalyse:     now.AddDate(0, 0, -1),
			TypeAnalyse:     "Biochimie",
			Conclusion:      "Glycémie très élevée, contrôle urgent.",
			Resultats: []AnalysisResult{
				{ID: "res-004", Parametre: "Glycémie à jeun", Valeur: "2.9", Unite: "g/L", ValeurNormale: "0.7 - 1.1", Statut: ResultCritical},
				{ID: "res-005", Parametre: "Créatinine", Valeur: "9", Unite: "mg/L", ValeurNormale: "6 - 12", Statut: ResultNormal},
			},
		},
	}
}
