// Package analysis stores lab bulletins and renders them for printing.
package analysis

import (
	"strings"
	"time"
)

// ResultStatus qualifies a measured value against its reference range.
type ResultStatus string

const (
	ResultNormal   ResultStatus = "normal"
	ResultAbnormal ResultStatus = "anormal"
	ResultCritical ResultStatus = "critique"
)

// Valid reports whether s is a known status.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultNormal, ResultAbnormal, ResultCritical:
		return true
	default:
		return false
	}
}

// AnalysisResult is one measured parameter. Valeur is text so qualitative
// results such as "Négatif" fit.
type AnalysisResult struct {
	ID            string       `json:"id"`
	Parametre     string       `json:"parametre"`
	Valeur        string       `json:"valeur"`
	Unite         string       `json:"unite,omitempty"`
	ValeurNormale string       `json:"valeur_normale,omitempty"`
	Statut        ResultStatus `json:"statut"`
}

// Analysis is a lab bulletin. DateAnalyse is set once at creation.
type Analysis struct {
	ID              string           `json:"id"`
	PatientID       string           `json:"patient_id"`
	ConsultationID  string           `json:"consultation_id,omitempty"`
	ProfessionnelID string           `json:"professionnel_id"`
	DateAnalyse     time.Time        `json:"date_analyse"`
	TypeAnalyse     string           `json:"type_analyse"`
	Conclusion      string           `json:"conclusion,omitempty"`
	Resultats       []AnalysisResult `json:"resultats"`
}

func (a Analysis) clone() Analysis {
	a.Resultats = append([]AnalysisResult{}, a.Resultats...)
	return a
}

// AnalysisInput carries caller supplied fields for a new bulletin.
type AnalysisInput struct {
	PatientID       string
	ConsultationID  string
	ProfessionnelID string
	TypeAnalyse     string
	Conclusion      string
	Resultats       []AnalysisResult
}

// AnalysisUpdate lists the fields to replace; nil leaves a field unchanged.
type AnalysisUpdate struct {
	PatientID       *string
	ConsultationID  *string
	ProfessionnelID *string
	TypeAnalyse     *string
	Conclusion      *string
	Resultats       *[]AnalysisResult
}

// UnknownPatient replaces the patient name when the id does not resolve.
const UnknownPatient = "Patient inconnu"

// AnalysisWithDetails joins a bulletin with patient, professional and
// consultation display fields.
type AnalysisWithDetails struct {
	Analysis
	PatientNom             string `json:"patient_nom"`
	PatientPrenom          string `json:"patient_prenom"`
	ProfessionnelNom       string `json:"professionnel_nom"`
	ProfessionnelPrenom    string `json:"professionnel_prenom"`
	ProfessionnelRole      string `json:"professionnel_role"`
	ConsultationDiagnostic string `json:"consultation_diagnostic,omitempty"`
}

// PatientName returns "Prenom Nom" or the unknown placeholder.
func (d AnalysisWithDetails) PatientName() string {
	return strings.TrimSpace(d.PatientPrenom + " " + d.PatientNom)
}

// ProfessionalName returns "Prenom Nom"; empty when unresolved.
func (d AnalysisWithDetails) ProfessionalName() string {
	return strings.TrimSpace(d.ProfessionnelPrenom + " " + d.ProfessionnelNom)
}
