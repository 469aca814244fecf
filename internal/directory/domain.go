// Package directory describes the collaborators the cabinet core reads from:
// patients, staff, consultations, appointments, certificates and the clinic
// profile. The core never owns these records; it resolves them by id.
package directory

import (
	"strings"
	"time"
)

// Patient is a person followed by the cabinet.
type Patient struct {
	ID            string    `json:"id"`
	Nom           string    `json:"nom"`
	Prenom        string    `json:"prenom"`
	DateNaissance time.Time `json:"date_naissance"`
	Sexe          string    `json:"sexe,omitempty"`
	Telephone     string    `json:"telephone,omitempty"`
	Adresse       string    `json:"adresse,omitempty"`
}

// FullName returns "Prenom Nom".
func (p Patient) FullName() string {
	return joinName(p.Prenom, p.Nom)
}

// User is a staff member; professionals issue consultations and analyses.
type User struct {
	ID         string `json:"id"`
	Nom        string `json:"nom"`
	Prenom     string `json:"prenom"`
	Role       string `json:"role"`
	Specialite string `json:"specialite,omitempty"`
}

// FullName returns "Prenom Nom".
func (u User) FullName() string {
	return joinName(u.Prenom, u.Nom)
}

// Consultation is a visit of a patient to a professional.
type Consultation struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	ProfessionnelID  string    `json:"professionnel_id"`
	DateConsultation time.Time `json:"date_consultation"`
	Motif            string    `json:"motif,omitempty"`
	Diagnostic       string    `json:"diagnostic,omitempty"`
	Traitement       string    `json:"traitement,omitempty"`
}

// ConsultationWithDetails joins display fields resolved at read time.
type ConsultationWithDetails struct {
	Consultation
	PatientNom          string `json:"patient_nom"`
	PatientPrenom       string `json:"patient_prenom"`
	ProfessionnelNom    string `json:"professionnel_nom"`
	ProfessionnelPrenom string `json:"professionnel_prenom"`
}

// ProfessionalName returns the issuing professional full name.
func (c ConsultationWithDetails) ProfessionalName() string {
	return joinName(c.ProfessionnelPrenom, c.ProfessionnelNom)
}

// AppointmentStatus is the outcome of an appointment.
type AppointmentStatus string

const (
	AppointmentPlanned   AppointmentStatus = "Planifié"
	AppointmentConfirmed AppointmentStatus = "Confirmé"
	AppointmentCompleted AppointmentStatus = "Terminé"
	AppointmentCancelled AppointmentStatus = "Annulé"
)

// Appointment is a booked slot.
type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patient_id"`
	ProfessionnelID string            `json:"professionnel_id"`
	DateRendezVous  time.Time         `json:"date_rendez_vous"`
	Motif           string            `json:"motif,omitempty"`
	Statut          AppointmentStatus `json:"statut"`
}

// AppointmentWithDetails joins the patient name.
type AppointmentWithDetails struct {
	Appointment
	PatientNom    string `json:"patient_nom"`
	PatientPrenom string `json:"patient_prenom"`
}

// Certificate is a medical certificate issued to a patient.
type Certificate struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	ProfessionnelID string    `json:"professionnel_id"`
	DateEmission    time.Time `json:"date_emission"`
	Type            string    `json:"type"`
}

// CertificateWithDetails joins the patient name.
type CertificateWithDetails struct {
	Certificate
	PatientNom    string `json:"patient_nom"`
	PatientPrenom string `json:"patient_prenom"`
}

// Clinic holds the display information printed on documents.
type Clinic struct {
	Nom       string `json:"nom"`
	Adresse   string `json:"adresse"`
	Telephone string `json:"telephone"`
	Email     string `json:"email"`
	LogoURL   string `json:"logo_url,omitempty"`
	LegalIDs  string `json:"legal_ids,omitempty"`
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
