package directory

import "time"

// Seed ids shared with the billing and analysis example records.
const (
	SeedPatientAminata   = "pat-001"
	SeedPatientKoffi     = "pat-002"
	SeedPatientMariam    = "pat-003"
	SeedDoctorTraore     = "usr-001"
	SeedDoctorDiallo     = "usr-002"
	SeedSecretary        = "usr-003"
	SeedConsultationOne  = "cons-001"
	SeedConsultationTwo  = "cons-002"
	SeedConsultationLast = "cons-003"
)

// SeedMemory builds a directory populated with example records dated
// relative to now.
func SeedMemory(now time.Time) *Memory {
	day := func(offset int) time.Time {
		y, m, d := now.AddDate(0, 0, offset).Date()
		return time.Date(y, m, d, 9, 30, 0, 0, now.Location())
	}
	m := NewMemory()
	m.AddPatient(Patient{ID: SeedPatientAminata, Nom: "Dupont", Prenom: "Aminata", Sexe: "F", Telephone: "+225 07 00 00 01", DateNaissance: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)})
	m.AddPatient(Patient{ID: SeedPatientKoffi, Nom: "Kouassi", Prenom: "Koffi", Sexe: "M", Telephone: "+225 07 00 00 02", DateNaissance: time.Date(1972, 11, 4, 0, 0, 0, 0, time.UTC)})
	m.AddPatient(Patient{ID: SeedPatientMariam, Nom: "Bamba", Prenom: "Mariam", Sexe: "F", Telephone: "+225 07 00 00 03", DateNaissance: time.Date(1999, 6, 21, 0, 0, 0, 0, time.UTC)})

	m.AddUser(User{ID: SeedDoctorTraore, Nom: "Traoré", Prenom: "Ibrahim", Role: "medecin", Specialite: "Médecine générale"})
	m.AddUser(User{ID: SeedDoctorDiallo, Nom: "Diallo", Prenom: "Fatou", Role: "medecin", Specialite: "Pédiatrie"})
	m.AddUser(User{ID: SeedSecretary, Nom: "Konan", Prenom: "Awa", Role: "secretaire"})

	m.AddConsultation(Consultation{ID: SeedConsultationOne, PatientID: SeedPatientAminata, ProfessionnelID: SeedDoctorTraore, DateConsultation: day(-2), Motif: "Fièvre", Diagnostic: "Paludisme simple"})
	m.AddConsultation(Consultation{ID: SeedConsultationTwo, PatientID: SeedPatientKoffi, ProfessionnelID: SeedDoctorTraore, DateConsultation: day(-1), Motif: "Contrôle tension", Diagnostic: "Hypertension artérielle"})
	m.AddConsultation(Consultation{ID: SeedConsultationLast, PatientID: SeedPatientMariam, ProfessionnelID: SeedDoctorDiallo, DateConsultation: day(0), Motif: "Toux", Diagnostic: "Bronchite aiguë"})

	m.AddAppointment(Appointment{ID: "rdv-001", PatientID: SeedPatientAminata, ProfessionnelID: SeedDoctorTraore, DateRendezVous: day(-2), Statut: AppointmentCompleted})
	m.AddAppointment(Appointment{ID: "rdv-002", PatientID: SeedPatientKoffi, ProfessionnelID: SeedDoctorTraore, DateRendezVous: day(-1), Statut: AppointmentCompleted})
	m.AddAppointment(Appointment{ID: "rdv-003", PatientID: SeedPatientMariam, ProfessionnelID: SeedDoctorDiallo, DateRendezVous: day(0), Statut: AppointmentCancelled})
	m.AddAppointment(Appointment{ID: "rdv-004", PatientID: SeedPatientMariam, ProfessionnelID: SeedDoctorDiallo, DateRendezVous: day(3), Statut: AppointmentPlanned})

	m.AddCertificate(Certificate{ID: "cert-001", PatientID: SeedPatientAminata, ProfessionnelID: SeedDoctorTraore, DateEmission: day(-2), Type: "Arrêt de travail"})
	return m
}
