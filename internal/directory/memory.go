package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/medcabinet/cabinet/internal/shared"
)

// Memory is an in-process directory implementing every collaborator port.
type Memory struct {
	mu            sync.RWMutex
	patients      []Patient
	users         []User
	consultations []Consultation
	appointments  []Appointment
	certificates  []Certificate
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{}
}

// AddPatient appends a patient.
func (m *Memory) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients = append(m.patients, p)
}

// AddUser appends a staff member.
func (m *Memory) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

// AddConsultation appends a consultation.
func (m *Memory) AddConsultation(c Consultation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultations = append(m.consultations, c)
}

// AddAppointment appends an appointment.
func (m *Memory) AddAppointment(a Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments = append(m.appointments, a)
}

// AddCertificate appends a certificate.
func (m *Memory) AddCertificate(c Certificate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certificates = append(m.certificates, c)
}

// PatientByID implements PatientDirectory.
func (m *Memory) PatientByID(ctx context.Context, id string) (Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.patient(id); ok {
		return p, nil
	}
	return Patient{}, fmt.Errorf("directory: patient %s: %w", id, shared.ErrNotFound)
}

// Patients implements PatientDirectory.
func (m *Memory) Patients(ctx context.Context) ([]Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Patient(nil), m.patients...), nil
}

// UserByID implements UserDirectory.
func (m *Memory) UserByID(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.user(id); ok {
		return u, nil
	}
	return User{}, fmt.Errorf("directory: user %s: %w", id, shared.ErrNotFound)
}

// Users implements UserDirectory.
func (m *Memory) Users(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]User(nil), m.users...), nil
}

// ConsultationByID implements ConsultationDirectory.
func (m *Memory) ConsultationByID(ctx context.Context, id string) (Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.consultations {
		if c.ID == id {
			return c, nil
		}
	}
	return Consultation{}, fmt.Errorf("directory: consultation %s: %w", id, shared.ErrNotFound)
}

// Consultations implements ConsultationDirectory.
func (m *Memory) Consultations(ctx context.Context) ([]Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Consultation(nil), m.consultations...), nil
}

// ConsultationsWithDetails implements ConsultationDirectory.
func (m *Memory) ConsultationsWithDetails(ctx context.Context) ([]ConsultationWithDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ConsultationWithDetails, 0, len(m.consultations))
	for _, c := range m.consultations {
		row := ConsultationWithDetails{Consultation: c}
		if p, ok := m.patient(c.PatientID); ok {
			row.PatientNom, row.PatientPrenom = p.Nom, p.Prenom
		}
		if u, ok := m.user(c.ProfessionnelID); ok {
			row.ProfessionnelNom, row.ProfessionnelPrenom = u.Nom, u.Prenom
		}
		out = append(out, row)
	}
	return out, nil
}

// AppointmentsWithDetails implements AppointmentDirectory.
func (m *Memory) AppointmentsWithDetails(ctx context.Context) ([]AppointmentWithDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AppointmentWithDetails, 0, len(m.appointments))
	for _, a := range m.appointments {
		row := AppointmentWithDetails{Appointment: a}
		if p, ok := m.patient(a.PatientID); ok {
			row.PatientNom, row.PatientPrenom = p.Nom, p.Prenom
		}
		out = append(out, row)
	}
	return out, nil
}

// CertificatesWithDetails implements CertificateDirectory.
func (m *Memory) CertificatesWithDetails(ctx context.Context) ([]CertificateWithDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CertificateWithDetails, 0, len(m.certificates))
	for _, c := range m.certificates {
		row := CertificateWithDetails{Certificate: c}
		if p, ok := m.patient(c.PatientID); ok {
			row.PatientNom, row.PatientPrenom = p.Nom, p.Prenom
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *Memory) patient(id string) (Patient, bool) {
	for _, p := range m.patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}

func (m *Memory) user(id string) (User, bool) {
	for _, u := range m.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
