package directory

import "context"

// Lookups by id return shared.ErrNotFound when the id does not resolve.

// PatientDirectory resolves patients.
type PatientDirectory interface {
	PatientByID(ctx context.Context, id string) (Patient, error)
	Patients(ctx context.Context) ([]Patient, error)
}

// UserDirectory resolves staff members.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (User, error)
	Users(ctx context.Context) ([]User, error)
}

// ConsultationDirectory resolves consultations.
type ConsultationDirectory interface {
	ConsultationByID(ctx context.Context, id string) (Consultation, error)
	Consultations(ctx context.Context) ([]Consultation, error)
	ConsultationsWithDetails(ctx context.Context) ([]ConsultationWithDetails, error)
}

// AppointmentDirectory lists appointments.
type AppointmentDirectory interface {
	AppointmentsWithDetails(ctx context.Context) ([]AppointmentWithDetails, error)
}

// CertificateDirectory lists certificates.
type CertificateDirectory interface {
	CertificatesWithDetails(ctx context.Context) ([]CertificateWithDetails, error)
}

// ClinicProfile exposes the static clinic identity.
type ClinicProfile interface {
	Clinic() Clinic
}

// StaticClinic is a ClinicProfile backed by a fixed value.
type StaticClinic Clinic

// Clinic implements ClinicProfile.
func (s StaticClinic) Clinic() Clinic {
	return Clinic(s)
}
