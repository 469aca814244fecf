package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/shared"
)

// Observer is notified of bulletin mutations.
type Observer interface {
	AnalysisCreated()
	AnalysisDeleted()
}

// Dependencies lists the collaborators display fields are resolved from.
type Dependencies struct {
	Patients      directory.PatientDirectory
	Users         directory.UserDirectory
	Consultations directory.ConsultationDirectory
	Clinic        directory.ClinicProfile
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

// WithIDGenerator overrides id assignment for bulletins and result lines.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithSeed stores example bulletins when the backend holds none yet.
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

// Service owns the analysis collection.
type Service struct {
	mu       sync.Mutex
	repo     *Repository
	deps     Dependencies
	analyses []Analysis

	now      func() time.Time
	newID    func() string
	seed     Seed
	observer Observer
	logger   *slog.Logger
}

// NewService loads bulletins from repo, seeding on first run when configured.
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
	analyses, found, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis: load bulletins: %w", err)
	}
	if !found && s.seed != nil {
		analyses = s.seed(s.now())
		if err := repo.Save(ctx, analyses); err != nil {
			return nil, fmt.Errorf("analysis: seed bulletins: %w", err)
		}
		s.logger.Info("analysis bulletins seeded", slog.Int("analyses", len(analyses)))
	}
	s.analyses = analyses
	return s, nil
}

// List returns every bulletin in insertion order.
func (s *Service) List(ctx context.Context) ([]Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.analyses), nil
}

// Get returns one bulletin or shared.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.index(id)
	if idx < 0 {
		return Analysis{}, fmt.Errorf("analysis: %s: %w", id, shared.ErrNotFound)
	}
	return s.analyses[idx].clone(), nil
}

// Add stores a bulletin dated now. Result lines without id receive one.
func (s *Service) Add(ctx context.Context, in AnalysisInput) (Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := Analysis{
		ID:              s.newID(),
		PatientID:       in.PatientID,
		ConsultationID:  in.ConsultationID,
		ProfessionnelID: in.ProfessionnelID,
		DateAnalyse:     s.now(),
		TypeAnalyse:     in.TypeAnalyse,
		Conclusion:      in.Conclusion,
		Resultats:       s.withResultIDs(in.Resultats),
	}
	next := append(cloneAll(s.analyses), a)
	if err := s.repo.Save(ctx, next); err != nil {
		return Analysis{}, fmt.Errorf("analysis: save bulletins: %w", err)
	}
	s.analyses = next
	if s.observer != nil {
		s.observer.AnalysisCreated()
	}
	return a.clone(), nil
}

// CreateFromConsultation stores a bulletin for a consultation, copying its
// patient and professional. It returns shared.ErrNotFound when the
// consultation does not resolve.
func (s *Service) CreateFromConsultation(ctx context.Context, consultationID string, in AnalysisInput) (Analysis, error) {
	if s.deps.Consultations == nil {
		return Analysis{}, fmt.Errorf("analysis: consultation %s: %w", consultationID, shared.ErrNotFound)
	}
	c, err := s.deps.Consultations.ConsultationByID(ctx, consultationID)
	if err != nil {
		return Analysis{}, err
	}
	in.ConsultationID = c.ID
	in.PatientID = c.PatientID
	in.ProfessionnelID = c.ProfessionnelID
	return s.Add(ctx, in)
}

// Update merges the set fields of upd. DateAnalyse never changes.
func (s *Service) Update(ctx context.Context, id string, upd AnalysisUpdate) (Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.index(id)
	if idx < 0 {
		return Analysis{}, fmt.Errorf("analysis: %s: %w", id, shared.ErrNotFound)
	}
	next := cloneAll(s.analyses)
	a := &next[idx]
	if upd.PatientID != nil {
		a.PatientID = *upd.PatientID
	}
	if upd.ConsultationID != nil {
		a.ConsultationID = *upd.ConsultationID
	}
	if upd.ProfessionnelID != nil {
		a.ProfessionnelID = *upd.ProfessionnelID
	}
	if upd.TypeAnalyse != nil {
		a.TypeAnalyse = *upd.TypeAnalyse
	}
	if upd.Conclusion != nil {
		a.Conclusion = *upd.Conclusion
	}
	if upd.Resultats != nil {
		a.Resultats = s.withResultIDs(*upd.Resultats)
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return Analysis{}, fmt.Errorf("analysis: save bulletins: %w", err)
	}
	s.analyses = next
	return a.clone(), nil
}

// Delete removes a bulletin; false means it did not exist.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.index(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]Analysis, 0, len(s.analyses)-1)
	next = append(next, s.analyses[:idx]...)
	next = append(next, s.analyses[idx+1:]...)
	if err := s.repo.Save(ctx, next); err != nil {
		return false, fmt.Errorf("analysis: save bulletins: %w", err)
	}
	s.analyses = next
	if s.observer != nil {
		s.observer.AnalysisDeleted()
	}
	return true, nil
}

// ListWithDetails joins every bulletin with its display fields.
func (s *Service) ListWithDetails(ctx context.Context) ([]AnalysisWithDetails, error) {
	analyses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AnalysisWithDetails, 0, len(analyses))
	for _, a := range analyses {
		row, err := s.details(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// GetWithDetails returns one joined bulletin or shared.ErrNotFound.
func (s *Service) GetWithDetails(ctx context.Context, id string) (AnalysisWithDetails, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return AnalysisWithDetails{}, err
	}
	return s.details(ctx, a)
}

// ListByPatient returns the patient's bulletins, most recent first. Equal
// dates keep insertion order.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]AnalysisWithDetails, error) {
	rows, err := s.ListWithDetails(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AnalysisWithDetails, 0, len(rows))
	for _, row := range rows {
		if row.PatientID == patientID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateAnalyse.After(out[j].DateAnalyse)
	})
	return out, nil
}

func (s *Service) details(ctx context.Context, a Analysis) (AnalysisWithDetails, error) {
	row := AnalysisWithDetails{Analysis: a, PatientNom: UnknownPatient}
	if s.deps.Patients != nil {
		p, err := s.deps.Patients.PatientByID(ctx, a.PatientID)
		switch {
		case err == nil:
			row.PatientNom, row.PatientPrenom = p.Nom, p.Prenom
		case !errors.Is(err, shared.ErrNotFound):
			return AnalysisWithDetails{}, err
		}
	}
	if s.deps.Users != nil {
		u, err := s.deps.Users.UserByID(ctx, a.ProfessionnelID)
		switch {
		case err == nil:
			row.ProfessionnelNom, row.ProfessionnelPrenom, row.ProfessionnelRole = u.Nom, u.Prenom, u.Role
		case !errors.Is(err, shared.ErrNotFound):
			return AnalysisWithDetails{}, err
		}
	}
	if a.ConsultationID != "" && s.deps.Consultations != nil {
		c, err := s.deps.Consultations.ConsultationByID(ctx, a.ConsultationID)
		switch {
		case err == nil:
			row.ConsultationDiagnostic = c.Diagnostic
		case !errors.Is(err, shared.ErrNotFound):
			return AnalysisWithDetails{}, err
		}
	}
	return row, nil
}

func (s *Service) withResultIDs(results []AnalysisResult) []AnalysisResult {
	out := append([]AnalysisResult{}, results...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = s.newID()
		}
	}
	return out
}

func (s *Service) index(id string) int {
	for i := range s.analyses {
		if s.analyses[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(analyses []Analysis) []Analysis {
	out := make([]Analysis, len(analyses))
	for i, a := range analyses {
		out[i] = a.clone()
	}
	return out
}
