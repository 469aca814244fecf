// Package statistics computes read-only snapshots of cabinet activity over a
// date window.
package statistics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/medcabinet/cabinet/internal/analysis"
	"github.com/medcabinet/cabinet/internal/billing"
	"github.com/medcabinet/cabinet/internal/directory"
)

// Ledger exposes the billing aggregates the snapshot reports.
type Ledger interface {
	Totals(ctx context.Context, start, end time.Time) (billing.Totals, error)
	CollectedByConsultation(ctx context.Context) (map[string]decimal.Decimal, error)
}

// AnalysisSource lists joined bulletins.
type AnalysisSource interface {
	ListWithDetails(ctx context.Context) ([]analysis.AnalysisWithDetails, error)
}

// Dependencies lists the collections the aggregator reads.
type Dependencies struct {
	Consultations directory.ConsultationDirectory
	Appointments  directory.AppointmentDirectory
	Certificates  directory.CertificateDirectory
	Analyses      AnalysisSource
	Ledger        Ledger
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

// Service aggregates. It holds no state besides its collaborators.
type Service struct {
	deps Dependencies
	now  func() time.Time
}

// NewService constructs the aggregator.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{deps: deps, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CabinetStatistics is the activity snapshot of a window.
type CabinetStatistics struct {
	Periode                 Period          `json:"periode"`
	Window                  Window          `json:"fenetre"`
	PatientsVus             int             `json:"patients_vus"`
	ConsultationsEffectuees int             `json:"consultations_effectuees"`
	RendezVousPlanifies     int             `json:"rendez_vous_planifies"`
	RendezVousHonores       int             `json:"rendez_vous_honores"`
	RendezVousAnnules       int             `json:"rendez_vous_annules"`
	TauxPresence            int             `json:"taux_presence"`
	CertificatsEmis         int             `json:"certificats_emis"`
	BulletinsAnalyse        int             `json:"bulletins_analyse"`
	TotalEncaisse           decimal.Decimal `json:"total_encaisse"`
	FacturesImpayees        int             `json:"factures_impayees"`
	MontantDu               decimal.Decimal `json:"montant_du"`
}

// Query selects a window.
type Query struct {
	Period      Period
	CustomStart *time.Time
	CustomEnd   *time.Time
}

// Window resolves q against the service clock.
func (s *Service) Window(q Query) Window {
	return ResolveWindow(q.Period, s.now(), q.CustomStart, q.CustomEnd)
}

// GetCabinetStatistics computes the snapshot of q. Empty collections give
// zero counts.
func (s *Service) GetCabinetStatistics(ctx context.Context, q Query) (CabinetStatistics, error) {
	win := s.Window(q)
	var (
		consultations []directory.ConsultationWithDetails
		appointments  []directory.AppointmentWithDetails
		certificates  []directory.CertificateWithDetails
		analyses      []analysis.AnalysisWithDetails
		totals        = billing.Totals{Collected: decimal.Zero, Due: decimal.Zero}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		consultations, err = s.consultations(gctx)
		return err
	})
	if s.deps.Appointments != nil {
		g.Go(func() error {
			var err error
			appointments, err = s.deps.Appointments.AppointmentsWithDetails(gctx)
			return err
		})
	}
	if s.deps.Certificates != nil {
		g.Go(func() error {
			var err error
			certificates, err = s.deps.Certificates.CertificatesWithDetails(gctx)
			return err
		})
	}
	if s.deps.Analyses != nil {
		g.Go(func() error {
			var err error
			analyses, err = s.deps.Analyses.ListWithDetails(gctx)
			return err
		})
	}
	if s.deps.Ledger != nil {
		g.Go(func() error {
			var err error
			totals, err = s.deps.Ledger.Totals(gctx, win.Start, win.End)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return CabinetStatistics{}, fmt.Errorf("statistics: load collections: %w", err)
	}

	stats := CabinetStatistics{
		Periode:          q.Period,
		Window:           win,
		TotalEncaisse:    totals.Collected,
		FacturesImpayees: totals.Unpaid,
		MontantDu:        totals.Due,
	}
	patients := make(map[string]struct{})
	for _, c := range consultations {
		if win.Contains(c.DateConsultation) {
			stats.ConsultationsEffectuees++
			patients[c.PatientID] = struct{}{}
		}
	}
	stats.PatientsVus = len(patients)
	for _, a := range appointments {
		if !win.Contains(a.DateRendezVous) {
			continue
		}
		stats.RendezVousPlanifies++
		switch a.Statut {
		case directory.AppointmentCompleted:
			stats.RendezVousHonores++
		case directory.AppointmentCancelled:
			stats.RendezVousAnnules++
		case directory.AppointmentPlanned, directory.AppointmentConfirmed:
		}
	}
	stats.TauxPresence = PresenceRate(stats.RendezVousHonores, stats.RendezVousPlanifies)
	for _, c := range certificates {
		if win.Contains(c.DateEmission) {
			stats.CertificatsEmis++
		}
	}
	for _, a := range analyses {
		if win.Contains(a.DateAnalyse) {
			stats.BulletinsAnalyse++
		}
	}
	return stats, nil
}

// PresenceRate returns round(honored / planned * 100), 0 when nothing was planned.
func PresenceRate(honored, planned int) int {
	if planned == 0 {
		return 0
	}
	return int(math.Round(float64(honored) / float64(planned) * 100))
}

// Palette colours doctors in first-seen order, cycling when exhausted.
var Palette = []string{"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899"}

// UnknownProfessional labels consultations whose professional does not resolve.
const UnknownProfessional = "Professionnel inconnu"

// DoctorCount is the number of consultations of one professional.
type DoctorCount struct {
	Name    string `json:"nom"`
	Count   int    `json:"consultations"`
	Couleur string `json:"couleur"`
}

// ConsultationsByDoctor groups in-window consultations by professional.
func (s *Service) ConsultationsByDoctor(ctx context.Context, q Query) ([]DoctorCount, error) {
	filtered, err := s.filteredConsultations(ctx, q)
	if err != nil {
		return nil, err
	}
	out := []DoctorCount{}
	index := make(map[string]int)
	for _, c := range filtered {
		name := c.ProfessionalName()
		if name == "" {
			name = UnknownProfessional
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, DoctorCount{Name: name, Couleur: Palette[i%len(Palette)]})
		}
		out[i].Count++
	}
	return out, nil
}

// Weekdays are the attendance bucket labels, Monday first.
var Weekdays = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

// DayCount is a weekday attendance bucket.
type DayCount struct {
	Jour  string `json:"jour"`
	Count int    `json:"consultations"`
}

// WeeklyAttendance counts in-window consultations per weekday. All seven
// buckets are returned.
func (s *Service) WeeklyAttendance(ctx context.Context, q Query) ([]DayCount, error) {
	filtered, err := s.filteredConsultations(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]DayCount, len(Weekdays))
	for i, day := range Weekdays {
		out[i].Jour = day
	}
	for _, c := range filtered {
		out[(int(c.DateConsultation.Weekday())+6)%7].Count++
	}
	return out, nil
}

// EvolutionLayout formats evolution dates.
const EvolutionLayout = "2006-01-02"

// RevenuePoint is the amount collected on invoices of one day's consultations.
type RevenuePoint struct {
	Date    string          `json:"date"`
	Montant decimal.Decimal `json:"montant"`
}

// RevenueEvolution sums, per consultation date, the paid amount of invoices
// linked to that day's consultations. Dates ascend.
func (s *Service) RevenueEvolution(ctx context.Context, q Query) ([]RevenuePoint, error) {
	filtered, err := s.filteredConsultations(ctx, q)
	if err != nil {
		return nil, err
	}
	collected := map[string]decimal.Decimal{}
	if s.deps.Ledger != nil {
		if collected, err = s.deps.Ledger.CollectedByConsultation(ctx); err != nil {
			return nil, fmt.Errorf("statistics: load ledger: %w", err)
		}
	}
	byDate := make(map[string]decimal.Decimal)
	for _, c := range filtered {
		key := c.DateConsultation.Format(EvolutionLayout)
		byDate[key] = byDate[key].Add(collected[c.ID])
	}
	out := make([]RevenuePoint, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		out = append(out, RevenuePoint{Date: date, Montant: byDate[date]})
	}
	return out, nil
}

// CountPoint is the number of consultations on one day.
type CountPoint struct {
	Date  string `json:"date"`
	Count int    `json:"consultations"`
}

// ConsultationEvolution counts in-window consultations per date, ascending.
func (s *Service) ConsultationEvolution(ctx context.Context, q Query) ([]CountPoint, error) {
	filtered, err := s.filteredConsultations(ctx, q)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]int)
	for _, c := range filtered {
		byDate[c.DateConsultation.Format(EvolutionLayout)]++
	}
	out := make([]CountPoint, 0, len(byDate))
	for _, date := range sortedKeys(byDate) {
		out = append(out, CountPoint{Date: date, Count: byDate[date]})
	}
	return out, nil
}

func (s *Service) consultations(ctx context.Context) ([]directory.ConsultationWithDetails, error) {
	if s.deps.Consultations == nil {
		return nil, nil
	}
	return s.deps.Consultations.ConsultationsWithDetails(ctx)
}

func (s *Service) filteredConsultations(ctx context.Context, q Query) ([]directory.ConsultationWithDetails, error) {
	all, err := s.consultations(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics: load consultations: %w", err)
	}
	win := s.Window(q)
	out := make([]directory.ConsultationWithDetails, 0, len(all))
	for _, c := range all {
		if win.Contains(c.DateConsultation) {
			out = append(out, c)
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
