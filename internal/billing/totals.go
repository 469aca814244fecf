package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Totals aggregates the invoices dated within a window.
type Totals struct {
	Collected decimal.Decimal
	Unpaid    int
	Due       decimal.Decimal
}

// Totals sums collected and outstanding amounts over invoices whose
// date_facture lies in [start, end]. Unpaid counts every invoice not Payée.
func (s *Service) Totals(ctx context.Context, start, end time.Time) (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Totals{Collected: decimal.Zero, Due: decimal.Zero}
	for _, inv := range s.invoices {
		if inv.DateFacture.Before(start) || inv.DateFacture.After(end) {
			continue
		}
		out.Collected = out.Collected.Add(inv.MontantPaye)
		out.Due = out.Due.Add(inv.SoldeRestant)
		if inv.Statut != StatusPaid {
			out.Unpaid++
		}
	}
	return out, nil
}

// CollectedByConsultation returns the paid amount of every invoice linked to
// a consultation, keyed by consultation id.
func (s *Service) CollectedByConsultation(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, inv := range s.invoices {
		if inv.ConsultationID == "" {
			continue
		}
		out[inv.ConsultationID] = out[inv.ConsultationID].Add(inv.MontantPaye)
	}
	return out, nil
}
