package billing

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/medcabinet/cabinet/internal/shared"
)

// DateLayout is the display format of ledger dates.
const DateLayout = "02/01/2006"

var csvHeader = []string{"ID", "Patient", "Date", "Montant total", "Montant payé", "Solde restant", "Statut", "Description"}

// ExportCSV writes one row per invoice in insertion order. Fields containing
// the delimiter, quotes or newlines are quoted.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.ListInvoicesWithDetails(ctx)
	if err != nil {
		return err
	}
	return WriteInvoicesCSV(w, rows)
}

// WriteInvoicesCSV serialises joined invoices.
func WriteInvoicesCSV(w io.Writer, rows []InvoiceWithDetails) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			row.PatientName(),
			row.DateFacture.Format(DateLayout),
			shared.FormatMoney(row.MontantTotal),
			shared.FormatMoney(row.MontantPaye),
			shared.FormatMoney(row.SoldeRestant),
			string(row.Statut),
			row.Description,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
