package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/shared"
)

// DateLayout is the display format of bulletin dates.
const DateLayout = "02/01/2006"

const rule = "----------------------------------------"

// RenderPrintable flattens a bulletin into a printable text document. It
// returns "", false when id is unknown.
func (s *Service) RenderPrintable(ctx context.Context, id string) (string, bool, error) {
	row, err := s.GetWithDetails(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var clinic directory.Clinic
	if s.deps.Clinic != nil {
		clinic = s.deps.Clinic.Clinic()
	}
	return FormatBulletin(clinic, row), true, nil
}

// FormatBulletin renders the clinic header, identification, result lines
// and conclusion of a joined bulletin.
func FormatBulletin(clinic directory.Clinic, row AnalysisWithDetails) string {
	var b strings.Builder
	for _, line := range []string{clinic.Nom, clinic.Adresse, contactLine(clinic), clinic.LegalIDs} {
		if line != "" {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(rule + "\n")
	b.WriteString("BULLETIN D'ANALYSE\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Date : %s\n", row.DateAnalyse.Format(DateLayout))
	fmt.Fprintf(&b, "Patient : %s\n", row.PatientName())
	prof := row.ProfessionalName()
	if row.ProfessionnelRole != "" {
		prof += " (" + row.ProfessionnelRole + ")"
	}
	fmt.Fprintf(&b, "Prescripteur : %s\n", strings.TrimSpace(prof))
	if row.ConsultationDiagnostic != "" {
		fmt.Fprintf(&b, "Diagnostic : %s\n", row.ConsultationDiagnostic)
	}
	fmt.Fprintf(&b, "Type d'analyse : %s\n", row.TypeAnalyse)
	b.WriteString("\nRÉSULTATS\n")
	for _, r := range row.Resultats {
		b.WriteString(resultLine(r) + "\n")
	}
	b.WriteString("\nCONCLUSION\n")
	b.WriteString(row.Conclusion + "\n")
	return b.String()
}

func contactLine(c directory.Clinic) string {
	parts := make([]string, 0, 2)
	if c.Telephone != "" {
		parts = append(parts, "Tél : "+c.Telephone)
	}
	if c.Email != "" {
		parts = append(parts, "Email : "+c.Email)
	}
	return strings.Join(parts, " | ")
}

func resultLine(r AnalysisResult) string {
	line := "- " + r.Parametre + " : " + r.Valeur
	if r.Unite != "" {
		line += " " + r.Unite
	}
	if r.ValeurNormale != "" {
		line += " (normale : " + r.ValeurNormale + ")"
	}
	return line + " [" + strings.ToUpper(string(r.Statut)) + "]"
}
