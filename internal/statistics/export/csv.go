// Package export serialises statistics snapshots.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/medcabinet/cabinet/internal/shared"
	"github.com/medcabinet/cabinet/internal/statistics"
)

type row struct {
	label, value string
	// quoted forces quoting of the value.
	quoted bool
}

// WriteStatisticsCSV emits one statistic per line under a fixed header.
// Amounts are formatted as currency text and always quoted.
func WriteStatisticsCSV(w io.Writer, stats statistics.CabinetStatistics, period statistics.Period) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Statistique", "Valeur"}); err != nil {
		return err
	}
	rows := []row{
		{label: "Période", value: string(period)},
		{label: "Patients vus", value: strconv.Itoa(stats.PatientsVus)},
		{label: "Consultations effectuées", value: strconv.Itoa(stats.ConsultationsEffectuees)},
		{label: "Rendez-vous planifiés", value: strconv.Itoa(stats.RendezVousPlanifies)},
		{label: "Rendez-vous honorés", value: strconv.Itoa(stats.RendezVousHonores)},
		{label: "Rendez-vous annulés", value: strconv.Itoa(stats.RendezVousAnnules)},
		{label: "Taux de présence", value: strconv.Itoa(stats.TauxPresence) + "%"},
		{label: "Certificats émis", value: strconv.Itoa(stats.CertificatsEmis)},
		{label: "Bulletins d'analyse", value: strconv.Itoa(stats.BulletinsAnalyse)},
		{label: "Total encaissé", value: shared.FormatMoney(stats.TotalEncaisse), quoted: true},
		{label: "Factures impayées", value: strconv.Itoa(stats.FacturesImpayees)},
		{label: "Montant dû", value: shared.FormatMoney(stats.MontantDu), quoted: true},
	}
	for _, r := range rows {
		if !r.quoted {
			if err := writer.Write([]string{r.label, r.value}); err != nil {
				return err
			}
			continue
		}
		// csv.Writer only quotes on demand; flush so the raw line stays in order.
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, r.label+","+quote(r.value)+"\n"); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
