package bills

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/billed/internal/domain"
)

var frenchMonths = [12]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// FormatDate renders an ISO date as "4 Avr. 04".
// Strings that are not ISO dates are returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), frenchMonths[t.Month()-1], t.Year()%100)
}

// FormatStatus renders a bill status label.
func FormatStatus(s domain.BillStatus) string {
	switch s {
	case domain.StatusPending:
		return "En attente"
	case domain.StatusAccepted:
		return "Accepté"
	case domain.StatusRefused:
		return "Refusé"
	}
	return string(s)
}
