package bills

import (
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/billed/internal/domain"
)

const dateLayout = "2006-01-02"

// SortByDateDesc returns a copy of bills ordered most recent first.
// Dates that parse are compared chronologically; otherwise, and on ties,
// the date strings are compared, then the IDs.
func SortByDateDesc(bills []domain.Bill) []domain.Bill {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b domain.Bill) int {
		return compareBills(b, a)
	})
	return sorted
}

// compareBills orders a before b when a is older.
func compareBills(a, b domain.Bill) int {
	ta, errA := time.Parse(dateLayout, a.Date)
	tb, errB := time.Parse(dateLayout, b.Date)
	if errA == nil && errB == nil {
		if c := ta.Compare(tb); c != 0 {
			return c
		}
	}
	if c := strings.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	// IDs break the remaining ties in ascending order.
	return strings.Compare(b.ID, a.ID)
}

// FilterVisible keeps the bills the session is allowed to see.
func FilterVisible(s domain.Session, bills []domain.Bill) []domain.Bill {
	out := make([]domain.Bill, 0, len(bills))
	for _, b := range bills {
		if s.CanSee(b) {
			out = append(out, b)
		}
	}
	return out
}
