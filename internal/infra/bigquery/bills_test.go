package bigquery

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/googleapi"
)

func TestBillRow_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		bill domain.Bill
	}{
		{
			name: "iso date",
			bill: domain.Bill{
				ID: "47qAXb6fIm2zOKkLzMro", Type: "Hôtel et logement", Name: "encore",
				Date: "2004-04-04", Amount: 400, VAT: "80", Pct: 20,
				Commentary: "séminaire billed", FileURL: "https://example.test/f.jpg",
				FileName: "f.jpg", Status: domain.StatusPending, Email: "a@a", CommentAdmin: "ok",
			},
		},
		{
			name: "free form date",
			bill: domain.Bill{ID: "x", Date: "hier", Status: domain.StatusRefused, Email: "a@a"},
		},
		{
			name: "no date",
			bill: domain.Bill{ID: "y", Status: domain.StatusAccepted, Email: "a@a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBillRow(tt.bill).Bill()
			if diff := cmp.Diff(tt.bill, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewBillRow_Date(t *testing.T) {
	row := NewBillRow(domain.Bill{Date: "2004-04-04"})
	if !row.BillDate.Valid || row.RawDate.Valid {
		t.Errorf("expected bill_date set and raw_date null, got %+v / %+v", row.BillDate, row.RawDate)
	}

	row = NewBillRow(domain.Bill{Date: "04/04/2004"})
	if row.BillDate.Valid || !row.RawDate.Valid {
		t.Errorf("expected raw_date set and bill_date null, got %+v / %+v", row.BillDate, row.RawDate)
	}
}

func TestWrapAPIError(t *testing.T) {
	err := wrapAPIError(&googleapi.Error{Code: http.StatusNotFound, Message: "Not found: Table"})
	if got := store.Message(err); got != "Erreur 404" {
		t.Errorf("Message = %q, want Erreur 404", got)
	}

	plain := errors.New("boom")
	if got := wrapAPIError(plain); got != plain {
		t.Errorf("non API errors should pass through, got %v", got)
	}
}
