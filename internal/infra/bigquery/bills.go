package bigquery

import (
	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/billed/internal/domain"
)

// BillRow represents a bill record in BigQuery.
type BillRow struct {
	BillID string `bigquery:"bill_id"` // REQUIRED
	Email  string `bigquery:"email"`   // REQUIRED

	ExpenseType string `bigquery:"expense_type"` // NULLABLE
	Name        string `bigquery:"name"`         // NULLABLE

	// BillDate holds parsable dates; anything else lands in RawDate.
	BillDate bigquery.NullDate   `bigquery:"bill_date"` // NULLABLE
	RawDate  bigquery.NullString `bigquery:"raw_date"`  // NULLABLE

	Amount float64 `bigquery:"amount"` // REQUIRED
	VAT    string  `bigquery:"vat"`    // NULLABLE
	Pct    int64   `bigquery:"pct"`    // REQUIRED

	Commentary   string `bigquery:"commentary"`    // NULLABLE
	CommentAdmin string `bigquery:"comment_admin"` // NULLABLE

	FileURL  string `bigquery:"file_url"`  // NULLABLE
	FileName string `bigquery:"file_name"` // NULLABLE

	Status string `bigquery:"status"` // REQUIRED
}

// NewBillRow converts a domain bill into its BigQuery row.
func NewBillRow(b domain.Bill) BillRow {
	row := BillRow{
		BillID:       b.ID,
		Email:        b.Email,
		ExpenseType:  b.Type,
		Name:         b.Name,
		Amount:       b.Amount,
		VAT:          b.VAT,
		Pct:          int64(b.Pct),
		Commentary:   b.Commentary,
		CommentAdmin: b.CommentAdmin,
		FileURL:      b.FileURL,
		FileName:     b.FileName,
		Status:       string(b.Status),
	}

	if d, err := civil.ParseDate(b.Date); err == nil {
		row.BillDate = bigquery.NullDate{Date: d, Valid: true}
	} else if b.Date != "" {
		row.RawDate = bigquery.NullString{StringVal: b.Date, Valid: true}
	}
	return row
}

// Bill converts the row back into a domain bill.
func (r BillRow) Bill() domain.Bill {
	b := domain.Bill{
		ID:           r.BillID,
		Type:         r.ExpenseType,
		Name:         r.Name,
		Amount:       r.Amount,
		VAT:          r.VAT,
		Pct:          int(r.Pct),
		Commentary:   r.Commentary,
		FileURL:      r.FileURL,
		FileName:     r.FileName,
		Status:       domain.BillStatus(r.Status),
		Email:        r.Email,
		CommentAdmin: r.CommentAdmin,
	}

	switch {
	case r.BillDate.Valid:
		b.Date = r.BillDate.Date.String()
	case r.RawDate.Valid:
		b.Date = r.RawDate.StringVal
	}
	return b
}
