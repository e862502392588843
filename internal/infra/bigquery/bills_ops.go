package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	defaultDatasetID = "billed"
	billsTable       = "bills"
)

const billColumns = `
			bill_id,
			email,
			expense_type,
			name,
			bill_date,
			raw_date,
			amount,
			vat,
			pct,
			commentary,
			comment_admin,
			file_url,
			file_name,
			status`

// EnsureBillsTableWithClient creates the bills table when it does not exist.
func EnsureBillsTableWithClient(ctx context.Context, client *bigquery.Client, datasetID string) error {
	schema, err := bigquery.InferSchema(BillRow{})
	if err != nil {
		return fmt.Errorf("EnsureBillsTable: inferring schema: %w", err)
	}

	err = client.Dataset(datasetID).Table(billsTable).Create(ctx, &bigquery.TableMetadata{Schema: schema})
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureBillsTable: creating table: %w", err)
	}
	return nil
}

// ListBillsWithClient retrieves all bills using the provided BigQuery client.
func ListBillsWithClient(ctx context.Context, client *bigquery.Client, datasetID string) ([]domain.Bill, error) {
	query := fmt.Sprintf(`
		SELECT`+billColumns+`
		FROM `+"`%s.%s.%s`"+`
		ORDER BY bill_date DESC, raw_date DESC
	`, client.Project(), datasetID, billsTable)

	it, err := client.Query(query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBillsWithClient: reading query: %w", wrapAPIError(err))
	}

	var bills []domain.Bill
	for {
		var row BillRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBillsWithClient: iterating: %w", wrapAPIError(err))
		}
		bills = append(bills, row.Bill())
	}

	return bills, nil
}

// GetBillWithClient retrieves a bill by ID using the provided BigQuery client.
func GetBillWithClient(ctx context.Context, client *bigquery.Client, datasetID, billID string) (domain.Bill, error) {
	query := fmt.Sprintf(`
		SELECT`+billColumns+`
		FROM `+"`%s.%s.%s`"+`
		WHERE bill_id = @bill_id
		LIMIT 1
	`, client.Project(), datasetID, billsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "bill_id", Value: billID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("GetBillWithClient: reading query: %w", wrapAPIError(err))
	}

	var row BillRow
	err = it.Next(&row)
	if err == iterator.Done {
		return domain.Bill{}, fmt.Errorf("GetBillWithClient: %s: %w", billID, store.ErrNotFound)
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("GetBillWithClient: reading row: %w", wrapAPIError(err))
	}

	return row.Bill(), nil
}

// UpsertBillWithClient merges a bill into the bills table by bill_id.
func UpsertBillWithClient(ctx context.Context, client *bigquery.Client, datasetID string, b domain.Bill) error {
	row := NewBillRow(b)

	q := client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s.%s`"+` AS t
		USING (SELECT @bill_id AS bill_id) AS s
		ON t.bill_id = s.bill_id
		WHEN MATCHED THEN UPDATE SET
			email = @email,
			expense_type = @expense_type,
			name = @name,
			bill_date = @bill_date,
			raw_date = @raw_date,
			amount = @amount,
			vat = @vat,
			pct = @pct,
			commentary = @commentary,
			comment_admin = @comment_admin,
			file_url = @file_url,
			file_name = @file_name,
			status = @status
		WHEN NOT MATCHED THEN INSERT (`+billColumns+`
		)
		VALUES (
			@bill_id, @email, @expense_type, @name, @bill_date, @raw_date, @amount,
			@vat, @pct, @commentary, @comment_admin, @file_url, @file_name, @status
		)
	`, client.Project(), datasetID, billsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "bill_id", Value: row.BillID},
		{Name: "email", Value: row.Email},
		{Name: "expense_type", Value: row.ExpenseType},
		{Name: "name", Value: row.Name},
		{Name: "bill_date", Value: row.BillDate},
		{Name: "raw_date", Value: row.RawDate},
		{Name: "amount", Value: row.Amount},
		{Name: "vat", Value: row.VAT},
		{Name: "pct", Value: row.Pct},
		{Name: "commentary", Value: row.Commentary},
		{Name: "comment_admin", Value: row.CommentAdmin},
		{Name: "file_url", Value: row.FileURL},
		{Name: "file_name", Value: row.FileName},
		{Name: "status", Value: row.Status},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertBill: running merge query: %w", wrapAPIError(err))
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertBill: waiting for job: %w", wrapAPIError(err))
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertBill: job error: %w", wrapAPIError(err))
	}

	return nil
}

// wrapAPIError keeps the HTTP status of a Google API error so the bills
// page can show it ("Erreur 404").
func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &store.StatusError{Code: apiErr.Code, Err: err}
	}
	return err
}
