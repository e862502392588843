package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
)

// BigQueryBillRepository is the implementation of store.BillRepository that
// interacts with BigQuery. It holds a shared client to avoid creating a new
// connection for each operation.
type BigQueryBillRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewBigQueryBillRepository creates the repository and makes sure the bills
// table exists.
func NewBigQueryBillRepository(ctx context.Context, projectID, datasetID string) (*BigQueryBillRepository, error) {
	if datasetID == "" {
		datasetID = defaultDatasetID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryBillRepository: creating client: %w", err)
	}

	if err := EnsureBillsTableWithClient(ctx, client, datasetID); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewBigQueryBillRepository: %w", err)
	}

	return &BigQueryBillRepository{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryBillRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListBills delegates to ListBillsWithClient with the shared client.
func (r *BigQueryBillRepository) ListBills(ctx context.Context) ([]domain.Bill, error) {
	return ListBillsWithClient(ctx, r.client, r.datasetID)
}

// GetBill delegates to GetBillWithClient with the shared client.
func (r *BigQueryBillRepository) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	return GetBillWithClient(ctx, r.client, r.datasetID, id)
}

// UpsertBill delegates to UpsertBillWithClient with the shared client.
func (r *BigQueryBillRepository) UpsertBill(ctx context.Context, b domain.Bill) error {
	return UpsertBillWithClient(ctx, r.client, r.datasetID, b)
}

var _ store.BillRepository = (*BigQueryBillRepository)(nil)
