package http

import (
	"context"
	"io"

	"incomestatement/pkg/contracts/domain"
)

// StatementService defines the dataset and computation operations the handlers need
type StatementService interface {
	Upload(ctx context.Context, name string, src io.Reader) (domain.DatasetSummary, error)
	ImportSheet(ctx context.Context, spreadsheetID, readRange string) (domain.DatasetSummary, error)
	Datasets(ctx context.Context) []domain.DatasetSummary
	Dataset(ctx context.Context, id string) (domain.DatasetSummary, error)
	Products(ctx context.Context, id string) ([]string, error)
	Compute(ctx context.Context, id string, selection domain.Selection) (*domain.ResultSet, error)
	Delete(ctx context.Context, id string) error
}
