package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"incomestatement/internal/infrastructure"
	"incomestatement/internal/statement"
	"incomestatement/pkg/contracts/domain"
)

// Dataset sources
const (
	SourceUpload = "upload"
	SourceSheets = "sheets"
)

// TableLoader turns a named upload into a table; dataprocessing.Registry implements it
type TableLoader interface {
	Load(ctx context.Context, name string, src io.Reader) (*statement.Table, error)
}

// SheetsFetcher imports a spreadsheet range; dataprocessing.SheetsSource implements it
type SheetsFetcher interface {
	Fetch(ctx context.Context, spreadsheetID, readRange string) (*statement.Table, error)
}

// StatementService ingests datasets and computes income statements over them
type StatementService struct {
	store    *DatasetStore
	loader   TableLoader
	sheets   SheetsFetcher
	maxBytes int64
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewStatementService creates a statement service. maxBytes <= 0 leaves uploads unbounded.
func NewStatementService(store *DatasetStore, loader TableLoader, maxBytes int64, logger *slog.Logger) *StatementService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &StatementService{
		store:    store,
		loader:   loader,
		maxBytes: maxBytes,
		tracer:   otel.Tracer("incomestatement/services"),
		logger:   logger,
	}
	store.OnEvict(func(ctx context.Context, _ *Dataset, _ string) {
		if s.metrics != nil {
			s.metrics.DatasetsActive.Add(ctx, -1)
		}
	})
	return s
}

// WithSheets enables spreadsheet imports
func (s *StatementService) WithSheets(sheets SheetsFetcher) *StatementService {
	s.sheets = sheets
	return s
}

// WithTelemetry records metrics and spans with the given instruments
func (s *StatementService) WithTelemetry(metrics *infrastructure.BusinessMetrics, tracer trace.Tracer) *StatementService {
	s.metrics = metrics
	if tracer != nil {
		s.tracer = tracer
	}
	return s
}

// SheetsEnabled reports whether ImportSheet can be used
func (s *StatementService) SheetsEnabled() bool {
	return s.sheets != nil
}

// Upload reads, validates and indexes an uploaded file
func (s *StatementService) Upload(ctx context.Context, name string, src io.Reader) (domain.DatasetSummary, error) {
	ctx, span := s.tracer.Start(ctx, "statement.upload",
		trace.WithAttributes(attribute.String("file.name", name)))
	defer span.End()

	data, err := s.readLimited(src)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.DatasetSummary{}, err
	}

	table, err := s.loader.Load(ctx, name, bytes.NewReader(data))
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return domain.DatasetSummary{}, err
	}

	return s.ingest(ctx, &Dataset{
		Name:     name,
		Source:   SourceUpload,
		Checksum: Checksum(data),
		Size:     int64(len(data)),
	}, table)
}

// ImportSheet imports a Google Sheets range as a dataset
func (s *StatementService) ImportSheet(ctx context.Context, spreadsheetID, readRange string) (domain.DatasetSummary, error) {
	if s.sheets == nil {
		return domain.DatasetSummary{}, ErrSheetsDisabled
	}

	ctx, span := s.tracer.Start(ctx, "statement.import_sheet",
		trace.WithAttributes(attribute.String("spreadsheet.id", spreadsheetID)))
	defer span.End()

	table, err := s.sheets.Fetch(ctx, spreadsheetID, readRange)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.DatasetSummary{}, err
	}

	return s.ingest(ctx, &Dataset{
		Name:     spreadsheetID,
		Source:   SourceSheets,
		Checksum: TableChecksum(table),
	}, table)
}

// Datasets lists the live datasets, oldest first
func (s *StatementService) Datasets(ctx context.Context) []domain.DatasetSummary {
	list := s.store.List(ctx)
	summaries := make([]domain.DatasetSummary, 0, len(list))
	for _, d := range list {
		summaries = append(summaries, d.Summary())
	}
	return summaries
}

// Dataset returns one dataset summary
func (s *StatementService) Dataset(ctx context.Context, id string) (domain.DatasetSummary, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.DatasetSummary{}, err
	}
	return d.Summary(), nil
}

// Products returns the dataset's products in first-seen order
func (s *StatementService) Products(ctx context.Context, id string) ([]string, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Index.Products(), nil
}

// Compute aggregates the selected products and evaluates the statement.
// A nil selection means every product in the dataset.
func (s *StatementService) Compute(ctx context.Context, id string, selection domain.Selection) (*domain.ResultSet, error) {
	ctx, span := s.tracer.Start(ctx, "statement.compute",
		trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if selection == nil {
		selection = d.Index.Products()
	}

	start := time.Now()
	result, err := statement.Compute(d.Index, selection)
	infrastructure.RecordComputation(ctx, s.metrics, d.Source, len(selection), time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.DebugContext(ctx, "computation failed",
			slog.String("dataset_id", id),
			slog.Any("products", selection),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("compute dataset %s: %w", id, err)
	}

	span.SetAttributes(attribute.Int("products", len(result.Products)))
	return result, nil
}

// Delete drops a dataset
func (s *StatementService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.DatasetsActive.Add(ctx, -1)
	}
	s.logger.InfoContext(ctx, "dataset deleted", slog.String("dataset_id", id))
	return nil
}

func (s *StatementService) readLimited(src io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		return io.ReadAll(src)
	}

	data, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrUploadTooLarge, s.maxBytes)
	}
	return data, nil
}

func (s *StatementService) ingest(ctx context.Context, d *Dataset, table *statement.Table) (domain.DatasetSummary, error) {
	index, err := statement.BuildIndex(table)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.DatasetSummary{}, fmt.Errorf("index %s: %w", d.Name, err)
	}

	d.ID = uuid.NewString()
	d.Index = index
	if err := s.store.Put(ctx, d); err != nil {
		return domain.DatasetSummary{}, err
	}

	infrastructure.RecordUpload(ctx, s.metrics, d.Source, d.Size, index.Rows())
	if s.metrics != nil {
		s.metrics.DatasetsActive.Add(ctx, 1)
	}

	logger := s.logger
	if index.Overwrites() > 0 {
		logger = logger.With(slog.Int("overwrites", index.Overwrites()))
	}
	logger.InfoContext(ctx, "dataset stored",
		slog.String("dataset_id", d.ID),
		slog.String("name", d.Name),
		slog.String("source", d.Source),
		slog.Int("products", index.Len()),
		slog.Int("rows", index.Rows()))

	return d.Summary(), nil
}
