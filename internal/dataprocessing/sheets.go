package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"incomestatement/internal/config"
	"incomestatement/internal/statement"
)

// SheetsSource imports spreadsheet ranges through the Google Sheets API
type SheetsSource struct {
	service      *sheets.Service
	defaultRange string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewSheetsSource builds a Sheets client. Credentials are taken from a
// service account file, then an API key, and otherwise requests go out
// unauthenticated, which suits public sheets and local emulators.
func NewSheetsSource(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) (*SheetsSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.CredentialsFile != "":
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{
		service:      service,
		defaultRange: cfg.DefaultRange,
		timeout:      cfg.Timeout,
		logger:       logger.With("component", "sheets"),
	}, nil
}

// Fetch reads a range and returns it as a table. An empty range falls back to
// the configured default.
func (s *SheetsSource) Fetch(ctx context.Context, spreadsheetID, readRange string) (*statement.Table, error) {
	if readRange == "" {
		readRange = s.defaultRange
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		s.logger.WarnContext(ctx, "sheets fetch failed",
			slog.String("spreadsheet_id", spreadsheetID),
			slog.String("range", readRange),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("fetch sheet %s!%s: %w", spreadsheetID, readRange, err)
	}

	table := &statement.Table{Source: "sheets:" + spreadsheetID + "/" + readRange}
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = stringifyCell(v)
		}
		if table.Header == nil {
			if len(cells) == 0 {
				continue
			}
			table.Header = cells
			continue
		}
		table.Rows = append(table.Rows, padRow(cells, len(table.Header)))
	}

	s.logger.InfoContext(ctx, "sheet imported",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", resp.Range),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

func stringifyCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
