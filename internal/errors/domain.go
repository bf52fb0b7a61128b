package errors

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"incomestatement/internal/dataprocessing"
	"incomestatement/internal/services"
	"incomestatement/internal/statement"
)

// FromError maps service and statement errors to an APIError. Errors it does
// not recognise become a generic 500 that does not leak the cause.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		schemaErr  *statement.SchemaError
		valueErr   *statement.ValueTypeError
		emptyErr   *statement.EmptySelectionError
		unknownErr *statement.UnknownProductError
		missingErr *statement.MissingMetricError
		rangeErr   *statement.OverflowError
		googleErr  *googleapi.Error
	)

	switch {
	case errors.As(err, &schemaErr):
		return NewWithDetails(http.StatusUnprocessableEntity, CodeSchemaInvalid, schemaErr.Error(),
			map[string]interface{}{
				"missing":  schemaErr.Missing,
				"required": schemaErr.Required,
			})

	case errors.As(err, &valueErr):
		code := CodeValueNotNumeric
		if errors.Is(valueErr, statement.ErrValueOutOfRange) {
			code = CodeValueOutOfRange
		}
		return NewWithDetails(http.StatusUnprocessableEntity, code, valueErr.Error(),
			map[string]interface{}{
				"row":     valueErr.Row,
				"column":  valueErr.Column,
				"product": valueErr.Product,
				"metric":  valueErr.Metric,
				"value":   valueErr.Value,
			})

	case errors.As(err, &emptyErr):
		return New(http.StatusBadRequest, CodeEmptySelection, emptyErr.Error())

	case errors.As(err, &unknownErr):
		return NewWithDetails(http.StatusNotFound, CodeUnknownProduct, unknownErr.Error(),
			map[string]interface{}{"products": unknownErr.Products})

	case errors.As(err, &missingErr):
		return NewWithDetails(http.StatusUnprocessableEntity, CodeMissingMetric, missingErr.Error(),
			map[string]interface{}{
				"missing":  missingErr.Missing,
				"products": missingErr.Products,
			})

	case errors.As(err, &rangeErr):
		return NewWithDetails(http.StatusUnprocessableEntity, CodeValueOutOfRange, rangeErr.Error(),
			map[string]interface{}{
				"line":     rangeErr.Line,
				"products": rangeErr.Products,
			})

	case errors.Is(err, statement.ErrEmptyDataset):
		return New(http.StatusUnprocessableEntity, CodeEmptyDataset, statement.ErrEmptyDataset.Error())

	case errors.Is(err, services.ErrDatasetNotFound):
		return New(http.StatusNotFound, CodeDatasetNotFound, err.Error())

	case errors.Is(err, services.ErrUploadTooLarge):
		return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, err.Error())

	case errors.Is(err, services.ErrSheetsDisabled):
		return ErrSheetsDisabled

	case errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return New(http.StatusUnsupportedMediaType, CodeUnsupportedFormat, err.Error())

	case errors.Is(err, dataprocessing.ErrMalformedFile):
		return New(http.StatusBadRequest, CodeMalformedFile, err.Error())

	case errors.As(err, &googleErr):
		return NewWithDetails(http.StatusBadGateway, CodeUpstream, "Google Sheets request failed",
			map[string]interface{}{
				"upstream_status":  googleErr.Code,
				"upstream_message": googleErr.Message,
			})

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return New(http.StatusGatewayTimeout, CodeTimeout,
			"The request took too long to process and was cancelled")
	}

	return ErrInternalServer
}
