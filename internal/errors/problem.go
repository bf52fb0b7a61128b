package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// Problem types, relative URIs per RFC 7807
const (
	TypeValidation        = "/errors/validation"
	TypeNotFound          = "/errors/not-found"
	TypeRateLimit         = "/errors/rate-limit"
	TypeInternal          = "/errors/internal"
	TypeServiceDown       = "/errors/service-unavailable"
	TypeTimeout           = "/errors/timeout"
	TypePayloadTooLarge   = "/errors/payload-too-large"
	TypeUnsupportedFormat = "/errors/unsupported-media-type"
	TypeMethodNotAllowed  = "/errors/method-not-allowed"
	TypeBadGateway        = "/errors/upstream"
)

// Statement problem types
const (
	TypeSchemaInvalid   = "/errors/statement/schema"
	TypeValueNotNumeric = "/errors/statement/value"
	TypeMissingMetric   = "/errors/statement/missing-metric"
	TypeEmptyDataset    = "/errors/statement/empty-dataset"
	TypeEmptySelection  = "/errors/statement/empty-selection"
	TypeUnknownProduct  = "/errors/statement/unknown-product"
	TypeDatasetNotFound = "/errors/dataset/not-found"
	TypeMalformedFile   = "/errors/dataset/malformed"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Extensions are flattened into the top-level object
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON includes extensions next to the standard members
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// problemTypes maps error codes to problem type URIs
var problemTypes = map[string]string{
	CodeInvalidRequest:    TypeValidation,
	CodeValidation:        TypeValidation,
	CodeMalformedFile:     TypeMalformedFile,
	CodeEmptySelection:    TypeEmptySelection,
	CodeNotFound:          TypeNotFound,
	CodeDatasetNotFound:   TypeDatasetNotFound,
	CodeUnknownProduct:    TypeUnknownProduct,
	CodePayloadTooLarge:   TypePayloadTooLarge,
	CodeUnsupportedFormat: TypeUnsupportedFormat,
	CodeSchemaInvalid:     TypeSchemaInvalid,
	CodeValueNotNumeric:   TypeValueNotNumeric,
	CodeMissingMetric:     TypeMissingMetric,
	CodeEmptyDataset:      TypeEmptyDataset,
	CodeRateLimited:       TypeRateLimit,
	CodeSheetsDisabled:    TypeServiceDown,
	CodeUpstream:          TypeBadGateway,
	CodeTimeout:           TypeTimeout,
}

// ProblemType returns the problem type URI for an error code
func ProblemType(code string) string {
	if t, ok := problemTypes[code]; ok {
		return t
	}
	return TypeInternal
}
