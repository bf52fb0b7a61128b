// Package services holds the business layer between the HTTP/WebSocket
// transports and the income statement core.
//
// # Services
//
//	- StatementService: ingests uploads and sheet imports, keeps them in a
//	  DatasetStore and computes income statements for product selections
//	- HealthService: health, readiness, liveness and version reporting
//
// # Datasets
//
// Every accepted upload becomes an immutable Dataset holding its
// ProductIndex, keyed by a UUID. The DatasetStore bounds how many datasets
// are held (oldest evicted first) and expires them after a configured TTL.
// Nothing is persisted.
//
// # Error Handling
//
// Domain errors from internal/statement and internal/dataprocessing are
// wrapped with %w and pass through unchanged in kind, so the transport layer
// maps them with errors.As. Service-level conditions use the sentinels in
// errors.go.
package services
