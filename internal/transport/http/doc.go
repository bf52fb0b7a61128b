// Package http implements the HTTP handlers of the income statement service.
// Handlers stay thin: they decode and validate the request, call the
// statement service and render the result.
//
// # Routes
//
//	POST   /api/datasets                       multipart upload, field "file"
//	POST   /api/datasets/sheets                Google Sheets import
//	GET    /api/datasets                       list held datasets
//	GET    /api/datasets/{id}                  dataset summary
//	DELETE /api/datasets/{id}                  drop a dataset
//	GET    /api/datasets/{id}/products         products in first-seen order
//	POST   /api/datasets/{id}/compute          {"products": [...]} or {} for all
//	GET    /api/datasets/{id}/export.csv       ?products=A,B
//	GET    /api/datasets/{id}/export.xlsx      ?products=A,B
//	GET    /api/datasets/{id}/chart.png        ?products=A,B
//	GET    /api/datasets/{id}/report           ?products=A,B&format=html|markdown
//
// # Error Handling
//
// Every failure is rendered as RFC 7807 problem+json by the shared
// ErrorHandler, with the machine readable code in "error_code":
//
//	{
//	    "type": "/errors/statement/unknown-product",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "unknown product(s): Z",
//	    "instance": "/api/datasets/5f0c.../compute",
//	    "error_code": "UNKNOWN_PRODUCT",
//	    "details": {"products": ["Z"]}
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of the service.
package http
