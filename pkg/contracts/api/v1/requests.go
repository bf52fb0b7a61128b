// Package api contains the request and response contracts of the HTTP API.
// Version v1 represents the current stable API version.
package api

import (
	"strings"

	"incomestatement/pkg/contracts/domain"
)

// SheetImportRequest imports a Google Sheets range as a dataset
type SheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,max=128,printascii"`
	Range         string `json:"range" validate:"omitempty,max=128"`
}

// ComputeRequest selects the products a computation sums over. A missing
// products key selects every product; an empty list is rejected.
type ComputeRequest struct {
	Products *[]string `json:"products,omitempty" validate:"omitempty,max=1000,dive,product"`
}

// Selection returns the requested selection with each name trimmed, nil
// when products was omitted
func (r ComputeRequest) Selection() domain.Selection {
	if r.Products == nil {
		return nil
	}
	selection := make(domain.Selection, len(*r.Products))
	for i, p := range *r.Products {
		selection[i] = strings.TrimSpace(p)
	}
	return selection
}
