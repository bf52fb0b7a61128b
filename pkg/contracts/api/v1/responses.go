package api

import (
	"incomestatement/pkg/contracts/domain"
)

// DatasetResponse wraps a dataset summary
type DatasetResponse struct {
	Status string                `json:"status"`
	Data   domain.DatasetSummary `json:"data"`
}

// ProductsResponse lists the products of a dataset in first-seen order
type ProductsResponse struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
	Count  int      `json:"count"`
}

// ComputeData pairs the raw result with its presentation
type ComputeData struct {
	Result *domain.ResultSet `json:"result"`
	View   interface{}       `json:"view"`
}

// ComputeResponse is the body of a successful computation
type ComputeResponse struct {
	Status string      `json:"status"`
	Data   ComputeData `json:"data"`
}
