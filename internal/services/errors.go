package services

import "errors"

// Service errors
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrUploadTooLarge  = errors.New("upload exceeds size limit")

	// Sheets import errors
	ErrSheetsDisabled = errors.New("google sheets import is disabled")
)
