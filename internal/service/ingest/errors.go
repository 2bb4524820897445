package ingest

import "errors"

// Sentinel errors for the ingestion service layer.
var (
	ErrWrongNotificationType = errors.New("unexpected notification type")
	ErrRecordNotFound        = errors.New("ledger record not found")
	ErrDuplicateRecord       = errors.New("ledger record already exists")
)
