// Package events defines the payloads the cuadres service publishes through its outbox.
package events

import "time"

// TransactionRecorded is emitted when a cashier movement is stored.
type TransactionRecorded struct {
	TransactionID string    `json:"transaction_id"`
	CuadreID      string    `json:"cuadre_id"`
	AgencyID      string    `json:"agency_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	BusinessDate  string    `json:"business_date"`
	Currency      string    `json:"currency"`
	Amount        int64     `json:"amount"`
	SystemCode    string    `json:"system_code,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// CuadreReviewed is emitted when a cuadre is approved or rejected.
type CuadreReviewed struct {
	CuadreID     string    `json:"cuadre_id"`
	AgencyID     string    `json:"agency_id"`
	UserID       string    `json:"user_id"`
	BusinessDate string    `json:"business_date"`
	FromStatus   string    `json:"from_status"`
	Status       string    `json:"status"`
	ReviewedBy   string    `json:"reviewed_by"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	Observations *string   `json:"observations,omitempty"`
}

// SyncRequested asks the external sync workflow to run.
type SyncRequested struct {
	RequestID   string    `json:"request_id"`
	RequestedBy string    `json:"requested_by"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}
