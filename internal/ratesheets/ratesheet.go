// Package ratesheets tracks lender rate-sheet files from intake through
// extraction and catalog application. Each sheet moves through a strict
// state machine; the coordinator drains pending sheets on a tick loop
// with at most one in-flight sheet per lender.
package ratesheets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/repository"
)

// State is a rate sheet's position in the processing lifecycle.
type State string

// Lifecycle states. Legal transitions: received -> pending ->
// processing -> processed | failed, and failed -> pending on manual
// retry. All transitions are compare-and-swap on the prior state.
const (
	StateReceived   State = "received"
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateProcessed  State = "processed"
	StateFailed     State = "failed"
)

// RateSheet is one submitted rate-sheet file and its processing record.
type RateSheet struct {
	ID            uuid.UUID            `json:"id"`
	LenderID      uuid.UUID            `json:"lender_id"`
	Filename      string               `json:"filename"`
	ContentType   string               `json:"content_type"`
	ContentHash   string               `json:"content_hash"`
	StorageKey    string               `json:"storage_key"`
	State         State                `json:"state"`
	Backend       *string              `json:"backend"`
	EffectiveDate *time.Time           `json:"effective_date"`
	Log           repository.StringSet `json:"log"`
	Error         *string              `json:"error"`
	ReceivedAt    time.Time            `json:"received_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ProcessedAt   *time.Time           `json:"processed_at"`
}

// SubmitCommand carries a rate-sheet file into the system.
type SubmitCommand struct {
	LenderID    uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
}

// HashContent returns the hex SHA-256 of a sheet's bytes. Identical
// content always produces the same storage key and duplicate check.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StorageKey builds the blob key for a sheet file.
func StorageKey(lenderID uuid.UUID, contentHash, filename string) string {
	return fmt.Sprintf("ratesheets/%s/%s/%s", lenderID, contentHash, filename)
}
