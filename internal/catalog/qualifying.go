package catalog

import (
	"time"

	"github.com/google/uuid"
)

// QualifyingInfo is a stored borrower profile used for reverse matching.
// Records are immutable once stored.
type QualifyingInfo struct {
	ID           uuid.UUID `json:"id"`
	PropertyType string    `json:"property_type"`
	Occupancy    string    `json:"occupancy"`
	Region       string    `json:"region"`
	Purpose      string    `json:"purpose"`
	EntityType   string    `json:"entity_type"`
	LoanAmount   float64   `json:"loan_amount"`
	LTV          float64   `json:"ltv"`
	FICO         int       `json:"fico"`
	CreatedAt    time.Time `json:"created_at"`
}

// QualifyingInfoCommand carries the data needed to store a qualifying profile.
type QualifyingInfoCommand struct {
	PropertyType string  `json:"property_type"`
	Occupancy    string  `json:"occupancy"`
	Region       string  `json:"region"`
	Purpose      string  `json:"purpose"`
	EntityType   string  `json:"entity_type"`
	LoanAmount   float64 `json:"loan_amount"`
	LTV          float64 `json:"ltv"`
	FICO         int     `json:"fico"`
}

// Query converts the stored profile into the shared matching predicate.
func (q *QualifyingInfo) Query() OfferingQuery {
	return OfferingQuery{
		Region:       q.Region,
		Purpose:      q.Purpose,
		PropertyType: q.PropertyType,
		Occupancy:    q.Occupancy,
		EntityType:   q.EntityType,
		LoanAmount:   q.LoanAmount,
		LTV:          q.LTV,
		FICO:         q.FICO,
	}
}
