// internal/models/deposit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Deposit tracks one external payment that funds a ledger account.
type Deposit struct {
	BaseModel
	AccountID        uuid.UUID     `json:"account_id" gorm:"type:uuid;not null;index"`
	Amount           uint64        `json:"amount" gorm:"not null"`
	Status           DepositStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentReference string        `json:"payment_reference" gorm:"size:255;index"`
	ProcessedAt      *time.Time    `json:"processed_at"`

	// Relationships
	Account *Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`
}
