// internal/models/event.go
package models

// RegistryEvent is one row of the append-only notification log. Off-chain
// consumers reconstruct ownership history from these rows, so Payload
// keeps the exact field set each registry event was emitted with.
type RegistryEvent struct {
	BaseModel
	EventName string `json:"event_name" gorm:"size:50;not null;index"`
	TokenID   uint64 `json:"token_id" gorm:"not null;index"`
	Payload   JSONB  `json:"payload" gorm:"type:jsonb"`
}
