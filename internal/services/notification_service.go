// internal/services/notification_service.go
package services

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chaincert/chaincert-backend/internal/models"
	"github.com/chaincert/chaincert-backend/internal/registry"
)

// NotificationService consumes registry events: every event is logged
// with structured fields and appended to the registry_events table so
// off-chain consumers can reconstruct history. DB writes are
// asynchronous and best-effort; they never block a state transition.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Publish(event registry.Event) {
	fields := logrus.Fields{"event": event.EventName()}
	payload := eventPayload(event)
	for k, v := range payload {
		fields[k] = v
	}
	logrus.WithFields(fields).Info("Registry event emitted")

	if s.db == nil {
		return
	}

	record := &models.RegistryEvent{
		EventName: event.EventName(),
		TokenID:   eventTokenID(event),
		Payload:   models.JSONB(payload),
	}

	go func() {
		if err := s.db.Create(record).Error; err != nil {
			logrus.WithError(err).Error("Failed to persist registry event")
		}
	}()
}

// eventPayload round-trips the event through JSON so the stored field
// names match the published wire format exactly.
func eventPayload(event registry.Event) map[string]interface{} {
	data, err := json.Marshal(event)
	if err != nil {
		return nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	return payload
}

func eventTokenID(event registry.Event) uint64 {
	switch e := event.(type) {
	case registry.ProductMinted:
		return e.TokenID
	case registry.ProductClaimed:
		return e.TokenID
	case registry.ProductListedForSale:
		return e.TokenID
	case registry.ProductSold:
		return e.TokenID
	default:
		return 0
	}
}
