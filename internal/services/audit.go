package services

import (
	"time"

	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditService persists audit rows off the request path through a
// bounded queue. A full queue drops the entry rather than blocking the
// request.
type AuditService struct {
	DB    *gorm.DB
	queue chan models.AuditLog
}

func NewAuditService(db *gorm.DB, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = 1000
	}
	s := &AuditService{
		DB:    db,
		queue: make(chan models.AuditLog, queueSize),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}
