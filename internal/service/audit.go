package service

import (
	"context"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TargetTypeLink тип цели аудита для ссылок
const TargetTypeLink = "link"

// AuditLogger append-only журнал изменяющих состояние действий.
// Ошибка записи не возвращается вызывающему: она логируется и
// не блокирует основную операцию.
type AuditLogger struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

// NewAuditLogger создаёт новый журнал аудита
func NewAuditLogger(auditRepo repository.AuditRepository, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record пишет одну запись аудита. actorID == nil означает автоматическое действие.
func (a *AuditLogger) Record(ctx context.Context, actorID *string, action, targetType, targetID string, details map[string]any, ip string) {
	entry := &models.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		IPAddress:  ip,
		CreatedAt:  time.Now(),
	}

	if err := a.auditRepo.Create(ctx, entry); err != nil {
		a.logger.Warn("Failed to write audit entry",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}
