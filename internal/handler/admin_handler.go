package handler

import (
	"net/http"

	"github.com/Man0dya/qrlink/internal/middleware"
	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler админские операции модерации
type AdminHandler struct {
	lifecycle service.LifecycleService
	audit     repository.AuditRepository
	logger    *zap.Logger
}

func NewAdminHandler(lifecycle service.LifecycleService, audit repository.AuditRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		audit:     audit,
		logger:    logger,
	}
}

// auditTrailLimit верхняя граница числа возвращаемых записей аудита
const auditTrailLimit = 100

type ModerateRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// Moderate применяет админское действие к ссылке. Действие — закрытый
// перечислимый набор; неизвестное отвергается до обращения к сервису.
func (h *AdminHandler) Moderate(c *gin.Context) {
	code := c.Param("code")

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	action, err := models.ParseAdminAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_action",
			Message: "Unknown moderation action: " + req.Action,
		})
		return
	}

	actor, _ := middleware.GetActor(c)

	link, err := h.lifecycle.Moderate(c.Request.Context(), actor, code, action, req.Reason, c.ClientIP())
	if err != nil {
		switch err {
		case service.ErrUnauthorized:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Moderation requires an admin actor",
			})
		case service.ErrGuardViolation:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "guard_violation",
				Message: "Transition is not allowed in the current state",
			})
		case repository.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		default:
			h.logger.Error("Failed to moderate link",
				zap.String("code", code),
				zap.String("action", req.Action),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to moderate link",
			})
		}
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link))
}

// AuditTrail возвращает журнал аудита по ссылке (только чтение)
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	code := c.Param("code")

	entries, err := h.audit.ListByTarget(c.Request.Context(), service.TargetTypeLink, code, auditTrailLimit)
	if err != nil {
		h.logger.Error("Failed to read audit trail", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to read audit trail",
		})
		return
	}

	c.JSON(http.StatusOK, entries)
}
