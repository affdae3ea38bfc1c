package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Man0dya/qrlink/internal/middleware"
	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service        service.LinkService
	lifecycle      service.LifecycleService
	clickProcessor service.ClickProcessor
	logger         *zap.Logger
}

func NewLinkHandler(
	service service.LinkService,
	lifecycle service.LifecycleService,
	clickProcessor service.ClickProcessor,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		service:        service,
		lifecycle:      lifecycle,
		clickProcessor: clickProcessor,
		logger:         logger,
	}
}

type CreateLinkRequest struct {
	URL            string `json:"url" binding:"required"`
	CustomCode     string `json:"custom_code,omitempty"`
	CustomDomainID *int64 `json:"custom_domain_id,omitempty"`
	RedirectType   *int   `json:"redirect_type,omitempty"`
	ExpiresIn      *int   `json:"expires_in,omitempty"`
}

type LinkResponse struct {
	ShortCode      string     `json:"short_code"`
	DestinationURL string     `json:"destination_url"`
	Status         string     `json:"status"`
	IsFlagged      bool       `json:"is_flagged"`
	FlagReason     *string    `json:"flag_reason,omitempty"`
	ApprovalStatus string     `json:"approval_request_status"`
	RedirectType   int        `json:"redirect_type"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type UpdateLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

type AppealRequest struct {
	Note string `json:"note,omitempty"`
}

type AddVariantRequest struct {
	URL    string `json:"url" binding:"required"`
	Weight int    `json:"weight" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toLinkResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		ShortCode:      link.ShortCode,
		DestinationURL: link.DestinationURL,
		Status:         string(link.Status),
		IsFlagged:      link.IsFlagged,
		FlagReason:     link.FlagReason,
		ApprovalStatus: string(link.ApprovalRequestStatus),
		RedirectType:   link.RedirectType,
		ExpiresAt:      link.ExpiresAt,
		CreatedAt:      link.CreatedAt,
	}
}

// CreateLink создаёт короткую ссылку. Вердикт модерации возвращается
// сразу в ответе: клиент видит paused/banned без дополнительного запроса.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	actor, _ := middleware.GetActor(c)

	input := &models.CreateLinkInput{
		DestinationURL: req.URL,
		CustomDomainID: req.CustomDomainID,
		RedirectType:   req.RedirectType,
		ExpiresIn:      req.ExpiresIn,
		OwnerID:        actor.ID,
	}
	if req.CustomCode != "" {
		input.CustomCode = &req.CustomCode
	}

	link, err := h.service.CreateLink(c.Request.Context(), input, c.ClientIP())
	if err != nil {
		h.logger.Error("Failed to create link", zap.Error(err))

		switch err {
		case service.ErrInvalidURL:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Invalid URL format",
			})
		case service.ErrInvalidCode:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_code",
				Message: "Custom code must be 4-32 characters of [A-Za-z0-9_-]",
			})
		case service.ErrInvalidDomain:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_domain",
				Message: "Custom domain is not owned by you or inactive",
			})
		case service.ErrInvalidRedirect:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_redirect",
				Message: "Redirect type must be 301 or 302",
			})
		case repository.ErrCodeExists:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "code_exists",
				Message: "Custom code is already taken",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to create link",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, toLinkResponse(link))
}

// GetLink возвращает ссылку по короткому коду (владельческий API)
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")

	link, err := h.service.GetLink(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link))
}

// UpdateLink меняет назначение; модерация прогоняется заново
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	code := c.Param("code")

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	actor, _ := middleware.GetActor(c)

	link, err := h.service.UpdateDestination(c.Request.Context(), actor, code, req.URL, c.ClientIP())
	if err != nil {
		switch err {
		case service.ErrInvalidURL:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Invalid URL format",
			})
		case service.ErrUnauthorized:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Link belongs to another owner",
			})
		case repository.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		default:
			h.logger.Error("Failed to update link", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to update link",
			})
		}
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link))
}

// DeleteLink удаляет ссылку владельца
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")
	actor, _ := middleware.GetActor(c)

	err := h.service.DeleteLink(c.Request.Context(), actor, code, c.ClientIP())
	if err != nil {
		switch err {
		case service.ErrUnauthorized:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Link belongs to another owner",
			})
		case repository.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		default:
			h.logger.Warn("Failed to delete link", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to delete link",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// RequestApproval одноразовая апелляция владельца приостановленной ссылки
func (h *LinkHandler) RequestApproval(c *gin.Context) {
	code := c.Param("code")

	var req AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	actor, _ := middleware.GetActor(c)

	link, err := h.lifecycle.RequestApproval(c.Request.Context(), actor, code, req.Note, c.ClientIP())
	if err != nil {
		switch err {
		case service.ErrGuardViolation:
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "appeal_rejected",
				Message: "Appeal is allowed once, and only for an inactive link",
			})
		case service.ErrUnauthorized:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Link belongs to another owner",
			})
		case repository.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		default:
			h.logger.Error("Failed to request approval", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to request approval",
			})
		}
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link))
}

// AddVariant добавляет взвешенный A/B-вариант назначения
func (h *LinkHandler) AddVariant(c *gin.Context) {
	code := c.Param("code")

	var req AddVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	actor, _ := middleware.GetActor(c)

	variant, err := h.service.AddVariant(c.Request.Context(), actor, code, req.URL, req.Weight)
	if err != nil {
		switch err {
		case service.ErrInvalidURL:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Invalid URL format",
			})
		case service.ErrInvalidWeight:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_weight",
				Message: "Weight must be 1-100 and active variants may not exceed 100 in total",
			})
		case service.ErrUnauthorized:
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Link belongs to another owner",
			})
		case repository.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		default:
			h.logger.Error("Failed to add variant", zap.String("code", code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to add variant",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, variant)
}

// GetStats получает статистику кликов для короткого кода
func (h *LinkHandler) GetStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.clickProcessor.GetStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to get stats", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDailyStats получает дневную статистику кликов
func (h *LinkHandler) GetDailyStats(c *gin.Context) {
	code := c.Param("code")
	days := 7
	if d := c.Query("days"); d != "" {
		if _, err := fmt.Sscanf(d, "%d", &days); err != nil || days < 1 || days > 90 {
			days = 7
		}
	}

	stats, err := h.clickProcessor.GetDailyStats(c.Request.Context(), code, days)
	if err != nil {
		h.logger.Warn("Failed to get daily stats", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
