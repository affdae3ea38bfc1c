package models

import (
	"encoding/json"
	"time"
)

// LinkStatus статус жизненного цикла ссылки
type LinkStatus string

const (
	StatusActive LinkStatus = "active"
	StatusPaused LinkStatus = "paused"
	StatusBanned LinkStatus = "banned"
	// StatusExpired вычисляется при резолве из expires_at, в БД не хранится
	StatusExpired LinkStatus = "expired"
)

// ApprovalStatus статус апелляции владельца. Канал одноразовый:
// после выхода из "none" возврат назад невозможен.
type ApprovalStatus string

const (
	ApprovalNone      ApprovalStatus = "none"
	ApprovalRequested ApprovalStatus = "requested"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalDenied    ApprovalStatus = "denied"
)

// QRType тип сканируемой сущности
type QRType string

const (
	QRTypeURL   QRType = "url"
	QRTypeVCard QRType = "vcard"
	QRTypeBio   QRType = "bio"
	QRTypeWifi  QRType = "wifi"
)

// Допустимые типы редиректа
const (
	RedirectPermanent = 301
	RedirectTemporary = 302
)

// Link резолвящаяся сущность: обычная короткая ссылка или QR-объект
type Link struct {
	ID             int64           `json:"id"`
	ShortCode      string          `json:"short_code"`
	DestinationURL string          `json:"destination_url"`
	QRType         *QRType         `json:"qr_type,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	// ChainedLinkID короткая ссылка, через которую резолвится QR (QR-backed-by-short-link)
	ChainedLinkID  *int64     `json:"chained_link_id,omitempty"`
	CustomDomainID *int64     `json:"custom_domain_id,omitempty"`
	OwnerID        string     `json:"owner_id"`
	Status         LinkStatus `json:"status"`
	IsFlagged      bool       `json:"is_flagged"`
	FlagReason     *string    `json:"flag_reason,omitempty"`
	FlaggedAt      *time.Time `json:"flagged_at,omitempty"`

	ApprovalRequestStatus ApprovalStatus `json:"approval_request_status"`
	ApprovalNote          *string        `json:"approval_note,omitempty"`

	RedirectType int        `json:"redirect_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsExpired проверяет, истекла ли ссылка на момент now
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// DestinationVariant взвешенный A/B-вариант назначения
type DestinationVariant struct {
	ID             int64     `json:"id"`
	LinkID         int64     `json:"link_id"`
	DestinationURL string    `json:"destination_url"`
	WeightPercent  int       `json:"weight_percent"`
	IsActive       bool      `json:"is_active"`
	Position       int       `json:"position"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateLinkInput входные данные создания ссылки
type CreateLinkInput struct {
	DestinationURL string
	CustomCode     *string
	CustomDomainID *int64
	RedirectType   *int
	ExpiresIn      *int // минуты
	OwnerID        string
}

// CustomDomain зарегистрированный пользовательский домен
type CustomDomain struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	IsActive  bool      `json:"is_active"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
