package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role роль аутентифицированного актора (приходит извне вместе с идентичностью)
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor аутентифицированный инициатор операции. Передаётся явно
// в каждую операцию жизненного цикла вместо глобального состояния сессии.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin проверяет админскую возможность
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AdminAction закрытый набор модерационных действий админа
type AdminAction string

const (
	ActionBan            AdminAction = "ban"
	ActionActivate       AdminAction = "activate"
	ActionFlag           AdminAction = "flag"
	ActionClearFlag      AdminAction = "clear_flag"
	ActionApproveRequest AdminAction = "approve_request"
	ActionDenyRequest    AdminAction = "deny_request"
)

// ErrInvalidAction неизвестное модерационное действие
var ErrInvalidAction = errors.New("invalid admin action")

// ParseAdminAction валидирует строковое действие при конструировании,
// чтобы невалидные имена отсекались до какого-либо изменения состояния
func ParseAdminAction(s string) (AdminAction, error) {
	switch AdminAction(s) {
	case ActionBan, ActionActivate, ActionFlag, ActionClearFlag,
		ActionApproveRequest, ActionDenyRequest:
		return AdminAction(s), nil
	default:
		return "", ErrInvalidAction
	}
}

// AuditEntry неизменяемая запись об изменяющем состояние действии.
// ActorID == nil означает автоматическое (системное) действие.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	CreatedAt  time.Time      `json:"created_at"`
}
