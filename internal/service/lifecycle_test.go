package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/Man0dya/qrlink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	owner = models.Actor{ID: "user-1", Role: models.RoleUser}
)

// setupLifecycle создаёт сервис жизненного цикла с одной ссылкой в заданном статусе
func setupLifecycle(t *testing.T, status models.LinkStatus) (service.LifecycleService, *mocks.MockLinkRepository, *mocks.MockAuditRepository, *models.Link) {
	t.Helper()
	linkRepo := mocks.NewMockLinkRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	auditRepo := mocks.NewMockAuditRepository()
	logger, _ := zap.NewDevelopment()
	audit := service.NewAuditLogger(auditRepo, logger)
	svc := service.NewLifecycleService(linkRepo, cacheRepo, audit, logger)

	link := &models.Link{
		ShortCode:             "testcode",
		DestinationURL:        "https://example.com",
		OwnerID:               owner.ID,
		Status:                status,
		ApprovalRequestStatus: models.ApprovalNone,
		RedirectType:          models.RedirectTemporary,
		CreatedAt:             time.Now(),
	}
	require.NoError(t, linkRepo.Create(context.Background(), link))
	return svc, linkRepo, auditRepo, link
}

// TestLifecycle_AdminBanActivate проверяет безусловные админские переходы статуса
func TestLifecycle_AdminBanActivate(t *testing.T) {
	svc, _, auditRepo, _ := setupLifecycle(t, models.StatusActive)
	ctx := context.Background()

	link, err := svc.Moderate(ctx, admin, "testcode", models.ActionBan, "abuse report", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusBanned, link.Status)

	link, err = svc.Moderate(ctx, admin, "testcode", models.ActionActivate, "", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, link.Status)

	// Каждый переход аудируется ровно один раз, с актором
	entries := auditRepo.Entries()
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, admin.ID, *entries[0].ActorID)
	assert.Equal(t, "admin:ban", entries[0].Action)
	assert.Equal(t, "admin:activate", entries[1].Action)
}

// TestLifecycle_AdminFlagClearFlag проверяет флаг с паузой и его снятие
func TestLifecycle_AdminFlagClearFlag(t *testing.T) {
	svc, _, _, _ := setupLifecycle(t, models.StatusActive)
	ctx := context.Background()

	link, err := svc.Moderate(ctx, admin, "testcode", models.ActionFlag, "looks fishy", "203.0.113.5")
	require.NoError(t, err)
	assert.True(t, link.IsFlagged)
	assert.Equal(t, models.StatusPaused, link.Status)
	require.NotNil(t, link.FlagReason)
	assert.Equal(t, "looks fishy", *link.FlagReason)

	link, err = svc.Moderate(ctx, admin, "testcode", models.ActionClearFlag, "", "203.0.113.5")
	require.NoError(t, err)
	assert.False(t, link.IsFlagged)
	assert.Nil(t, link.FlagReason)
	assert.Equal(t, models.StatusActive, link.Status)
}

// TestLifecycle_NonAdminRejected проверяет отказ не-админу на админских переходах
func TestLifecycle_NonAdminRejected(t *testing.T) {
	svc, _, auditRepo, _ := setupLifecycle(t, models.StatusActive)
	ctx := context.Background()

	_, err := svc.Moderate(ctx, owner, "testcode", models.ActionBan, "", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Empty(t, auditRepo.Entries())
}

// TestLifecycle_AppealDenyFlow проверяет сценарий: пауза -> апелляция ->
// отказ (статус не меняется) -> повторная апелляция запрещена
func TestLifecycle_AppealDenyFlow(t *testing.T) {
	svc, _, _, _ := setupLifecycle(t, models.StatusPaused)
	ctx := context.Background()

	link, err := svc.RequestApproval(ctx, owner, "testcode", "fixed", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRequested, link.ApprovalRequestStatus)
	require.NotNil(t, link.ApprovalNote)
	assert.Equal(t, "fixed", *link.ApprovalNote)

	link, err = svc.Moderate(ctx, admin, "testcode", models.ActionDenyRequest, "", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalDenied, link.ApprovalRequestStatus)
	// Отказ не трогает статус
	assert.Equal(t, models.StatusPaused, link.Status)

	// Канал одноразовый: вторая апелляция всегда отвергается
	_, err = svc.RequestApproval(ctx, owner, "testcode", "please", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrGuardViolation)
}

// TestLifecycle_AppealApprove проверяет восстановление при одобрении
func TestLifecycle_AppealApprove(t *testing.T) {
	svc, linkRepo, _, link := setupLifecycle(t, models.StatusPaused)
	ctx := context.Background()

	// Ссылка была флагнута при модерации
	require.NoError(t, linkRepo.SetFlag(ctx, link.ID, "shortener domain"))

	_, err := svc.RequestApproval(ctx, owner, "testcode", "switched to direct url", "203.0.113.5")
	require.NoError(t, err)

	resolved, err := svc.Moderate(ctx, admin, "testcode", models.ActionApproveRequest, "", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, resolved.ApprovalRequestStatus)
	assert.Equal(t, models.StatusActive, resolved.Status)
	assert.False(t, resolved.IsFlagged)
	assert.Nil(t, resolved.FlagReason)
}

// TestLifecycle_AppealGuards проверяет ограждения одноразового канала
func TestLifecycle_AppealGuards(t *testing.T) {
	ctx := context.Background()

	// Апелляция на активной ссылке запрещена
	svc, _, _, _ := setupLifecycle(t, models.StatusActive)
	_, err := svc.RequestApproval(ctx, owner, "testcode", "why not", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrGuardViolation)

	// Разрешение без заявки запрещено
	svc, _, _, _ = setupLifecycle(t, models.StatusPaused)
	_, err = svc.Moderate(ctx, admin, "testcode", models.ActionApproveRequest, "", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrGuardViolation)

	// Двойное разрешение запрещено
	svc, _, _, _ = setupLifecycle(t, models.StatusPaused)
	_, err = svc.RequestApproval(ctx, owner, "testcode", "fixed", "203.0.113.5")
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, admin, "testcode", models.ActionApproveRequest, "", "203.0.113.5")
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, admin, "testcode", models.ActionDenyRequest, "", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrGuardViolation)
}

// TestLifecycle_AppealNotOwner проверяет отказ чужому пользователю на апелляции
func TestLifecycle_AppealNotOwner(t *testing.T) {
	svc, _, _, _ := setupLifecycle(t, models.StatusPaused)
	ctx := context.Background()

	stranger := models.Actor{ID: "user-2", Role: models.RoleUser}
	_, err := svc.RequestApproval(ctx, stranger, "testcode", "mine now", "203.0.113.5")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

// TestLifecycle_ConcurrentAppeals проверяет, что из конкурентных апелляций
// проходит ровно одна (условная запись)
func TestLifecycle_ConcurrentAppeals(t *testing.T) {
	svc, _, _, _ := setupLifecycle(t, models.StatusPaused)
	ctx := context.Background()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := svc.RequestApproval(ctx, owner, "testcode", "race", "203.0.113.5")
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < n; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrGuardViolation)
		}
	}
	assert.Equal(t, 1, succeeded)
}
