package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[int64]*models.Link
	byCode map[string]int64
	nextID int64
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[int64]*models.Link),
		byCode: make(map[string]int64),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	cp := *link
	m.links[link.ID] = &cp
	m.byCode[link.ShortCode] = link.ID
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byCode[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	cp := *m.links[id]
	return &cp, nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *MockLinkRepository) GetResolvable(ctx context.Context, code string, domainID *int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byCode[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	link := m.links[id]

	// Доменная изоляция как в SQL-запросе
	switch {
	case domainID == nil && link.CustomDomainID != nil:
		return nil, repository.ErrLinkNotFound
	case domainID != nil && (link.CustomDomainID == nil || *link.CustomDomainID != *domainID):
		return nil, repository.ErrLinkNotFound
	}

	cp := *link
	return &cp, nil
}

func (m *MockLinkRepository) UpdateModeration(ctx context.Context, id int64, destinationURL string, status models.LinkStatus, flagged bool, flagReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.DestinationURL = destinationURL
	link.Status = status
	link.IsFlagged = flagged
	link.FlagReason = flagReason
	if flagged {
		now := time.Now()
		link.FlaggedAt = &now
	} else {
		link.FlaggedAt = nil
	}
	link.ApprovalNote = nil
	return nil
}

func (m *MockLinkRepository) SetStatus(ctx context.Context, id int64, status models.LinkStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.Status = status
	return nil
}

func (m *MockLinkRepository) SetFlag(ctx context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	now := time.Now()
	link.IsFlagged = true
	link.FlagReason = &reason
	link.FlaggedAt = &now
	link.Status = models.StatusPaused
	return nil
}

func (m *MockLinkRepository) ClearFlag(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.IsFlagged = false
	link.FlagReason = nil
	link.FlaggedAt = nil
	link.Status = models.StatusActive
	return nil
}

func (m *MockLinkRepository) RequestApproval(ctx context.Context, id int64, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	// Условная запись как в SQL: none + неактивный статус
	if link.ApprovalRequestStatus != models.ApprovalNone || link.Status == models.StatusActive {
		return repository.ErrApprovalConflict
	}
	link.ApprovalRequestStatus = models.ApprovalRequested
	link.ApprovalNote = &note
	return nil
}

func (m *MockLinkRepository) ResolveApproval(ctx context.Context, id int64, approve bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists {
		return repository.ErrLinkNotFound
	}
	if link.ApprovalRequestStatus != models.ApprovalRequested {
		return repository.ErrApprovalConflict
	}
	if approve {
		link.ApprovalRequestStatus = models.ApprovalApproved
		link.Status = models.StatusActive
		link.IsFlagged = false
		link.FlagReason = nil
		link.FlaggedAt = nil
	} else {
		link.ApprovalRequestStatus = models.ApprovalDenied
	}
	return nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byCode[code]
	if !exists {
		return repository.ErrLinkNotFound
	}
	delete(m.links, id)
	delete(m.byCode, code)
	return nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[key]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// MockVariantRepository implements repository.VariantRepository for testing
type MockVariantRepository struct {
	mu       sync.RWMutex
	variants map[int64][]models.DestinationVariant
	// Err подставная ошибка выборки для проверки деградации селектора
	Err error
}

func NewMockVariantRepository() *MockVariantRepository {
	return &MockVariantRepository{
		variants: make(map[int64][]models.DestinationVariant),
	}
}

func (m *MockVariantRepository) Create(ctx context.Context, variant *models.DestinationVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	variant.ID = int64(len(m.variants[variant.LinkID]) + 1)
	m.variants[variant.LinkID] = append(m.variants[variant.LinkID], *variant)
	return nil
}

func (m *MockVariantRepository) GetActiveVariants(ctx context.Context, linkID int64) ([]models.DestinationVariant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	var out []models.DestinationVariant
	for _, v := range m.variants[linkID] {
		if v.IsActive && v.WeightPercent > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks []models.Click
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{}
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MockClickRepository) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.ClickStats{ShortCode: shortCode}
	uniqueIPs := make(map[string]bool)
	for _, click := range m.clicks {
		if click.ShortCode == shortCode {
			stats.TotalClicks++
			uniqueIPs[click.IPAddress] = true
			if click.IsBot {
				stats.BotClicks++
			}
		}
	}
	stats.UniqueClicks = int64(len(uniqueIPs))
	return stats, nil
}

func (m *MockClickRepository) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	return []models.DailyClickStats{}, nil
}

// Clicks возвращает копию записанных кликов
func (m *MockClickRepository) Clicks() []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Click, len(m.clicks))
	copy(out, m.clicks)
	return out
}

// MockAuditRepository implements repository.AuditRepository for testing
type MockAuditRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockAuditRepository) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.AuditEntry
	for _, e := range m.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entries возвращает копию всех записей аудита
func (m *MockAuditRepository) Entries() []models.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockDomainRepository implements repository.DomainRepository for testing
type MockDomainRepository struct {
	mu      sync.RWMutex
	domains map[int64]*models.CustomDomain
}

func NewMockDomainRepository() *MockDomainRepository {
	return &MockDomainRepository{
		domains: make(map[int64]*models.CustomDomain),
	}
}

// AddDomain регистрирует домен в моке
func (m *MockDomainRepository) AddDomain(domain *models.CustomDomain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[domain.ID] = domain
}

func (m *MockDomainRepository) GetActiveByHost(ctx context.Context, host string) (*models.CustomDomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.domains {
		if d.Host == host && d.IsActive {
			return d, nil
		}
	}
	return nil, repository.ErrDomainNotFound
}

func (m *MockDomainRepository) GetOwnedActive(ctx context.Context, id int64, ownerID string) (*models.CustomDomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.domains[id]
	if !exists || !d.IsActive || d.OwnerID != ownerID {
		return nil, repository.ErrDomainNotFound
	}
	return d, nil
}
