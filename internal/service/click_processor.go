package service

import (
	"context"
	"sync"
	"time"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	maxRetries           = 3    // Максимальное количество попыток записи
)

// ClickProcessor интерфейс для асинхронного отслеживания кликов/сканирований
type ClickProcessor interface {
	Start()
	Stop()
	RecordClick(ctx context.Context, event *models.ClickEvent) error
	GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error)
	GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error)
}

// clickProcessor реализация процессора кликов с использованием Worker Pool.
// Классификация UA и geo-lookup выполняются на стороне воркера,
// чтобы не задерживать ответ резолвера.
type clickProcessor struct {
	clickRepo    repository.ClickRepository
	geo          GeoResolver
	logger       *zap.Logger
	clickChannel chan *models.ClickEvent // Канал для событий кликов
	workerCount  int                     // Количество воркеров
	wg           sync.WaitGroup          // WaitGroup для ожидания завершения воркеров
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(
	clickRepo repository.ClickRepository,
	geo GeoResolver,
	logger *zap.Logger,
) ClickProcessor {
	return &clickProcessor{
		clickRepo:    clickRepo,
		geo:          geo,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop корректно останавливает worker pool
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
			return

		case event, ok := <-p.clickChannel:
			if !ok {
				return
			}
			p.processClick(event)
		}
	}
}

// processClick классифицирует событие и пишет его в БД с retry логикой
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()

	ua := ClassifyUserAgent(event.UserAgent)

	// Geo-lookup с таймаутом; при сбое деградируем в Unknown
	country, err := p.geo.Country(ctx, event.IPAddress)
	if err != nil {
		p.logger.Debug("Geo lookup failed, falling back to Unknown",
			zap.String("ip", event.IPAddress),
			zap.Error(err),
		)
		country = CountryUnknown
	}

	click := &models.Click{
		LinkID:          event.LinkID,
		OriginatingQRID: event.OriginatingQRID,
		ShortCode:       event.ShortCode,
		IPAddress:       event.IPAddress,
		Country:         country,
		UserAgent:       event.UserAgent,
		Referer:         event.Referer,
		DeviceType:      ua.DeviceType,
		OS:              ua.OS,
		Browser:         ua.Browser,
		IsBot:           ua.IsBot,
		ClickedAt:       time.Now(),
	}

	// Retry логика для записи в БД
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = p.clickRepo.RecordClick(ctx, click); lastErr == nil {
			return
		}
		if i < maxRetries-1 {
			p.logger.Debug("Повторная попытка записи клика",
				zap.String("short_code", event.ShortCode),
				zap.Int("attempt", i+1),
				zap.Error(lastErr),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	p.logger.Error("Не удалось записать клик после всех попыток",
		zap.String("short_code", event.ShortCode),
		zap.Error(lastErr),
	)
}

// RecordClick отправляет событие клика в worker pool (неблокирующая операция)
func (p *clickProcessor) RecordClick(ctx context.Context, event *models.ClickEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- event:
		return nil
	default:
		// Канал заполнен, логируем предупреждение, но не блокируем запрос
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("short_code", event.ShortCode),
		)
		return nil // Не прерываем запрос, просто теряем статистику
	}
}

// GetStats получает статистику кликов для короткого кода
func (p *clickProcessor) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	return p.clickRepo.GetStats(ctx, shortCode)
}

// GetDailyStats получает дневную статистику кликов
func (p *clickProcessor) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	return p.clickRepo.GetDailyStats(ctx, shortCode, days)
}
