package models

import (
	"time"
)

// Click записанное событие клика/сканирования (append-only)
type Click struct {
	ID              int64     `json:"id"`
	LinkID          int64     `json:"link_id"`
	OriginatingQRID *int64    `json:"originating_qr_id,omitempty"`
	ShortCode       string    `json:"short_code"`
	IPAddress       string    `json:"ip_address"`
	Country         string    `json:"country"`
	UserAgent       string    `json:"user_agent"`
	Referer         string    `json:"referer"`
	DeviceType      string    `json:"device_type"`
	OS              string    `json:"os"`
	Browser         string    `json:"browser"`
	IsBot           bool      `json:"is_bot"`
	ClickedAt       time.Time `json:"clicked_at"`
}

// ClickEvent сырое событие из Resolver до классификации и geo-lookup
type ClickEvent struct {
	LinkID          int64
	OriginatingQRID *int64
	ShortCode       string
	IPAddress       string
	UserAgent       string
	Referer         string
}

// ClickStats агрегированная статистика по коду
type ClickStats struct {
	ShortCode    string `json:"short_code"`
	TotalClicks  int64  `json:"total_clicks"`
	UniqueClicks int64  `json:"unique_clicks"`
	BotClicks    int64  `json:"bot_clicks"`
}

// DailyClickStats статистика за день
type DailyClickStats struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}
