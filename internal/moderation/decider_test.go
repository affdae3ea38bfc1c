package moderation_test

import (
	"testing"

	"github.com/Man0dya/qrlink/internal/moderation"
	"github.com/stretchr/testify/assert"
)

// TestDecider_BlocklistedDomain проверяет безусловный бан доменов из чёрного списка
func TestDecider_BlocklistedDomain(t *testing.T) {
	d := moderation.NewDecider([]string{"evil.example"})

	dec := d.Decide("https://evil.example/landing")
	assert.Equal(t, moderation.ActionBan, dec.Action)
	assert.Equal(t, "blocklisted domain", dec.Reason)

	// Чистый домен того же вида проходит
	dec = d.Decide("https://good.example/landing")
	assert.Equal(t, moderation.ActionAllow, dec.Action)
}

// TestDecider_DefaultBlocklist проверяет встроенный список по умолчанию
func TestDecider_DefaultBlocklist(t *testing.T) {
	d := moderation.NewDecider(nil)

	dec := d.Decide("https://malware.com/bad")
	assert.Equal(t, moderation.ActionBan, dec.Action)
}

// TestDecider_BanThreshold проверяет бан при score >= 70
func TestDecider_BanThreshold(t *testing.T) {
	d := moderation.NewDecider(nil)

	// ftp (+50) + IPv4 (+25) = 75 -> ban
	dec := d.Decide("ftp://192.0.2.10/file")
	assert.Equal(t, moderation.ActionBan, dec.Action)
	assert.Equal(t, 75, dec.Score)
}

// TestDecider_PauseThreshold проверяет паузу при score в [40, 70)
func TestDecider_PauseThreshold(t *testing.T) {
	d := moderation.NewDecider(nil)

	// Сокращатель (+40) -> pause
	dec := d.Decide("http://bit.ly/promo")
	assert.Equal(t, moderation.ActionPause, dec.Action)
	assert.Equal(t, 40, dec.Score)
	assert.NotEmpty(t, dec.Reason)

	// Не-http схема (+50) — до бана не дотягивает
	dec = d.Decide("ftp://example.com/file")
	assert.Equal(t, moderation.ActionPause, dec.Action)
	assert.Equal(t, 50, dec.Score)
}

// TestDecider_Allow проверяет пропуск чистых URL без причины
func TestDecider_Allow(t *testing.T) {
	d := moderation.NewDecider(nil)

	dec := d.Decide("https://example.com/page")
	assert.Equal(t, moderation.ActionAllow, dec.Action)
	assert.Empty(t, dec.Reason)
}
