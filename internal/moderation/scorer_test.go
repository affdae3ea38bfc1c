package moderation_test

import (
	"testing"

	"github.com/Man0dya/qrlink/internal/moderation"
	"github.com/stretchr/testify/assert"
)

// TestScore_EmptyDestination проверяет короткое замыкание на пустой строке
func TestScore_EmptyDestination(t *testing.T) {
	res := moderation.Score("")

	assert.Equal(t, 100, res.Score)
	assert.True(t, res.Flagged)
	assert.Equal(t, []string{"empty"}, res.Reasons)
}

// TestScore_ShortenerDomains проверяет, что все известные сокращатели флагуются
func TestScore_ShortenerDomains(t *testing.T) {
	shorteners := []string{
		"https://bit.ly/promo",
		"https://tinyurl.com/abc",
		"http://t.co/xyz",
	}

	for _, u := range shorteners {
		res := moderation.Score(u)
		assert.GreaterOrEqual(t, res.Score, 40, "сокращатель должен набирать >= 40: %s", u)
		assert.True(t, res.Flagged, "сокращатель должен быть флагнут: %s", u)
		assert.NotEmpty(t, res.Reason)
	}
}

// TestScore_NonHTTPScheme проверяет надбавку за не-http схему
func TestScore_NonHTTPScheme(t *testing.T) {
	for _, u := range []string{"ftp://example.com/file", "javascript:alert(1)", "mailto:a@b.com"} {
		res := moderation.Score(u)
		assert.GreaterOrEqual(t, res.Score, 50, "не-http схема должна набирать >= 50: %s", u)
	}
}

// TestScore_AdditiveRules проверяет, что независимые правила суммируются
func TestScore_AdditiveRules(t *testing.T) {
	// ftp (+50) + IPv4-литерал (+25) = 75
	res := moderation.Score("ftp://192.0.2.10/file")
	assert.Equal(t, 75, res.Score)
	assert.Contains(t, res.Reasons, "non-http scheme")
	assert.Contains(t, res.Reasons, "ip literal host")
}

// TestScore_SuspiciousTLD проверяет надбавку за подозрительный TLD
func TestScore_SuspiciousTLD(t *testing.T) {
	res := moderation.Score("https://example.zip/download")
	assert.Equal(t, 15, res.Score)
	assert.False(t, res.Flagged)
	assert.Empty(t, res.Reason)
}

// TestScore_PunycodeHost проверяет надбавку за punycode-хост
func TestScore_PunycodeHost(t *testing.T) {
	res := moderation.Score("https://xn--e1afmkfd.xyz/x")
	// punycode (+20) + подозрительный TLD (+15)
	assert.Equal(t, 35, res.Score)
}

// TestScore_BlacklistedKeyword проверяет, что учитывается только первое совпадение
func TestScore_BlacklistedKeyword(t *testing.T) {
	res := moderation.Score("https://example.com/malware/phishing/verify-account")
	assert.Equal(t, 20, res.Score)
	assert.Equal(t, []string{"blacklisted keyword"}, res.Reasons)
}

// TestScore_MissingHost проверяет надбавку за отсутствие хоста
func TestScore_MissingHost(t *testing.T) {
	res := moderation.Score("https:///path-only")
	assert.GreaterOrEqual(t, res.Score, 60)
	assert.True(t, res.Flagged)
}

// TestScore_CleanURL проверяет, что чистые URL не флагуются
func TestScore_CleanURL(t *testing.T) {
	for _, u := range []string{
		"https://example.com",
		"https://github.com/user/repo",
		"http://news.ycombinator.com/item?id=1",
	} {
		res := moderation.Score(u)
		assert.Equal(t, 0, res.Score, "чистый URL не должен набирать баллы: %s", u)
		assert.False(t, res.Flagged)
		assert.Empty(t, res.Reason)
	}
}
