package service

import (
	"strings"
)

// UAInfo результат классификации User-Agent
type UAInfo struct {
	DeviceType string
	OS         string
	Browser    string
	IsBot      bool
}

// Маркеры ботов и превью-краулеров платформ
var botMarkers = []string{
	"bot",
	"spider",
	"crawler",
	"preview",
	"headless",
	"facebookexternalhit",
	"slackbot",
	"telegrambot",
	"whatsapp",
	"discordbot",
}

// ClassifyUserAgent классифицирует User-Agent упорядоченными
// правилами по подстрокам: порядок проверок значим
func ClassifyUserAgent(ua string) UAInfo {
	lower := strings.ToLower(ua)

	info := UAInfo{
		DeviceType: classifyDevice(lower),
		OS:         classifyOS(lower),
		Browser:    classifyBrowser(lower),
	}

	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			info.IsBot = true
			break
		}
	}

	return info
}

func classifyDevice(lower string) string {
	switch {
	// iPad и Android-планшеты надо ловить до mobile: их UA содержит оба маркера
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return "tablet"
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func classifyOS(lower string) string {
	switch {
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"),
		strings.Contains(lower, "ios"):
		return "iOS"
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "mac os"), strings.Contains(lower, "macintosh"):
		return "macOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return "Other"
	}
}

func classifyBrowser(lower string) string {
	switch {
	// Edge и Opera содержат "chrome" в UA, проверяются раньше
	case strings.Contains(lower, "edg/"), strings.Contains(lower, "edge"):
		return "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		return "Opera"
	case strings.Contains(lower, "firefox"):
		return "Firefox"
	case strings.Contains(lower, "chrome"):
		return "Chrome"
	// Chrome тоже содержит "safari", поэтому Safari проверяется последним
	case strings.Contains(lower, "safari"):
		return "Safari"
	default:
		return "Other"
	}
}
