package moderation

import (
	"net"
	"net/url"
	"strings"
)

// Пороги эвристической оценки
const (
	// FlagThreshold с этого балла ссылка считается подозрительной
	FlagThreshold = 40
)

// Известные сервисы-сокращатели: вложенный редирект скрывает реальное назначение
var shortenerDomains = map[string]struct{}{
	"bit.ly":      {},
	"tinyurl.com": {},
	"t.co":        {},
	"goo.gl":      {},
	"is.gd":       {},
	"ow.ly":       {},
	"buff.ly":     {},
	"rebrand.ly":  {},
	"cutt.ly":     {},
}

// TLD с непропорционально высокой долей абьюза
var suspiciousTLDs = map[string]struct{}{
	"zip":   {},
	"mov":   {},
	"click": {},
	"top":   {},
	"xyz":   {},
	"tk":    {},
	"gq":    {},
	"ml":    {},
	"cf":    {},
}

// Ключевые подстроки, характерные для фишинга и скама
var blacklistedKeywords = []string{
	"malware",
	"phishing",
	"password-reset",
	"verify-account",
	"free-money",
	"crypto-giveaway",
}

// ScoreResult результат эвристической оценки назначения
type ScoreResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	Flagged bool     `json:"flagged"`
	Reason  string   `json:"reason,omitempty"`
}

// Score оценивает строку назначения на признаки абьюза.
// Правила аддитивны и независимы: совпавшие срабатывают все одновременно.
func Score(raw string) ScoreResult {
	if raw == "" {
		return finalize(100, []string{"empty"})
	}

	score := 0
	var reasons []string

	u, err := url.Parse(raw)
	if err != nil {
		u = &url.URL{}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		score += 50
		reasons = append(reasons, "non-http scheme")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		score += 60
		reasons = append(reasons, "missing host")
	} else {
		if _, ok := shortenerDomains[host]; ok {
			score += 40
			reasons = append(reasons, "shortener domain")
		}
		if idx := strings.LastIndex(host, "."); idx >= 0 {
			if _, ok := suspiciousTLDs[host[idx+1:]]; ok {
				score += 15
				reasons = append(reasons, "suspicious tld")
			}
		}
		if strings.HasPrefix(host, "xn--") {
			score += 20
			reasons = append(reasons, "punycode host")
		}
		if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
			score += 25
			reasons = append(reasons, "ip literal host")
		}
	}

	lower := strings.ToLower(raw)
	for _, kw := range blacklistedKeywords {
		if strings.Contains(lower, kw) {
			// Учитывается только первое совпадение
			score += 20
			reasons = append(reasons, "blacklisted keyword")
			break
		}
	}

	return finalize(score, reasons)
}

// finalize собирает итог: дедупликация причин и человекочитаемая
// строка заполняются только для подозрительных ссылок
func finalize(score int, reasons []string) ScoreResult {
	res := ScoreResult{
		Score:   score,
		Reasons: dedup(reasons),
		Flagged: score >= FlagThreshold,
	}
	if res.Flagged {
		res.Reason = strings.Join(res.Reasons, ", ")
	}
	return res
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
