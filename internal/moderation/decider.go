package moderation

import (
	"net/url"
	"strings"
)

// Action вердикт модерации
type Action string

const (
	ActionAllow Action = "allow"
	ActionPause Action = "pause"
	ActionBan   Action = "ban"
)

// Пороги score -> action
const (
	BanThreshold   = 70
	PauseThreshold = 40
)

// Чёрный список доменов по умолчанию. Расширяется через конфиг.
var defaultBlocklist = []string{
	"malware.com",
	"phishing.com",
	"spam.com",
}

// Decision результат модерации назначения
type Decision struct {
	Action Action `json:"action"`
	Score  int    `json:"score"`
	Reason string `json:"reason,omitempty"`
}

// Decider принимает решение по назначению на основе эвристического
// скоринга и поддерживаемого чёрного списка доменов
type Decider struct {
	blocklist map[string]struct{}
}

// NewDecider создаёт Decider. Пустой список доменов означает список по умолчанию.
func NewDecider(blockedDomains []string) *Decider {
	if len(blockedDomains) == 0 {
		blockedDomains = defaultBlocklist
	}
	bl := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			bl[d] = struct{}{}
		}
	}
	return &Decider{blocklist: bl}
}

// Decide выносит вердикт: домен из чёрного списка банится безусловно,
// иначе score >= 70 -> ban, score >= 40 -> pause, иначе allow
func (d *Decider) Decide(rawURL string) Decision {
	if host := hostOf(rawURL); host != "" {
		if _, ok := d.blocklist[host]; ok {
			return Decision{Action: ActionBan, Score: 100, Reason: "blocklisted domain"}
		}
	}

	res := Score(rawURL)
	switch {
	case res.Score >= BanThreshold:
		return Decision{Action: ActionBan, Score: res.Score, Reason: res.Reason}
	case res.Score >= PauseThreshold:
		return Decision{Action: ActionPause, Score: res.Score, Reason: res.Reason}
	default:
		return Decision{Action: ActionAllow, Score: res.Score}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
