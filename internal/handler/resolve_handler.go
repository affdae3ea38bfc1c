package handler

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/Man0dya/qrlink/internal/models"
	"github.com/Man0dya/qrlink/internal/repository"
	"github.com/Man0dya/qrlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResolveHandler публичная точка входа резолва: host + code -> редирект
// или отрендеренная полезная нагрузка
type ResolveHandler struct {
	resolver service.Resolver
	logger   *zap.Logger
}

func NewResolveHandler(resolver service.Resolver, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve обрабатывает GET /:code. Терминальные исходы отдаются
// человекочитаемым текстом: 404 для несуществующих кодов, 410 для
// отключённых и истёкших (с различимым сообщением).
func (h *ResolveHandler) Resolve(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Short code is required")
		return
	}

	meta := service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}

	resolution, err := h.resolver.Resolve(c.Request.Context(), c.Request.Host, code, meta)
	if err != nil {
		switch err {
		case repository.ErrLinkNotFound:
			c.String(http.StatusNotFound, "Link not found")
		case service.ErrLinkInactive:
			c.String(http.StatusGone, "This link has been disabled")
		case service.ErrLinkExpired:
			c.String(http.StatusGone, "This link has expired")
		default:
			h.logger.Error("Failed to resolve link", zap.String("code", code), zap.Error(err))
			c.String(http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	switch resolution.Kind {
	case service.KindVCard:
		h.renderVCard(c, resolution)
	case service.KindBio:
		h.renderBio(c, resolution)
	case service.KindWifi:
		h.renderWifi(c, resolution)
	default:
		c.Redirect(resolution.RedirectCode, resolution.Destination)
	}
}

// renderVCard отдаёт контакт как скачиваемый .vcf (vCard 3.0)
func (h *ResolveHandler) renderVCard(c *gin.Context, res *service.Resolution) {
	payload, ok := res.Payload.(*models.VCardPayload)
	if !ok {
		c.String(http.StatusInternalServerError, "Something went wrong")
		return
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCARD\r\nVERSION:3.0\r\n")
	fmt.Fprintf(&b, "FN:%s\r\n", vcardEscape(payload.FullName))
	if payload.Organization != "" {
		fmt.Fprintf(&b, "ORG:%s\r\n", vcardEscape(payload.Organization))
	}
	if payload.Title != "" {
		fmt.Fprintf(&b, "TITLE:%s\r\n", vcardEscape(payload.Title))
	}
	if payload.Phone != "" {
		fmt.Fprintf(&b, "TEL;TYPE=CELL:%s\r\n", vcardEscape(payload.Phone))
	}
	if payload.Email != "" {
		fmt.Fprintf(&b, "EMAIL:%s\r\n", vcardEscape(payload.Email))
	}
	if payload.Website != "" {
		fmt.Fprintf(&b, "URL:%s\r\n", vcardEscape(payload.Website))
	}
	b.WriteString("END:VCARD\r\n")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Link.ShortCode+".vcf"))
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", []byte(b.String()))
}

// renderBio отдаёт био-страницу простым HTML
func (h *ResolveHandler) renderBio(c *gin.Context, res *service.Resolution) {
	payload, ok := res.Payload.(*models.BioPayload)
	if !ok {
		c.String(http.StatusInternalServerError, "Something went wrong")
		return
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&b, "<title>%s</title></head><body>", html.EscapeString(payload.Title))
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(payload.Title))
	if payload.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(payload.Description))
	}
	b.WriteString("<ul>")
	for _, entry := range payload.Links {
		fmt.Fprintf(&b, "<li><a href=%q>%s</a></li>",
			entry.URL, html.EscapeString(entry.Label))
	}
	b.WriteString("</ul></body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

// renderWifi отдаёт параметры сети простым HTML
func (h *ResolveHandler) renderWifi(c *gin.Context, res *service.Resolution) {
	payload, ok := res.Payload.(*models.WifiPayload)
	if !ok {
		c.String(http.StatusInternalServerError, "Something went wrong")
		return
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Wi-Fi</title></head><body>")
	fmt.Fprintf(&b, "<h1>Wi-Fi: %s</h1>", html.EscapeString(payload.SSID))
	if payload.Security != "" {
		fmt.Fprintf(&b, "<p>Security: %s</p>", html.EscapeString(payload.Security))
	}
	if payload.Password != "" {
		fmt.Fprintf(&b, "<p>Password: <code>%s</code></p>", html.EscapeString(payload.Password))
	}
	if payload.Hidden {
		b.WriteString("<p>Hidden network</p>")
	}
	b.WriteString("</body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(b.String()))
}

// vcardEscape экранирует спецсимволы по RFC 6350
func vcardEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\n", "\\n", ",", "\\,", ";", "\\;")
	return r.Replace(s)
}
