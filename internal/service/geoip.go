package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Страны-заглушки для недоступного или локального geo-lookup
const (
	CountryUnknown = "Unknown"
	CountryLocal   = "Local"
)

// GeoResolver внешний коллаборатор ip -> страна
type GeoResolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

// httpGeoResolver HTTP-клиент geo-lookup сервиса с жёстким таймаутом
type httpGeoResolver struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewHTTPGeoResolver создаёт geo-lookup клиент. baseURL указывает на сервис,
// отвечающий JSON вида {"country": "NL"} по GET {baseURL}/{ip}.
func NewHTTPGeoResolver(baseURL string, timeout time.Duration) GeoResolver {
	return &httpGeoResolver{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (g *httpGeoResolver) Country(ctx context.Context, ip string) (string, error) {
	if isLocalIP(ip) {
		return CountryLocal, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+ip, nil)
	if err != nil {
		return CountryUnknown, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return CountryUnknown, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CountryUnknown, fmt.Errorf("geo lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return CountryUnknown, fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Country == "" {
		return CountryUnknown, nil
	}

	return body.Country, nil
}

// noopGeoResolver используется, когда geo-lookup не сконфигурирован
type noopGeoResolver struct{}

// NewNoopGeoResolver возвращает резолвер, всегда отвечающий Unknown/Local
func NewNoopGeoResolver() GeoResolver {
	return noopGeoResolver{}
}

func (noopGeoResolver) Country(_ context.Context, ip string) (string, error) {
	if isLocalIP(ip) {
		return CountryLocal, nil
	}
	return CountryUnknown, nil
}

func isLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && (parsed.IsLoopback() || parsed.IsPrivate())
}
