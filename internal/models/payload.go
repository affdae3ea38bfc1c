package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownQRType неизвестный тип QR-сущности
var ErrUnknownQRType = errors.New("unknown qr type")

// VCardPayload контактная карточка (qr_type=vcard)
type VCardPayload struct {
	FullName     string `json:"full_name"`
	Organization string `json:"organization,omitempty"`
	Title        string `json:"title,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
}

// BioEntry одна ссылка на био-странице
type BioEntry struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// BioPayload био-страница со списком ссылок (qr_type=bio)
type BioPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Links       []BioEntry `json:"links,omitempty"`
}

// WifiPayload параметры Wi-Fi сети (qr_type=wifi)
type WifiPayload struct {
	SSID     string `json:"ssid"`
	Password string `json:"password,omitempty"`
	Security string `json:"security,omitempty"` // WPA / WEP / nopass
	Hidden   bool   `json:"hidden,omitempty"`
}

// DecodePayload разбирает JSONB-полезную нагрузку по qr_type.
// Для url-типа payload отсутствует — резолв идёт по destination_url.
func DecodePayload(qrType QRType, raw json.RawMessage) (any, error) {
	switch qrType {
	case QRTypeVCard:
		var p VCardPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode vcard payload: %w", err)
		}
		return &p, nil
	case QRTypeBio:
		var p BioPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode bio payload: %w", err)
		}
		return &p, nil
	case QRTypeWifi:
		var p WifiPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode wifi payload: %w", err)
		}
		return &p, nil
	default:
		return nil, ErrUnknownQRType
	}
}
