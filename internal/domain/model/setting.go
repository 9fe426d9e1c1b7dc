package model

import "time"

// Well-known setting names.
const (
	SettingAPIEnabled = "api_enabled"
)

// Setting is a named string value editable from the admin surface.
type Setting struct {
	Name       string
	Value      string
	CreateTime time.Time
	UpdateTime time.Time
}

// DefaultSettings are seeded on first start. The verification API starts
// switched off until an operator enables it.
func DefaultSettings() map[string]string {
	return map[string]string{
		"site_title":        "Card Key Verification",
		"site_subtitle":     "License key issuing and verification",
		"copyright_text":    "Card Key Service - All Rights Reserved",
		"welcome_text":      "Welcome, ",
		"contact_qq_group":  "123456789",
		"contact_wechat_qr": "assets/images/wechat-qr.jpg",
		"contact_email":     "support@example.com",
		SettingAPIEnabled:   "0",
	}
}
