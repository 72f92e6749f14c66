package auth

import (
	"time"
)

// AccessClaims represents the claims stored in a PASETO access token.
// v4.local tokens are encrypted, so these are unreadable without the key.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// DeviceInfo is what a client reports about itself when it signs in.
// It is stored on the Session so audit logs can say which client did what.
// All fields are optional; the extension and the web app send what they know.
type DeviceInfo struct {
	Platform      string `json:"platform"`       // Windows, macOS, Linux, Web
	ClientName    string `json:"client_name"`    // Guidepost Extension, Guidepost Web
	ClientVersion string `json:"client_version"` // 1.0.0
	DeviceName    string `json:"device_name"`    // user-set, e.g. "Work Laptop"
}

// IsZero reports whether the client sent no device information at all.
func (d DeviceInfo) IsZero() bool {
	return d.Platform == "" && d.ClientName == "" && d.ClientVersion == "" && d.DeviceName == ""
}
