package domain

import "time"

// Session represents an active user session with refresh token.
// Each client gets its own session - you can see what's connected.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`

	// Client information, self-reported at login
	Platform      string `json:"platform"`              // Windows, macOS, Linux, Web
	ClientName    string `json:"client_name"`           // Guidepost Web, Guidepost Extension
	ClientVersion string `json:"client_version"`        // 1.0.0
	DeviceName    string `json:"device_name,omitempty"` // Work laptop (optional, user-set)
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// DisplayName returns a human-readable description of the client.
func (s *Session) DisplayName() string {
	if s.DeviceName != "" {
		return s.DeviceName
	}

	if s.Platform != "" {
		if s.ClientName != "" {
			// "Guidepost Extension - macOS"
			return s.ClientName + " - " + s.Platform
		}
		return s.Platform
	}

	// "Guidepost Web 1.0.0"
	if s.ClientName != "" {
		if s.ClientVersion != "" {
			return s.ClientName + " " + s.ClientVersion
		}
		return s.ClientName
	}

	return "Unknown Device"
}
