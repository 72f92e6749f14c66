package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiry",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "past expiry",
			expiresAt: time.Now().Add(-time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, session.IsExpired())
		})
	}
}

func TestSession_Touch(t *testing.T) {
	session := &Session{
		LastSeenAt: time.Now().Add(-time.Hour),
	}

	before := session.LastSeenAt
	session.Touch()

	assert.True(t, session.LastSeenAt.After(before))
}

func TestSession_DisplayName(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    string
	}{
		{
			name:    "device name wins",
			session: Session{DeviceName: "Work Laptop", ClientName: "Guidepost Extension", Platform: "macOS"},
			want:    "Work Laptop",
		},
		{
			name:    "client and platform",
			session: Session{ClientName: "Guidepost Extension", Platform: "macOS"},
			want:    "Guidepost Extension - macOS",
		},
		{
			name:    "platform only",
			session: Session{Platform: "Linux"},
			want:    "Linux",
		},
		{
			name:    "client and version",
			session: Session{ClientName: "Guidepost Web", ClientVersion: "1.0.0"},
			want:    "Guidepost Web 1.0.0",
		},
		{
			name:    "client only",
			session: Session{ClientName: "Guidepost Web"},
			want:    "Guidepost Web",
		},
		{
			name:    "nothing reported",
			session: Session{},
			want:    "Unknown Device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.DisplayName())
		})
	}
}
