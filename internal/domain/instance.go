package domain

import "time"

// Instance is the singleton server identity record, created on first boot.
// Clients and mDNS discovery read it; it never carries user data.
type Instance struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	LocalUrl  string    `json:"local_url,omitempty"`
	SetupAt   time.Time `json:"setup_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
