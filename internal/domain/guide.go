package domain

import "strings"

// Guide represents an authored walkthrough: an ordered list of steps plus
// the sharing state that controls who can see and edit it. Guides are
// private to their owner by default; visibility widens through the public
// flag, per-email grants, or a redeemable share token.
type Guide struct {
	Entity
	OwnerID      string   `json:"owner_id"`
	Name         string   `json:"name"`
	Shortcut     string   `json:"shortcut"` // Normalized, unique among live guides
	Description  string   `json:"description,omitempty"`
	IsPublic     bool     `json:"is_public"`
	SharedEmails []string `json:"shared_emails"`
	ShareToken   *string  `json:"share_token,omitempty"` // At most one active; filter from guide reads
	Steps        []Step   `json:"steps"`
}

// IsOwnedBy returns true if the given user owns this guide.
func (g *Guide) IsOwnedBy(userID string) bool {
	return userID != "" && g.OwnerID == userID
}

// IsSharedWith returns true if the email has been granted access.
// Comparison ignores case; grants are stored against the address as given.
func (g *Guide) IsSharedWith(email string) bool {
	if email == "" {
		return false
	}
	for _, granted := range g.SharedEmails {
		if strings.EqualFold(granted, email) {
			return true
		}
	}
	return false
}

// HasShareToken returns true if an active share token exists for this guide.
func (g *Guide) HasShareToken() bool {
	return g.ShareToken != nil && *g.ShareToken != ""
}

// Step is a single instruction within a guide, ordered by Position.
// Screenshots are opaque references; the server never touches image bytes.
type Step struct {
	ID            string     `json:"id"`
	Position      int        `json:"position"`
	Instruction   string     `json:"instruction"`
	Action        string     `json:"action,omitempty"` // click, type, navigate, ...
	Value         string     `json:"value,omitempty"`  // Payload for the action
	Selector      string     `json:"selector,omitempty"`
	ScreenshotURL string     `json:"screenshot_url,omitempty"`
	Highlight     *Highlight `json:"highlight,omitempty"`
}

// Highlight is a rectangle drawn over a step's screenshot to call out
// where the action happens.
type Highlight struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsValid returns true if the rectangle has positive area.
func (h *Highlight) IsValid() bool {
	return h != nil && h.Width > 0 && h.Height > 0
}
