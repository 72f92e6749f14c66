package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuide_IsSharedWith(t *testing.T) {
	guide := &Guide{
		SharedEmails: []string{"Friend@Example.com", "other@example.com"},
	}

	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"exact match", "other@example.com", true},
		{"case-insensitive match", "friend@example.com", true},
		{"upper-cased query", "OTHER@EXAMPLE.COM", true},
		{"not shared", "stranger@example.com", false},
		{"empty email never matches", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, guide.IsSharedWith(tt.email))
		})
	}
}

func TestGuide_IsOwnedBy(t *testing.T) {
	guide := &Guide{OwnerID: "user_abc"}

	assert.True(t, guide.IsOwnedBy("user_abc"))
	assert.False(t, guide.IsOwnedBy("user_xyz"))
	assert.False(t, guide.IsOwnedBy(""))
}

func TestGuide_HasShareToken(t *testing.T) {
	token := "share_abc123"
	empty := ""

	tests := []struct {
		name     string
		guide    *Guide
		expected bool
	}{
		{"nil token", &Guide{}, false},
		{"empty token", &Guide{ShareToken: &empty}, false},
		{"active token", &Guide{ShareToken: &token}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.guide.HasShareToken())
		})
	}
}

func TestHighlight_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		highlight *Highlight
		expected  bool
	}{
		{"nil highlight", nil, false},
		{"zero area", &Highlight{X: 10, Y: 10}, false},
		{"negative width", &Highlight{Width: -5, Height: 10}, false},
		{"positive area", &Highlight{X: 0, Y: 0, Width: 120, Height: 40}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.highlight.IsValid())
		})
	}
}

func TestEntity_MarkDeleted(t *testing.T) {
	g := &Guide{}
	g.InitTimestamps()
	assert.False(t, g.IsDeleted())

	g.MarkDeleted()
	assert.True(t, g.IsDeleted())
	assert.NotNil(t, g.DeletedAt)
	assert.False(t, g.UpdatedAt.Before(*g.DeletedAt))
}
