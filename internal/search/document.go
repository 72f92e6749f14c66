// Package search provides full-text search over guides using Bleve.
// Guides are indexed by name, shortcut, description, and step text, and
// queries can be restricted to the set of guides a caller may read.
package search

import (
	"strings"

	"github.com/guidepostapp/guidepost-server/internal/domain"
)

// SearchDocument is the flattened form of a guide held in the Bleve index.
//
// Step instructions are concatenated into a single text field. Searching
// "click the export button" should surface the guide containing that step
// without the index having to model steps as nested documents.
type SearchDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Shortcut    string `json:"shortcut"`
	Description string `json:"description,omitempty"`
	Steps       string `json:"steps,omitempty"` // Concatenated step instructions

	// Timestamps for sorting, Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve would otherwise index Go struct field names (capitalized), which
// would not line up with the lowercase names in the index mapping.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"name":       d.Name,
		"shortcut":   d.Shortcut,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Steps != "" {
		m["steps"] = d.Steps
	}

	return m
}

// GuideToSearchDocument converts a guide to its indexed form.
func GuideToSearchDocument(guide *domain.Guide) *SearchDocument {
	var steps strings.Builder
	for i, step := range guide.Steps {
		if i > 0 {
			steps.WriteByte('\n')
		}
		steps.WriteString(step.Instruction)
	}

	return &SearchDocument{
		ID:          guide.ID,
		Name:        guide.Name,
		Shortcut:    guide.Shortcut,
		Description: guide.Description,
		Steps:       steps.String(),
		CreatedAt:   guide.CreatedAt.UnixMilli(),
		UpdatedAt:   guide.UpdatedAt.UnixMilli(),
	}
}
