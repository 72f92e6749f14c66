package domain

import "time"

// Entity provides the common identity and lifecycle fields shared by every
// persisted record. Embed it in any type the store manages.
type Entity struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ID        string     `json:"id"`
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (e *Entity) InitTimestamps() {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
}

// IsDeleted returns true if this entity has been soft-deleted.
func (e *Entity) IsDeleted() bool {
	return e.DeletedAt != nil
}

// MarkDeleted marks this entity as soft-deleted by setting DeletedAt to now.
// This also updates UpdatedAt so deletions sort with recent changes.
func (e *Entity) MarkDeleted() {
	now := time.Now()
	e.DeletedAt = &now
	e.UpdatedAt = now
}
