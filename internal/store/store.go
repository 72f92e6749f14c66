// Package store defines the persistence interface for the Guidepost server.
package store

import (
	"context"

	"github.com/guidepostapp/guidepost-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	CountUsers(ctx context.Context) (int, error)

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Guides
	//
	// CreateGuide and UpdateGuide persist the full aggregate (guide row,
	// ordered step set, share grants) in a single transaction. Reads return
	// live rows only; soft-deleted guides are invisible everywhere.
	CreateGuide(ctx context.Context, guide *domain.Guide) error
	GetGuide(ctx context.Context, id string) (*domain.Guide, error)
	GetGuideByShortcut(ctx context.Context, shortcut string) (*domain.Guide, error)
	GetGuideByShareToken(ctx context.Context, token string) (*domain.Guide, error)
	ListGuidesForUser(ctx context.Context, userID, email string) ([]*domain.Guide, error)
	ListAllGuides(ctx context.Context) ([]*domain.Guide, error)
	UpdateGuide(ctx context.Context, guide *domain.Guide) error
	DeleteGuide(ctx context.Context, id string) error
	SetGuideShareToken(ctx context.Context, guideID string, token *string) error
	AddSharedEmail(ctx context.Context, guideID, email string) error
	GetAccessibleGuideIDSet(ctx context.Context, userID, email string) (map[string]bool, error)

	// Instance
	CreateInstance(ctx context.Context, instance *domain.Instance) error
	GetInstance(ctx context.Context) (*domain.Instance, error)
	UpdateInstance(ctx context.Context, instance *domain.Instance) error
}

// SearchIndexer is the interface for updating the search index.
// The store notifies the indexer after guide mutations commit.
type SearchIndexer interface {
	IndexGuide(ctx context.Context, guide *domain.Guide) error
	DeleteGuide(ctx context.Context, guideID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexGuide(context.Context, *domain.Guide) error { return nil }
func (NoopSearchIndexer) DeleteGuide(context.Context, string) error       { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }
