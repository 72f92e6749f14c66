package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	"github.com/guidepostapp/guidepost-server/internal/search"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// SearchService bridges the search index with the data store. It keeps
// the index in sync with guide mutations and runs access-filtered
// queries on behalf of users.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// The store pushes guide mutations through this interface after commit.
var _ store.SearchIndexer = (*SearchService)(nil)

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// IndexGuide indexes a single guide.
// Called by the store after every guide create or update.
func (s *SearchService) IndexGuide(_ context.Context, guide *domain.Guide) error {
	doc := search.GuideToSearchDocument(guide)

	if err := s.index.IndexDocument(doc); err != nil {
		return fmt.Errorf("index document: %w", err)
	}

	s.logger.Debug("indexed guide", "id", guide.ID, "name", guide.Name)
	return nil
}

// DeleteGuide removes a guide from the index.
func (s *SearchService) DeleteGuide(_ context.Context, guideID string) error {
	return s.index.DeleteDocument(guideID)
}

// Search runs a full-text query restricted to guides the user can read:
// owned, shared with their email, or public. Totals and pagination are
// computed inside that restriction, so result counts never leak the
// existence of inaccessible guides.
func (s *SearchService) Search(ctx context.Context, user *domain.User, query string, limit, offset int) (*search.SearchResult, error) {
	accessible, err := s.store.GetAccessibleGuideIDSet(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("load accessible guide IDs: %w", err)
	}

	// An empty (non-nil) list makes the index return nothing, which is
	// exactly right for a user with no visible guides.
	allowed := make([]string, 0, len(accessible))
	for guideID := range accessible {
		allowed = append(allowed, guideID)
	}

	return s.index.Search(ctx, search.SearchParams{
		Query:      query,
		AllowedIDs: allowed,
		Limit:      limit,
		Offset:     offset,
	})
}

// DocumentCount returns the number of indexed guides.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// ReindexAll rebuilds the entire search index from the store.
// The server triggers it at startup when the index has fallen behind the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	s.logger.Info("starting full reindex")

	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	guides, err := s.store.ListAllGuides(ctx)
	if err != nil {
		return fmt.Errorf("list guides: %w", err)
	}

	docs := make([]*search.SearchDocument, 0, len(guides))
	for _, guide := range guides {
		docs = append(docs, search.GuideToSearchDocument(guide))
	}

	if len(docs) > 0 {
		if err := s.index.IndexDocuments(docs); err != nil {
			return fmt.Errorf("index guides: %w", err)
		}
	}

	total, _ := s.index.DocumentCount()
	s.logger.Info("full reindex complete", "total_documents", total)

	return nil
}
