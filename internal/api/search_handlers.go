package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchGuides",
		Method:      http.MethodGet,
		Path:        "/api/v1/guides/search",
		Summary:     "Search guides",
		Description: "Resolves an exact shortcut to its guide, or runs a ranked full-text query over the caller's visible guides",
		Tags:        []string{"Guides"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchGuides)
}

// === DTOs ===

// SearchGuidesInput contains the search parameters. Exactly one of
// shortcut or q must be provided.
type SearchGuidesInput struct {
	Shortcut string `query:"shortcut" required:"false" doc:"Exact shortcut to resolve; input is normalized before lookup"`
	Query    string `query:"q" required:"false" doc:"Full-text query over name, shortcut, description, and step instructions"`
	Limit    int    `query:"limit" required:"false" doc:"Max results for full-text queries (default 20, max 100)"`
	Offset   int    `query:"offset" required:"false" doc:"Pagination offset for full-text queries"`
}

// GuideSearchHit is one ranked full-text match.
type GuideSearchHit struct {
	ID       string  `json:"id" doc:"Guide ID"`
	Name     string  `json:"name" doc:"Guide title"`
	Shortcut string  `json:"shortcut" doc:"Normalized lookup key"`
	Score    float64 `json:"score" doc:"Relevance score"`
}

// SearchGuidesResponse carries either a resolved guide (shortcut lookup)
// or ranked hits (full-text query), never both.
type SearchGuidesResponse struct {
	Guide  *GuideResponse   `json:"guide,omitempty" doc:"Resolved guide for shortcut lookups"`
	Query  string           `json:"query,omitempty" doc:"Echoed full-text query"`
	Total  uint64           `json:"total,omitempty" doc:"Total full-text matches before pagination"`
	TookMs int64            `json:"took_ms,omitempty" doc:"Search duration in milliseconds"`
	Hits   []GuideSearchHit `json:"hits,omitempty" doc:"Ranked matches"`
}

// SearchGuidesOutput wraps the search response for Huma.
type SearchGuidesOutput struct {
	Body SearchGuidesResponse
}

// === Handlers ===

func (s *Server) handleSearchGuides(ctx context.Context, input *SearchGuidesInput) (*SearchGuidesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.Shortcut != "" {
		guide, err := s.services.Guide.GetGuideByShortcut(ctx, user, input.Shortcut)
		if err != nil {
			return nil, err
		}

		resp := mapGuideResponse(guide)
		return &SearchGuidesOutput{Body: SearchGuidesResponse{Guide: &resp}}, nil
	}

	if input.Query == "" {
		return nil, domainerrors.Validation("provide either a q or a shortcut parameter")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	result, err := s.services.Search.Search(ctx, user, input.Query, limit, input.Offset)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := SearchGuidesResponse{
		Query:  input.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   make([]GuideSearchHit, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		resp.Hits = append(resp.Hits, GuideSearchHit{
			ID:       hit.ID,
			Name:     hit.Name,
			Shortcut: hit.Shortcut,
			Score:    hit.Score,
		})
	}

	return &SearchGuidesOutput{Body: resp}, nil
}
