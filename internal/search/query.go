package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query

	// AllowedIDs restricts results to these guide IDs. The caller computes
	// the set of guides the user may read and passes it here, so totals and
	// pagination are exact. Nil means no restriction; an empty, non-nil
	// slice matches nothing.
	AllowedIDs []string

	// Pagination
	Limit  int
	Offset int
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matching guide.
type SearchHit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Name     string  `json:"name"`
	Shortcut string  `json:"shortcut"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)
	searchRequest.SortBy([]string{"-_score"})
	searchRequest.Fields = []string{"id", "name", "shortcut"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if n, ok := hit.Fields["name"].(string); ok {
			searchHit.Name = n
		}
		if sc, ok := hit.Fields["shortcut"].(string); ok {
			searchHit.Shortcut = sc
		}
		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
//
// The text query is a disjunction across the guide's fields: the name
// carries the highest boost, shortcut tokens rank above body text, and a
// fuzzy plus prefix pass on the name tolerates typos and partial words.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		shortcutMatch := bleve.NewMatchQuery(params.Query)
		shortcutMatch.SetField("shortcut")
		shortcutMatch.SetBoost(2.0)
		textQueries = append(textQueries, shortcutMatch)

		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		textQueries = append(textQueries, descMatch)

		stepsMatch := bleve.NewMatchQuery(params.Query)
		stepsMatch.SetField("steps")
		textQueries = append(textQueries, stepsMatch)

		// Typo tolerance on the name.
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for as-you-type matches (minimum 2 chars).
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Access restriction: conjoin with the caller's readable set.
	if params.AllowedIDs != nil {
		queries = append(queries, bleve.NewDocIDQuery(params.AllowedIDs))
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
