package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for guide documents.
//
// Names, descriptions, and step text get English stemming so natural-language
// queries match. Shortcuts use the simple analyzer: "expense-report" splits
// into exact, unstemmed tokens. IDs are keywords, only ever matched whole.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Name is the primary search target.
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Shortcut tokens, lowercased but not stemmed.
	shortcutFieldMapping := bleve.NewTextFieldMapping()
	shortcutFieldMapping.Analyzer = simple.Name
	shortcutFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("shortcut", shortcutFieldMapping)

	// Description is searchable but not stored; it can be long.
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Concatenated step instructions, searchable only.
	stepsFieldMapping := bleve.NewTextFieldMapping()
	stepsFieldMapping.Analyzer = en.AnalyzerName
	stepsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("steps", stepsFieldMapping)

	// ID is stored but never analyzed.
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Timestamps for sorting by recency.
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
