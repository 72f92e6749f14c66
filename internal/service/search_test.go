package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidepostapp/guidepost-server/internal/search"
	"github.com/guidepostapp/guidepost-server/internal/store"
	"github.com/guidepostapp/guidepost-server/internal/store/sqlite"
)

// setupSearchTest wires store, index, and services the way the server
// does: guide mutations flow into the index through the store hook.
func setupSearchTest(t *testing.T) (*SearchService, *GuideService, store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	searchSvc := NewSearchService(index, s, logger)
	s.SetSearchIndexer(searchSvc)

	return searchSvc, NewGuideService(s, logger), s
}

func TestSearchService_MutationsKeepIndexFresh(t *testing.T) {
	searchSvc, guideSvc, s := setupSearchTest(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")

	guide, err := guideSvc.CreateGuide(ctx, owner, CreateGuideRequest{
		Name:     "Reset Your Password",
		Shortcut: "reset-password",
		Steps: []StepInput{
			{Instruction: "Open the account settings page."},
		},
	})
	require.NoError(t, err)

	result, err := searchSvc.Search(ctx, owner, "password", 10, 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, guide.ID, result.Hits[0].ID)

	// Renaming is reflected without a manual reindex.
	newName := "Rotate Your Credentials"
	_, err = guideSvc.UpdateGuide(ctx, owner, guide.ID, UpdateGuideRequest{Name: &newName})
	require.NoError(t, err)

	result, err = searchSvc.Search(ctx, owner, "credentials", 10, 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)

	result, err = searchSvc.Search(ctx, owner, "password", 10, 0)
	require.NoError(t, err)
	// Shortcut still matches; the old name is gone from the name field
	// but "reset-password" tokens keep the guide reachable.
	for _, hit := range result.Hits {
		assert.Equal(t, guide.ID, hit.ID)
	}

	// Deletion drops the document.
	require.NoError(t, guideSvc.DeleteGuide(ctx, owner, guide.ID))

	result, err = searchSvc.Search(ctx, owner, "credentials", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearchService_Search_AccessFiltered(t *testing.T) {
	searchSvc, guideSvc, s := setupSearchTest(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")
	rival := newTestUser(t, s, "rival@example.com")

	mine, err := guideSvc.CreateGuide(ctx, owner, CreateGuideRequest{
		Name:     "Quarterly Report Checklist",
		Shortcut: "quarterly-report",
	})
	require.NoError(t, err)

	_, err = guideSvc.CreateGuide(ctx, rival, CreateGuideRequest{
		Name:     "Rival Report Template",
		Shortcut: "rival-report",
	})
	require.NoError(t, err)

	public, err := guideSvc.CreateGuide(ctx, rival, CreateGuideRequest{
		Name:     "Public Report Archive",
		Shortcut: "public-report",
		IsPublic: true,
	})
	require.NoError(t, err)

	// All three match "report", but the owner only sees their own guide
	// plus the public one.
	result, err := searchSvc.Search(ctx, owner, "report", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	assert.ElementsMatch(t, []string{mine.ID, public.ID}, ids)
}

func TestSearchService_Search_NoAccessibleGuides(t *testing.T) {
	searchSvc, guideSvc, s := setupSearchTest(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")
	outsider := newTestUser(t, s, "outsider@example.com")

	_, err := guideSvc.CreateGuide(ctx, owner, CreateGuideRequest{
		Name:     "Private Playbook",
		Shortcut: "private-playbook",
	})
	require.NoError(t, err)

	result, err := searchSvc.Search(ctx, outsider, "playbook", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Total)
	assert.Empty(t, result.Hits)
}

func TestSearchService_ReindexAll(t *testing.T) {
	searchSvc, guideSvc, s := setupSearchTest(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")

	shortcuts := []string{"alpha-guide", "beta-guide", "gamma-guide"}
	for _, sc := range shortcuts {
		_, err := guideSvc.CreateGuide(ctx, owner, CreateGuideRequest{
			Name:     "Guide " + sc,
			Shortcut: sc,
		})
		require.NoError(t, err)
	}

	require.NoError(t, searchSvc.ReindexAll(ctx))

	count, err := searchSvc.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	result, err := searchSvc.Search(ctx, owner, "beta", 10, 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "beta-guide", result.Hits[0].Shortcut)
}
