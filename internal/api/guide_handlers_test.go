package api

import (
	"encoding/json/v2"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGuide(t *testing.T) {
	ts := setupTestServer(t)
	token, userID := ts.registerUser(t, "alice@example.com")

	resp := ts.api.Post("/api/v1/guides",
		"Authorization: Bearer "+token,
		map[string]any{
			"name":        "Reset Your Password",
			"shortcut":    "Reset Password",
			"description": "How to recover a locked account.",
			"shared_emails": []string{
				"Bob@Example.com",
				"bob@example.com", // dropped: duplicate ignoring case
			},
			"steps": []map[string]any{
				{
					"instruction": "Open the login page.",
					"action":      "navigate",
					"value":       "https://example.com/login",
				},
				{
					"instruction":    "Click 'Forgot password'.",
					"action":         "click",
					"selector":       "#forgot-password",
					"screenshot_url": "https://cdn.example.com/shots/forgot.png",
					"highlight":      map[string]any{"x": 40, "y": 120, "width": 200, "height": 32},
				},
			},
		},
	)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var envelope testEnvelope[GuideResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.True(t, envelope.Success)

	guide := envelope.Data
	assert.True(t, strings.HasPrefix(guide.ID, "guide-"), "unexpected guide ID %q", guide.ID)
	assert.Equal(t, userID, guide.OwnerID)
	assert.Equal(t, "Reset Your Password", guide.Name)
	assert.Equal(t, "reset-password", guide.Shortcut, "shortcut must be stored normalized")
	assert.Equal(t, "How to recover a locked account.", guide.Description)
	assert.False(t, guide.IsPublic)
	assert.Equal(t, []string{"Bob@Example.com"}, guide.SharedEmails)
	assert.False(t, guide.HasShareLink)
	assert.False(t, guide.CreatedAt.IsZero())

	require.Len(t, guide.Steps, 2)
	assert.Equal(t, 0, guide.Steps[0].Position)
	assert.Equal(t, 1, guide.Steps[1].Position)
	assert.Equal(t, "Open the login page.", guide.Steps[0].Instruction)
	assert.Equal(t, "navigate", guide.Steps[0].Action)
	assert.True(t, strings.HasPrefix(guide.Steps[0].ID, "step-"), "unexpected step ID %q", guide.Steps[0].ID)

	require.NotNil(t, guide.Steps[1].Highlight)
	assert.Equal(t, float64(40), guide.Steps[1].Highlight.X)
	assert.Equal(t, float64(32), guide.Steps[1].Highlight.Height)

	// The raw body must never carry the share token field.
	assert.NotContains(t, resp.Body.String(), "share_token")
}

func TestCreateGuide_PartialHighlight(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "alice@example.com")

	// A highlight with only some coordinates is stored as given.
	guide := ts.createGuide(t, token, map[string]any{
		"name":     "Configure VPN",
		"shortcut": "vpn-setup",
		"steps": []map[string]any{
			{
				"instruction": "Open network settings.",
				"highlight":   map[string]any{"x": 40},
			},
		},
	})

	require.Len(t, guide.Steps, 1)
	require.NotNil(t, guide.Steps[0].Highlight)
	assert.Equal(t, float64(40), guide.Steps[0].Highlight.X)
	assert.Equal(t, float64(0), guide.Steps[0].Highlight.Width)
}

func TestCreateGuide_ValidationLayers(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "alice@example.com")

	// Missing required fields are rejected by schema validation.
	resp := ts.api.Post("/api/v1/guides",
		"Authorization: Bearer "+token,
		map[string]any{"shortcut": "no-name"},
	)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)

	// A shortcut that normalizes to nothing fails semantic validation.
	resp = ts.api.Post("/api/v1/guides",
		"Authorization: Bearer "+token,
		map[string]any{"name": "Broken", "shortcut": "!!!"},
	)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestCreateGuide_DuplicateShortcut(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "alice@example.com")

	ts.createGuide(t, token, map[string]any{"name": "First", "shortcut": "Reset Password"})

	// Differently written forms of the same shortcut collide.
	resp := ts.api.Post("/api/v1/guides",
		"Authorization: Bearer "+token,
		map[string]any{"name": "Second", "shortcut": "reset-password"},
	)
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "ALREADY_EXISTS", envelope.Code)
}

func TestGetGuide_AccessMatrix(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")
	carolToken, _ := ts.registerUser(t, "carol@example.com")

	private := ts.createGuide(t, aliceToken, map[string]any{
		"name":     "Private Runbook",
		"shortcut": "private-runbook",
	})
	public := ts.createGuide(t, aliceToken, map[string]any{
		"name":      "Public Onboarding",
		"shortcut":  "onboarding",
		"is_public": true,
	})
	shared := ts.createGuide(t, aliceToken, map[string]any{
		"name":          "Shared Checklist",
		"shortcut":      "shared-checklist",
		"shared_emails": []string{"Bob@Example.com"},
	})

	// The owner reads everything.
	resp := ts.api.Get("/api/v1/guides/"+private.ID, "Authorization: Bearer "+aliceToken)
	assert.Equal(t, http.StatusOK, resp.Code)

	// Anyone signed in reads a public guide.
	resp = ts.api.Get("/api/v1/guides/"+public.ID, "Authorization: Bearer "+carolToken)
	assert.Equal(t, http.StatusOK, resp.Code)

	// A grant matches the email ignoring case.
	resp = ts.api.Get("/api/v1/guides/"+shared.ID, "Authorization: Bearer "+bobToken)
	assert.Equal(t, http.StatusOK, resp.Code)

	// An existing guide the caller cannot read is forbidden, not hidden.
	resp = ts.api.Get("/api/v1/guides/"+private.ID, "Authorization: Bearer "+bobToken)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "FORBIDDEN", envelope.Code)

	// A missing ID is not found.
	resp = ts.api.Get("/api/v1/guides/guide-does-not-exist", "Authorization: Bearer "+bobToken)
	require.Equal(t, http.StatusNotFound, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "NOT_FOUND", envelope.Code)
}

func TestListGuides_VisibilityScope(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")

	ownPrivate := ts.createGuide(t, aliceToken, map[string]any{
		"name": "Alice Private", "shortcut": "alice-private",
		"steps": []map[string]any{{"instruction": "Do the thing."}},
	})
	ownPublic := ts.createGuide(t, aliceToken, map[string]any{
		"name": "Alice Public", "shortcut": "alice-public", "is_public": true,
	})
	bobPrivate := ts.createGuide(t, bobToken, map[string]any{
		"name": "Bob Private", "shortcut": "bob-private",
	})
	bobPublic := ts.createGuide(t, bobToken, map[string]any{
		"name": "Bob Public", "shortcut": "bob-public", "is_public": true,
	})
	bobShared := ts.createGuide(t, bobToken, map[string]any{
		"name": "Bob Shared", "shortcut": "bob-shared",
		"shared_emails": []string{"alice@example.com"},
	})

	resp := ts.api.Get("/api/v1/guides", "Authorization: Bearer "+aliceToken)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[GuideListResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, envelope.Data.Total, len(envelope.Data.Guides))

	ids := make([]string, 0, len(envelope.Data.Guides))
	steps := make(map[string]int)
	for _, g := range envelope.Data.Guides {
		ids = append(ids, g.ID)
		steps[g.ID] = len(g.Steps)
	}
	assert.ElementsMatch(t,
		[]string{ownPrivate.ID, ownPublic.ID, bobPublic.ID, bobShared.ID},
		ids,
		"alice sees owned, public, and shared guides; bob's private guide stays invisible",
	)

	// Listings carry full guides, steps included.
	assert.Equal(t, 1, steps[ownPrivate.ID])

	// Bob's own view: everything he owns plus alice's public guide.
	resp = ts.api.Get("/api/v1/guides", "Authorization: Bearer "+bobToken)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	ids = ids[:0]
	for _, g := range envelope.Data.Guides {
		ids = append(ids, g.ID)
	}
	assert.ElementsMatch(t,
		[]string{bobPrivate.ID, bobPublic.ID, bobShared.ID, ownPublic.ID},
		ids,
	)
}

func TestUpdateGuide_PartialUpdate(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerUser(t, "alice@example.com")

	guide := ts.createGuide(t, token, map[string]any{
		"name":        "Reset Your Password",
		"shortcut":    "reset-password",
		"description": "Original description.",
		"steps": []map[string]any{
			{"instruction": "Open the login page."},
			{"instruction": "Click 'Forgot password'."},
		},
	})

	// Only the provided field changes.
	resp := ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+token,
		map[string]any{"description": "Updated description."},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[GuideResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "Updated description.", envelope.Data.Description)
	assert.Equal(t, "Reset Your Password", envelope.Data.Name)
	assert.Len(t, envelope.Data.Steps, 2)

	// A provided step list replaces the old one wholesale. A step that
	// carries its old ID keeps it; new steps get fresh IDs.
	keptID := guide.Steps[1].ID
	resp = ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+token,
		map[string]any{
			"steps": []map[string]any{
				{"id": keptID, "instruction": "Click 'Forgot password'."},
				{"instruction": "Enter your email address.", "action": "type", "selector": "#email"},
			},
		},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Steps, 2)
	assert.Equal(t, keptID, envelope.Data.Steps[0].ID)
	assert.Equal(t, 0, envelope.Data.Steps[0].Position, "positions are reassigned from array order")
	assert.NotEqual(t, guide.Steps[0].ID, envelope.Data.Steps[1].ID)
	assert.Equal(t, 1, envelope.Data.Steps[1].Position)

	// Shortcut updates are normalized like creates.
	resp = ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+token,
		map[string]any{"shortcut": "Password Reset (New)"},
	)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "password-reset-new", envelope.Data.Shortcut)
}

func TestUpdateGuide_SharingFieldsOwnerOnly(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")

	guide := ts.createGuide(t, aliceToken, map[string]any{
		"name":          "Shared Checklist",
		"shortcut":      "shared-checklist",
		"shared_emails": []string{"bob@example.com"},
	})

	// A collaborator may edit content.
	resp := ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+bobToken,
		map[string]any{"name": "Shared Checklist v2"},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// A payload that touches sharing fields is rejected as a whole:
	// the content change must not land either.
	resp = ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+bobToken,
		map[string]any{"name": "Hijacked", "is_public": true},
	)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	var envelope testEnvelope[GuideResponse]
	resp = ts.api.Get("/api/v1/guides/"+guide.ID, "Authorization: Bearer "+aliceToken)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "Shared Checklist v2", envelope.Data.Name)
	assert.False(t, envelope.Data.IsPublic)

	// Granting or revoking other people is just as owner-only.
	resp = ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+bobToken,
		map[string]any{"shared_emails": []string{"bob@example.com", "eve@example.com"}},
	)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// The owner can change sharing and content together.
	resp = ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+aliceToken,
		map[string]any{"name": "Team Checklist", "is_public": true},
	)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "Team Checklist", envelope.Data.Name)
	assert.True(t, envelope.Data.IsPublic)
}

func TestUpdateGuide_PublicGrantsNoWrites(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")

	guide := ts.createGuide(t, aliceToken, map[string]any{
		"name": "Public Onboarding", "shortcut": "onboarding", "is_public": true,
	})

	resp := ts.api.Put("/api/v1/guides/"+guide.ID,
		"Authorization: Bearer "+bobToken,
		map[string]any{"name": "Defaced"},
	)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "FORBIDDEN", envelope.Code)
}

func TestDeleteGuide(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")

	guide := ts.createGuide(t, aliceToken, map[string]any{
		"name":          "Disposable",
		"shortcut":      "disposable",
		"shared_emails": []string{"bob@example.com"},
	})

	// Collaborators cannot delete.
	resp := ts.api.Delete("/api/v1/guides/"+guide.ID, "Authorization: Bearer "+bobToken)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/guides/"+guide.ID, "Authorization: Bearer "+aliceToken)
	require.Equal(t, http.StatusNoContent, resp.Code)

	// Gone for everyone, the owner included.
	resp = ts.api.Get("/api/v1/guides/"+guide.ID, "Authorization: Bearer "+aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/guides/"+guide.ID, "Authorization: Bearer "+aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The shortcut is free for a new guide.
	ts.createGuide(t, aliceToken, map[string]any{"name": "Replacement", "shortcut": "disposable"})
}

func TestExportGuide(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, _ := ts.registerUser(t, "alice@example.com")
	bobToken, _ := ts.registerUser(t, "bob@example.com")

	guide := ts.createGuide(t, aliceToken, map[string]any{
		"name":          "Reset Your Password",
		"shortcut":      "reset-password",
		"description":   "How to recover a locked account.",
		"shared_emails": []string{"bob@example.com"},
		"steps": []map[string]any{
			{"instruction": "Open the login page.", "action": "navigate", "value": "https://example.com/login"},
			{"instruction": "Click 'Forgot password'."},
		},
	})

	resp := ts.api.Get("/api/v1/guides/"+guide.ID+"/export", "Authorization: Bearer "+aliceToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reset-password.md"`, resp.Header().Get("Content-Disposition"))

	// The download is the raw document, not an envelope.
	body := resp.Body.String()
	assert.True(t, strings.HasPrefix(body, "# Reset Your Password"), "unexpected export body: %q", body)
	assert.Contains(t, body, "How to recover a locked account.")
	assert.Contains(t, body, "1. Open the login page.")
	assert.Contains(t, body, "2. Click 'Forgot password'.")

	// Export stays owner-only even for collaborators.
	resp = ts.api.Get("/api/v1/guides/"+guide.ID+"/export", "Authorization: Bearer "+bobToken)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/guides/guide-does-not-exist/export", "Authorization: Bearer "+aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
