package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// guideColumns is the ordered list of columns selected in guide queries.
// Must match the scan order in scanGuide.
const guideColumns = `id, created_at, updated_at, deleted_at, owner_id, name,
	shortcut, description, is_public, share_token`

// scanGuide scans a sql.Row (or sql.Rows via its Scan method) into a domain.Guide.
// Steps and shared emails are loaded separately.
func scanGuide(scanner interface{ Scan(dest ...any) error }) (*domain.Guide, error) {
	var g domain.Guide

	var (
		createdAt  string
		updatedAt  string
		deletedAt  sql.NullString
		isPublic   int
		shareToken sql.NullString
	)

	err := scanner.Scan(
		&g.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&g.OwnerID,
		&g.Name,
		&g.Shortcut,
		&g.Description,
		&isPublic,
		&shareToken,
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps.
	g.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	g.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	g.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	g.IsPublic = isPublic != 0
	if shareToken.Valid {
		token := shareToken.String
		g.ShareToken = &token
	}

	return &g, nil
}

// stepColumns is the ordered list of columns selected in step queries.
// Must match the scan order in scanStep.
const stepColumns = `id, position, instruction, action, value, selector, screenshot_url,
	highlight_x, highlight_y, highlight_width, highlight_height`

// scanStep scans a sql.Row (or sql.Rows via its Scan method) into a domain.Step.
func scanStep(scanner interface{ Scan(dest ...any) error }) (domain.Step, error) {
	var st domain.Step

	var (
		action        sql.NullString
		value         sql.NullString
		selector      sql.NullString
		screenshotURL sql.NullString
		hx, hy        sql.NullFloat64
		hw, hh        sql.NullFloat64
	)

	err := scanner.Scan(
		&st.ID,
		&st.Position,
		&st.Instruction,
		&action,
		&value,
		&selector,
		&screenshotURL,
		&hx,
		&hy,
		&hw,
		&hh,
	)
	if err != nil {
		return domain.Step{}, err
	}

	if action.Valid {
		st.Action = action.String
	}
	if value.Valid {
		st.Value = value.String
	}
	if selector.Valid {
		st.Selector = selector.String
	}
	if screenshotURL.Valid {
		st.ScreenshotURL = screenshotURL.String
	}

	// The highlight columns are written as a group; any valid column means
	// a highlight was stored.
	if hx.Valid || hy.Valid || hw.Valid || hh.Valid {
		st.Highlight = &domain.Highlight{
			X:      hx.Float64,
			Y:      hy.Float64,
			Width:  hw.Float64,
			Height: hh.Float64,
		}
	}

	return st, nil
}

// highlightValues flattens an optional highlight into its four nullable columns.
func highlightValues(h *domain.Highlight) (x, y, w, hh sql.NullFloat64) {
	if h == nil {
		return
	}
	x = sql.NullFloat64{Float64: h.X, Valid: true}
	y = sql.NullFloat64{Float64: h.Y, Valid: true}
	w = sql.NullFloat64{Float64: h.Width, Valid: true}
	hh = sql.NullFloat64{Float64: h.Height, Valid: true}
	return
}

// loadSteps loads a guide's steps in presentation order.
func (s *Store) loadSteps(ctx context.Context, guideID string) ([]domain.Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM guide_steps WHERE guide_id = ? ORDER BY position ASC`, guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// loadSharedEmails loads the emails a guide is shared with, oldest grant first.
// Emails are returned as stored (original casing).
func (s *Store) loadSharedEmails(ctx context.Context, guideID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email FROM guide_shares
		WHERE guide_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, rowid ASC`, guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

// loadGuideAssociations fills in the steps and shared emails for a guide.
func (s *Store) loadGuideAssociations(ctx context.Context, guide *domain.Guide) error {
	var err error
	guide.Steps, err = s.loadSteps(ctx, guide.ID)
	if err != nil {
		return fmt.Errorf("load steps: %w", err)
	}
	guide.SharedEmails, err = s.loadSharedEmails(ctx, guide.ID)
	if err != nil {
		return fmt.Errorf("load shared emails: %w", err)
	}
	return nil
}

// insertSteps writes a guide's step rows inside a transaction.
func insertSteps(ctx context.Context, tx *sql.Tx, guide *domain.Guide) error {
	for _, step := range guide.Steps {
		hx, hy, hw, hh := highlightValues(step.Highlight)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO guide_steps (
				id, guide_id, position, instruction, action, value, selector,
				screenshot_url, highlight_x, highlight_y, highlight_width, highlight_height
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			step.ID,
			guide.ID,
			step.Position,
			step.Instruction,
			nullString(step.Action),
			nullString(step.Value),
			nullString(step.Selector),
			nullString(step.ScreenshotURL),
			hx, hy, hw, hh,
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", step.Position, err)
		}
	}
	return nil
}

// reconcileShares brings the guide_shares rows in line with guide.SharedEmails
// inside a transaction. Grants that survive keep their row (and created_at),
// new emails get fresh rows, and everything else is soft-deleted.
func reconcileShares(ctx context.Context, tx *sql.Tx, guide *domain.Guide) error {
	existing := make(map[string]string) // email_lower -> row id
	rows, err := tx.QueryContext(ctx, `
		SELECT id, email_lower FROM guide_shares
		WHERE guide_id = ? AND deleted_at IS NULL`, guide.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var rowID, lower string
		if err := rows.Scan(&rowID, &lower); err != nil {
			rows.Close()
			return err
		}
		existing[lower] = rowID
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	now := formatTime(time.Now())
	seen := make(map[string]bool)
	for _, email := range guide.SharedEmails {
		lower := emailLower(email)
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		if _, ok := existing[lower]; ok {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO guide_shares (id, created_at, updated_at, guide_id, email, email_lower)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), now, now, guide.ID, strings.TrimSpace(email), lower,
		)
		if err != nil {
			return fmt.Errorf("insert share %s: %w", lower, err)
		}
	}

	for lower, rowID := range existing {
		if seen[lower] {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE guide_shares SET deleted_at = ?, updated_at = ?
			WHERE id = ?`, now, now, rowID)
		if err != nil {
			return fmt.Errorf("revoke share %s: %w", lower, err)
		}
	}

	return nil
}

// CreateGuide inserts a guide with its steps and share grants in one transaction.
// Returns store.ErrAlreadyExists on a duplicate ID or shortcut.
func (s *Store) CreateGuide(ctx context.Context, guide *domain.Guide) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO guides (
			id, created_at, updated_at, deleted_at, owner_id, name,
			shortcut, description, is_public, share_token
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		guide.ID,
		formatTime(guide.CreatedAt),
		formatTime(guide.UpdatedAt),
		nullTimeString(guide.DeletedAt),
		guide.OwnerID,
		guide.Name,
		guide.Shortcut,
		guide.Description,
		boolToInt(guide.IsPublic),
		nullableString(guide.ShareToken),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if err := insertSteps(ctx, tx, guide); err != nil {
		return err
	}
	if err := reconcileShares(ctx, tx, guide); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexGuide(ctx, guide)
	return nil
}

// GetGuide retrieves a guide by ID with steps and shared emails loaded,
// excluding soft-deleted records.
// Returns store.ErrNotFound if the guide does not exist.
func (s *Store) GetGuide(ctx context.Context, id string) (*domain.Guide, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+guideColumns+` FROM guides WHERE id = ? AND deleted_at IS NULL`, id)

	guide, err := scanGuide(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadGuideAssociations(ctx, guide); err != nil {
		return nil, err
	}
	return guide, nil
}

// GetGuideByShortcut retrieves a guide by its exact shortcut, excluding
// soft-deleted records. Callers normalize the shortcut first.
// Returns store.ErrNotFound if no live guide holds the shortcut.
func (s *Store) GetGuideByShortcut(ctx context.Context, shortcut string) (*domain.Guide, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+guideColumns+` FROM guides WHERE shortcut = ? AND deleted_at IS NULL`, shortcut)

	guide, err := scanGuide(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadGuideAssociations(ctx, guide); err != nil {
		return nil, err
	}
	return guide, nil
}

// GetGuideByShareToken retrieves a guide by its active share token.
// Returns store.ErrNotFound if no live guide holds the token.
func (s *Store) GetGuideByShareToken(ctx context.Context, token string) (*domain.Guide, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+guideColumns+` FROM guides WHERE share_token = ? AND deleted_at IS NULL`, token)

	guide, err := scanGuide(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadGuideAssociations(ctx, guide); err != nil {
		return nil, err
	}
	return guide, nil
}

// ListGuidesForUser returns every live guide the user can see: guides they
// own, guides shared with their email, and public guides. Most recently
// updated first. Steps and shared emails are loaded for each guide.
func (s *Store) ListGuidesForUser(ctx context.Context, userID, email string) ([]*domain.Guide, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT g.id, g.created_at, g.updated_at, g.deleted_at, g.owner_id, g.name,
			g.shortcut, g.description, g.is_public, g.share_token
		FROM guides g
		LEFT JOIN guide_shares sh ON sh.guide_id = g.id AND sh.deleted_at IS NULL
		WHERE g.deleted_at IS NULL
		  AND (g.owner_id = ? OR g.is_public = 1 OR sh.email_lower = ?)
		ORDER BY g.updated_at DESC`,
		userID, emailLower(email))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guides []*domain.Guide
	for rows.Next() {
		guide, err := scanGuide(rows)
		if err != nil {
			return nil, err
		}
		guides = append(guides, guide)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, guide := range guides {
		if err := s.loadGuideAssociations(ctx, guide); err != nil {
			return nil, fmt.Errorf("load associations for %s: %w", guide.ID, err)
		}
	}

	return guides, nil
}

// GetAccessibleGuideIDSet returns the IDs of every live guide the user can
// read, as a set. Search uses this to filter index hits without loading
// full aggregates.
func (s *Store) GetAccessibleGuideIDSet(ctx context.Context, userID, email string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT g.id
		FROM guides g
		LEFT JOIN guide_shares sh ON sh.guide_id = g.id AND sh.deleted_at IS NULL
		WHERE g.deleted_at IS NULL
		  AND (g.owner_id = ? OR g.is_public = 1 OR sh.email_lower = ?)`,
		userID, emailLower(email))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListAllGuides returns every live guide with associations loaded.
// Used to rebuild the search index at startup.
func (s *Store) ListAllGuides(ctx context.Context) ([]*domain.Guide, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guideColumns+` FROM guides WHERE deleted_at IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guides []*domain.Guide
	for rows.Next() {
		guide, err := scanGuide(rows)
		if err != nil {
			return nil, err
		}
		guides = append(guides, guide)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, guide := range guides {
		if err := s.loadGuideAssociations(ctx, guide); err != nil {
			return nil, fmt.Errorf("load associations for %s: %w", guide.ID, err)
		}
	}

	return guides, nil
}

// UpdateGuide updates a guide row, replaces its step rows, and reconciles its
// share grants in one transaction. The caller provides the complete aggregate.
// Returns store.ErrNotFound if the guide does not exist or is soft-deleted,
// and store.ErrAlreadyExists if the new shortcut is taken.
func (s *Store) UpdateGuide(ctx context.Context, guide *domain.Guide) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE guides SET
			created_at = ?,
			updated_at = ?,
			owner_id = ?,
			name = ?,
			shortcut = ?,
			description = ?,
			is_public = ?,
			share_token = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatTime(guide.CreatedAt),
		formatTime(guide.UpdatedAt),
		guide.OwnerID,
		guide.Name,
		guide.Shortcut,
		guide.Description,
		boolToInt(guide.IsPublic),
		nullableString(guide.ShareToken),
		guide.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	// Replace all step rows.
	if _, err := tx.ExecContext(ctx, `DELETE FROM guide_steps WHERE guide_id = ?`, guide.ID); err != nil {
		return err
	}
	if err := insertSteps(ctx, tx, guide); err != nil {
		return err
	}

	if err := reconcileShares(ctx, tx, guide); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexGuide(ctx, guide)
	return nil
}

// DeleteGuide soft-deletes a guide and its share grants in one transaction.
// Step rows are kept; they become unreachable with the guide.
// Returns store.ErrNotFound if the guide does not exist or is already deleted.
func (s *Store) DeleteGuide(ctx context.Context, id string) error {
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE guides SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE guide_shares SET deleted_at = ?, updated_at = ?
		WHERE guide_id = ? AND deleted_at IS NULL`,
		now, now, id)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.unindexGuide(ctx, id)
	return nil
}

// SetGuideShareToken sets or clears a guide's share token. Passing nil clears
// it; setting a new value invalidates whatever token was active before.
// Returns store.ErrNotFound if the guide does not exist or is soft-deleted.
func (s *Store) SetGuideShareToken(ctx context.Context, guideID string, token *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE guides SET share_token = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		nullableString(token), formatTime(time.Now()), guideID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddSharedEmail grants one email access to a guide. Granting an email that
// already has access is a no-op, so redeeming a share token twice is safe.
// Returns store.ErrNotFound if the guide does not exist or is soft-deleted.
func (s *Store) AddSharedEmail(ctx context.Context, guideID, email string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM guides WHERE id = ? AND deleted_at IS NULL`, guideID).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO guide_shares (id, created_at, updated_at, guide_id, email, email_lower)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), now, now, guideID, strings.TrimSpace(email), emailLower(email),
	)
	return err
}
