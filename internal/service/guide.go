package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
	"github.com/guidepostapp/guidepost-server/internal/id"
	"github.com/guidepostapp/guidepost-server/internal/policy"
	"github.com/guidepostapp/guidepost-server/internal/shortcut"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// GuideService orchestrates guide CRUD with policy enforcement.
// Every read and write funnels through policy.Authorize so the API,
// search, and export surfaces agree about who can see what.
type GuideService struct {
	store  store.Store
	logger *slog.Logger
}

// NewGuideService creates a new guide service.
func NewGuideService(store store.Store, logger *slog.Logger) *GuideService {
	return &GuideService{
		store:  store,
		logger: logger,
	}
}

// StepInput is one step in a create or update payload.
// On update, passing an existing step ID preserves that step's identity;
// steps without an ID get a fresh one.
type StepInput struct {
	ID            string            `json:"id,omitempty"`
	Instruction   string            `json:"instruction" validate:"required,max=2000"`
	Action        string            `json:"action,omitempty" validate:"omitempty,max=50"`
	Value         string            `json:"value,omitempty" validate:"omitempty,max=2000"`
	Selector      string            `json:"selector,omitempty" validate:"omitempty,max=1000"`
	ScreenshotURL string            `json:"screenshot_url,omitempty" validate:"omitempty,max=2000"`
	Highlight     *domain.Highlight `json:"highlight,omitempty"`
}

// CreateGuideRequest contains the data for a new guide and its steps.
type CreateGuideRequest struct {
	Name         string      `json:"name" validate:"required,max=200"`
	Shortcut     string      `json:"shortcut" validate:"required,max=80"`
	Description  string      `json:"description,omitempty" validate:"omitempty,max=10000"`
	IsPublic     bool        `json:"is_public,omitempty"`
	SharedEmails []string    `json:"shared_emails,omitempty" validate:"omitempty,dive,email"`
	Steps        []StepInput `json:"steps,omitempty" validate:"omitempty,dive"`
}

// UpdateGuideRequest contains optional fields for a partial guide update.
// Only non-nil fields are applied. A provided step list replaces the
// existing steps wholesale.
type UpdateGuideRequest struct {
	Name         *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Shortcut     *string      `json:"shortcut,omitempty" validate:"omitempty,min=1,max=80"`
	Description  *string      `json:"description,omitempty" validate:"omitempty,max=10000"`
	IsPublic     *bool        `json:"is_public,omitempty"`
	SharedEmails *[]string    `json:"shared_emails,omitempty" validate:"omitempty,dive,email"`
	Steps        *[]StepInput `json:"steps,omitempty" validate:"omitempty,dive"`
}

// touchesSharing reports whether the update writes owner-only sharing fields.
func (r *UpdateGuideRequest) touchesSharing() bool {
	return r.IsPublic != nil || r.SharedEmails != nil
}

// CreateGuide persists a new guide with its ordered steps in one transaction.
func (s *GuideService) CreateGuide(ctx context.Context, user *domain.User, req CreateGuideRequest) (*domain.Guide, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	normalized := shortcut.Normalize(req.Shortcut)
	if normalized == "" {
		return nil, domainerrors.Validation("shortcut must contain at least one letter or digit")
	}

	guideID, err := id.Generate("guide")
	if err != nil {
		return nil, fmt.Errorf("generate guide ID: %w", err)
	}

	steps, err := buildSteps(req.Steps)
	if err != nil {
		return nil, err
	}

	guide := &domain.Guide{
		Entity: domain.Entity{
			ID: guideID,
		},
		OwnerID:      user.ID,
		Name:         req.Name,
		Shortcut:     normalized,
		Description:  htmlToMarkdown(req.Description),
		IsPublic:     req.IsPublic,
		SharedEmails: dedupeEmails(req.SharedEmails),
		Steps:        steps,
	}
	guide.InitTimestamps()

	if err := s.store.CreateGuide(ctx, guide); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("shortcut already in use")
		}
		return nil, fmt.Errorf("create guide: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Guide created",
			"guide_id", guide.ID,
			"owner_id", user.ID,
			"shortcut", guide.Shortcut,
			"steps", len(guide.Steps),
		)
	}

	return guide, nil
}

// GetGuide fetches a guide by ID.
// An existing guide the user cannot read is Forbidden; a missing or
// deleted ID is NotFound.
func (s *GuideService) GetGuide(ctx context.Context, user *domain.User, guideID string) (*domain.Guide, error) {
	guide, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("guide not found")
		}
		return nil, fmt.Errorf("get guide: %w", err)
	}

	if decision := policy.Authorize(user, guide, policy.ActionRead); !decision.Allowed {
		return nil, domainerrors.Forbidden("you do not have access to this guide").
			WithDetails(map[string]string{"reason": decision.Reason})
	}

	return guide, nil
}

// GetGuideByShortcut fetches a guide by its normalized shortcut.
// Shortcut lookup hides existence: an unknown shortcut and a guide the
// user cannot read both come back NotFound.
func (s *GuideService) GetGuideByShortcut(ctx context.Context, user *domain.User, rawShortcut string) (*domain.Guide, error) {
	normalized := shortcut.Normalize(rawShortcut)

	guide, err := s.store.GetGuideByShortcut(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("guide not found")
		}
		return nil, fmt.Errorf("get guide by shortcut: %w", err)
	}

	if !policy.CanRead(user, guide) {
		return nil, domainerrors.NotFound("guide not found")
	}

	return guide, nil
}

// ListGuides returns every guide the user can see: owned, shared with
// their email, or public.
func (s *GuideService) ListGuides(ctx context.Context, user *domain.User) ([]*domain.Guide, error) {
	guides, err := s.store.ListGuidesForUser(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list guides: %w", err)
	}
	return guides, nil
}

// UpdateGuide applies a partial update.
// Sharing fields (is_public, shared_emails) are owner-only; a payload
// that mixes sharing and content changes from a non-owner fails as a
// whole, nothing applied.
func (s *GuideService) UpdateGuide(ctx context.Context, user *domain.User, guideID string, req UpdateGuideRequest) (*domain.Guide, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	guide, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("guide not found")
		}
		return nil, fmt.Errorf("get guide: %w", err)
	}

	// An empty update still needs write access, so content-level rights
	// are the floor for every request.
	action := policy.ActionUpdateContent
	if req.touchesSharing() {
		action = policy.ActionUpdateSharing
	}
	if decision := policy.Authorize(user, guide, action); !decision.Allowed {
		return nil, domainerrors.Forbidden("you do not have permission to update this guide").
			WithDetails(map[string]string{"reason": decision.Reason})
	}

	if req.Name != nil {
		guide.Name = *req.Name
	}
	if req.Shortcut != nil {
		normalized := shortcut.Normalize(*req.Shortcut)
		if normalized == "" {
			return nil, domainerrors.Validation("shortcut must contain at least one letter or digit")
		}
		guide.Shortcut = normalized
	}
	if req.Description != nil {
		guide.Description = htmlToMarkdown(*req.Description)
	}
	if req.IsPublic != nil {
		guide.IsPublic = *req.IsPublic
	}
	if req.SharedEmails != nil {
		guide.SharedEmails = dedupeEmails(*req.SharedEmails)
	}
	if req.Steps != nil {
		steps, err := buildSteps(*req.Steps)
		if err != nil {
			return nil, err
		}
		guide.Steps = steps
	}
	guide.Touch()

	if err := s.store.UpdateGuide(ctx, guide); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("shortcut already in use")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("guide not found")
		}
		return nil, fmt.Errorf("update guide: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Guide updated",
			"guide_id", guide.ID,
			"user_id", user.ID,
			"sharing_changed", req.touchesSharing(),
		)
	}

	return guide, nil
}

// DeleteGuide soft-deletes a guide and cascades to its steps and shares.
// Owner-only.
func (s *GuideService) DeleteGuide(ctx context.Context, user *domain.User, guideID string) error {
	guide, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("guide not found")
		}
		return fmt.Errorf("get guide: %w", err)
	}

	if decision := policy.Authorize(user, guide, policy.ActionDelete); !decision.Allowed {
		return domainerrors.Forbidden("only the owner can delete a guide").
			WithDetails(map[string]string{"reason": decision.Reason})
	}

	if err := s.store.DeleteGuide(ctx, guideID); err != nil {
		return fmt.Errorf("delete guide: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Guide deleted",
			"guide_id", guideID,
			"user_id", user.ID,
		)
	}

	return nil
}

// buildSteps converts step inputs into domain steps, assigning positions
// by array order and generating IDs where the input carries none.
func buildSteps(inputs []StepInput) ([]domain.Step, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	steps := make([]domain.Step, 0, len(inputs))
	for i, in := range inputs {
		stepID := in.ID
		if stepID == "" {
			generated, err := id.Generate("step")
			if err != nil {
				return nil, fmt.Errorf("generate step ID: %w", err)
			}
			stepID = generated
		}

		steps = append(steps, domain.Step{
			ID:            stepID,
			Position:      i,
			Instruction:   htmlToMarkdown(in.Instruction),
			Action:        in.Action,
			Value:         in.Value,
			Selector:      in.Selector,
			ScreenshotURL: in.ScreenshotURL,
			Highlight:     in.Highlight,
		})
	}

	return steps, nil
}

// dedupeEmails drops case-insensitive duplicates, keeping the first
// occurrence so grant order survives round trips.
func dedupeEmails(emails []string) []string {
	if len(emails) == 0 {
		return emails
	}

	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		key := strings.ToLower(e)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
