package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
	"github.com/guidepostapp/guidepost-server/internal/id"
	"github.com/guidepostapp/guidepost-server/internal/policy"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// ShareService manages guide share tokens: opaque, non-expiring links an
// owner hands out so other signed-in users can grant themselves access.
type ShareService struct {
	store  store.Store
	logger *slog.Logger
}

// NewShareService creates a new share service.
func NewShareService(store store.Store, logger *slog.Logger) *ShareService {
	return &ShareService{
		store:  store,
		logger: logger,
	}
}

// IssueShareToken generates a share token for a guide, replacing any
// previous one. At most one token is active per guide; issuing again is
// the only way to revoke an outstanding link. Owner-only.
func (s *ShareService) IssueShareToken(ctx context.Context, user *domain.User, guideID string) (string, error) {
	guide, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domainerrors.NotFound("guide not found")
		}
		return "", fmt.Errorf("get guide: %w", err)
	}

	if decision := policy.Authorize(user, guide, policy.ActionUpdateSharing); !decision.Allowed {
		return "", domainerrors.Forbidden("only the owner can issue share links").
			WithDetails(map[string]string{"reason": decision.Reason})
	}

	token, err := id.Generate("share")
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}

	if err := s.store.SetGuideShareToken(ctx, guideID, &token); err != nil {
		return "", fmt.Errorf("set share token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Share token issued",
			"guide_id", guideID,
			"user_id", user.ID,
			"replaced", guide.HasShareToken(),
		)
	}

	return token, nil
}

// RedeemShareToken grants the caller access to the guide behind a token
// and returns the guide. Unknown tokens are NotFound so the token
// namespace stays opaque. Redeeming is idempotent: the owner and already
// shared users just get the guide back, and the token stays valid for
// further redeemers until the owner replaces it.
func (s *ShareService) RedeemShareToken(ctx context.Context, user *domain.User, token string) (*domain.Guide, error) {
	guide, err := s.store.GetGuideByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("share link not found")
		}
		return nil, fmt.Errorf("get guide by share token: %w", err)
	}

	if guide.IsOwnedBy(user.ID) || guide.IsSharedWith(user.Email) {
		return guide, nil
	}

	if err := s.store.AddSharedEmail(ctx, guide.ID, user.Email); err != nil {
		return nil, fmt.Errorf("add shared email: %w", err)
	}

	// Reload so the response reflects the fresh grant.
	guide, err = s.store.GetGuide(ctx, guide.ID)
	if err != nil {
		return nil, fmt.Errorf("reload guide: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Share token redeemed",
			"guide_id", guide.ID,
			"user_id", user.ID,
		)
	}

	return guide, nil
}
