package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
	"github.com/guidepostapp/guidepost-server/internal/policy"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// GuideExport is a rendered guide document ready to serve as a download.
type GuideExport struct {
	Filename    string
	ContentType string
	Content     string
}

// ExportGuide renders a guide as a portable Markdown document. Owner-only.
func (s *GuideService) ExportGuide(ctx context.Context, user *domain.User, guideID string) (*GuideExport, error) {
	guide, err := s.store.GetGuide(ctx, guideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("guide not found")
		}
		return nil, fmt.Errorf("get guide: %w", err)
	}

	if decision := policy.Authorize(user, guide, policy.ActionExport); !decision.Allowed {
		return nil, domainerrors.Forbidden("only the owner can export a guide").
			WithDetails(map[string]string{"reason": decision.Reason})
	}

	if s.logger != nil {
		s.logger.Info("Guide exported",
			"guide_id", guide.ID,
			"user_id", user.ID,
		)
	}

	return &GuideExport{
		Filename:    guide.Shortcut + ".md",
		ContentType: "text/markdown; charset=utf-8",
		Content:     renderGuideMarkdown(guide),
	}, nil
}

// renderGuideMarkdown builds the export document: title, description,
// then numbered steps with their annotations.
func renderGuideMarkdown(guide *domain.Guide) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", guide.Name)

	if guide.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", guide.Description)
	}

	if len(guide.Steps) == 0 {
		return b.String()
	}

	b.WriteString("\n## Steps\n")
	for i, step := range guide.Steps {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, step.Instruction)

		switch {
		case step.Action != "" && step.Value != "":
			fmt.Fprintf(&b, "   - Action: %s (%s)\n", step.Action, step.Value)
		case step.Action != "":
			fmt.Fprintf(&b, "   - Action: %s\n", step.Action)
		case step.Value != "":
			fmt.Fprintf(&b, "   - Value: %s\n", step.Value)
		}

		if step.Selector != "" {
			fmt.Fprintf(&b, "   - Selector: `%s`\n", step.Selector)
		}
		if step.ScreenshotURL != "" {
			fmt.Fprintf(&b, "   - [Screenshot](%s)\n", step.ScreenshotURL)
		}
		// Partial rectangles are stored but have no drawable area, so
		// only well-formed highlights make it into the document.
		if step.Highlight.IsValid() {
			h := step.Highlight
			fmt.Fprintf(&b, "   - Highlight: %gx%g at (%g, %g)\n", h.Width, h.Height, h.X, h.Y)
		}
	}

	return b.String()
}
