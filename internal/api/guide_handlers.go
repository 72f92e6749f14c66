package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidepostapp/guidepost-server/internal/domain"
	"github.com/guidepostapp/guidepost-server/internal/service"
)

func (s *Server) registerGuideRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createGuide",
		Method:        http.MethodPost,
		Path:          "/api/v1/guides",
		Summary:       "Create guide",
		Description:   "Creates a guide with its ordered steps in one transaction",
		Tags:          []string{"Guides"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateGuide)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGuides",
		Method:      http.MethodGet,
		Path:        "/api/v1/guides",
		Summary:     "List guides",
		Description: "Returns every guide the caller owns, has been granted by email, or that is public",
		Tags:        []string{"Guides"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListGuides)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGuide",
		Method:      http.MethodGet,
		Path:        "/api/v1/guides/{id}",
		Summary:     "Get guide",
		Description: "Returns a single guide with its steps",
		Tags:        []string{"Guides"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetGuide)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateGuide",
		Method:      http.MethodPut,
		Path:        "/api/v1/guides/{id}",
		Summary:     "Update guide",
		Description: "Applies only the provided fields. Sharing fields are owner-only; a payload touching them is rejected wholesale for non-owners.",
		Tags:        []string{"Guides"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateGuide)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteGuide",
		Method:        http.MethodDelete,
		Path:          "/api/v1/guides/{id}",
		Summary:       "Delete guide",
		Description:   "Deletes a guide and its steps. Owner only.",
		Tags:          []string{"Guides"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteGuide)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportGuide",
		Method:      http.MethodGet,
		Path:        "/api/v1/guides/{id}/export",
		Summary:     "Export guide",
		Description: "Renders the guide as a portable Markdown document. Owner only.",
		Tags:        []string{"Guides"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleExportGuide)
}

// === DTOs ===

// Highlight is a rectangle drawn over a step's screenshot. Partial
// rectangles are accepted and stored as-is; rendering decides what is
// drawable.
type Highlight struct {
	X      float64 `json:"x" required:"false" doc:"Left offset within the screenshot"`
	Y      float64 `json:"y" required:"false" doc:"Top offset within the screenshot"`
	Width  float64 `json:"width" required:"false" doc:"Rectangle width"`
	Height float64 `json:"height" required:"false" doc:"Rectangle height"`
}

// StepRequest describes one step in a create or update payload.
type StepRequest struct {
	ID            string     `json:"id,omitempty" doc:"Existing step ID to keep across updates; omit for new steps"`
	Instruction   string     `json:"instruction" doc:"What the user should do; HTML fragments are converted to Markdown"`
	Action        string     `json:"action,omitempty" doc:"Action kind (click, type, navigate)"`
	Value         string     `json:"value,omitempty" doc:"Payload for the action"`
	Selector      string     `json:"selector,omitempty" doc:"CSS selector the step targets"`
	ScreenshotURL string     `json:"screenshot_url,omitempty" doc:"Screenshot reference URL; the server never stores image bytes"`
	Highlight     *Highlight `json:"highlight,omitempty" doc:"Rectangle drawn over the screenshot"`
}

// CreateGuideRequest is the request body for creating a guide.
type CreateGuideRequest struct {
	Name         string        `json:"name" doc:"Guide title"`
	Shortcut     string        `json:"shortcut" doc:"Lookup key; normalized to lowercase-hyphenated form"`
	Description  string        `json:"description,omitempty" doc:"Free-form description; HTML fragments are converted to Markdown"`
	IsPublic     bool          `json:"is_public,omitempty" doc:"Whether any authenticated user may read the guide"`
	SharedEmails []string      `json:"shared_emails,omitempty" doc:"Email addresses granted read and content-edit access"`
	Steps        []StepRequest `json:"steps,omitempty" doc:"Ordered steps"`
}

// CreateGuideInput wraps the create request for Huma.
type CreateGuideInput struct {
	Body CreateGuideRequest
}

// UpdateGuideRequest is the request body for a partial guide update.
// Only provided fields are applied; a provided step list replaces the
// existing steps wholesale.
type UpdateGuideRequest struct {
	Name         *string        `json:"name,omitempty" doc:"New guide title"`
	Shortcut     *string        `json:"shortcut,omitempty" doc:"New lookup key; re-normalized"`
	Description  *string        `json:"description,omitempty" doc:"New description"`
	IsPublic     *bool          `json:"is_public,omitempty" doc:"Owner-only visibility flag"`
	SharedEmails *[]string      `json:"shared_emails,omitempty" doc:"Owner-only replacement grant list"`
	Steps        *[]StepRequest `json:"steps,omitempty" doc:"Replacement step list"`
}

// UpdateGuideInput wraps the update request for Huma.
type UpdateGuideInput struct {
	ID   string `path:"id" doc:"Guide ID"`
	Body UpdateGuideRequest
}

// GetGuideInput contains parameters for fetching a guide.
type GetGuideInput struct {
	ID string `path:"id" doc:"Guide ID"`
}

// DeleteGuideInput contains parameters for deleting a guide.
type DeleteGuideInput struct {
	ID string `path:"id" doc:"Guide ID"`
}

// ExportGuideInput contains parameters for exporting a guide.
type ExportGuideInput struct {
	ID string `path:"id" doc:"Guide ID"`
}

// StepResponse contains step data in API responses.
type StepResponse struct {
	ID            string     `json:"id" doc:"Step ID"`
	Position      int        `json:"position" doc:"Zero-based order within the guide"`
	Instruction   string     `json:"instruction" doc:"What the user should do"`
	Action        string     `json:"action,omitempty" doc:"Action kind"`
	Value         string     `json:"value,omitempty" doc:"Payload for the action"`
	Selector      string     `json:"selector,omitempty" doc:"CSS selector the step targets"`
	ScreenshotURL string     `json:"screenshot_url,omitempty" doc:"Screenshot reference URL"`
	Highlight     *Highlight `json:"highlight,omitempty" doc:"Rectangle drawn over the screenshot"`
}

// GuideResponse contains guide data in API responses. The share token is
// deliberately absent: it is returned once, by the issue endpoint, and
// never again.
type GuideResponse struct {
	ID           string         `json:"id" doc:"Guide ID"`
	OwnerID      string         `json:"owner_id" doc:"Owning user ID"`
	Name         string         `json:"name" doc:"Guide title"`
	Shortcut     string         `json:"shortcut" doc:"Normalized lookup key"`
	Description  string         `json:"description,omitempty" doc:"Guide description"`
	IsPublic     bool           `json:"is_public" doc:"Whether any authenticated user may read the guide"`
	SharedEmails []string       `json:"shared_emails" doc:"Email addresses granted access"`
	HasShareLink bool           `json:"has_share_link" doc:"Whether an active share link exists"`
	Steps        []StepResponse `json:"steps" doc:"Ordered steps"`
	CreatedAt    time.Time      `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt    time.Time      `json:"updated_at" doc:"Last update timestamp"`
}

// GuideOutput wraps a single guide response for Huma.
type GuideOutput struct {
	Body GuideResponse
}

// GuideListResponse contains the caller's visible guides.
type GuideListResponse struct {
	Guides []GuideResponse `json:"guides" doc:"Guides the caller can read"`
	Total  int             `json:"total" doc:"Number of guides returned"`
}

// GuideListOutput wraps the list response for Huma.
type GuideListOutput struct {
	Body GuideListResponse
}

// === Handlers ===

func (s *Server) handleCreateGuide(ctx context.Context, input *CreateGuideInput) (*GuideOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	req := service.CreateGuideRequest{
		Name:         input.Body.Name,
		Shortcut:     input.Body.Shortcut,
		Description:  input.Body.Description,
		IsPublic:     input.Body.IsPublic,
		SharedEmails: input.Body.SharedEmails,
		Steps:        mapStepRequests(input.Body.Steps),
	}

	guide, err := s.services.Guide.CreateGuide(ctx, user, req)
	if err != nil {
		return nil, err
	}

	return &GuideOutput{Body: mapGuideResponse(guide)}, nil
}

func (s *Server) handleListGuides(ctx context.Context, _ *struct{}) (*GuideListOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	guides, err := s.services.Guide.ListGuides(ctx, user)
	if err != nil {
		return nil, err
	}

	resp := GuideListResponse{
		Guides: make([]GuideResponse, 0, len(guides)),
		Total:  len(guides),
	}
	for _, guide := range guides {
		resp.Guides = append(resp.Guides, mapGuideResponse(guide))
	}

	return &GuideListOutput{Body: resp}, nil
}

func (s *Server) handleGetGuide(ctx context.Context, input *GetGuideInput) (*GuideOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	guide, err := s.services.Guide.GetGuide(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &GuideOutput{Body: mapGuideResponse(guide)}, nil
}

func (s *Server) handleUpdateGuide(ctx context.Context, input *UpdateGuideInput) (*GuideOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	req := service.UpdateGuideRequest{
		Name:         input.Body.Name,
		Shortcut:     input.Body.Shortcut,
		Description:  input.Body.Description,
		IsPublic:     input.Body.IsPublic,
		SharedEmails: input.Body.SharedEmails,
	}
	if input.Body.Steps != nil {
		steps := mapStepRequests(*input.Body.Steps)
		req.Steps = &steps
	}

	guide, err := s.services.Guide.UpdateGuide(ctx, user, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &GuideOutput{Body: mapGuideResponse(guide)}, nil
}

func (s *Server) handleDeleteGuide(ctx context.Context, input *DeleteGuideInput) (*struct{}, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Guide.DeleteGuide(ctx, user, input.ID); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *Server) handleExportGuide(ctx context.Context, input *ExportGuideInput) (*ExportGuideOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	export, err := s.services.Guide.ExportGuide(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &ExportGuideOutput{
		ContentType:        export.ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", export.Filename),
		Body:               []byte(export.Content),
	}, nil
}

// ExportGuideOutput serves the rendered Markdown document as a download.
// The raw body bypasses the JSON envelope.
type ExportGuideOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// === Helpers ===

func mapStepRequests(steps []StepRequest) []service.StepInput {
	if steps == nil {
		return nil
	}
	inputs := make([]service.StepInput, 0, len(steps))
	for _, step := range steps {
		inputs = append(inputs, service.StepInput{
			ID:            step.ID,
			Instruction:   step.Instruction,
			Action:        step.Action,
			Value:         step.Value,
			Selector:      step.Selector,
			ScreenshotURL: step.ScreenshotURL,
			Highlight:     mapHighlightInput(step.Highlight),
		})
	}
	return inputs
}

func mapHighlightInput(h *Highlight) *domain.Highlight {
	if h == nil {
		return nil
	}
	return &domain.Highlight{X: h.X, Y: h.Y, Width: h.Width, Height: h.Height}
}

func mapHighlightResponse(h *domain.Highlight) *Highlight {
	if h == nil {
		return nil
	}
	return &Highlight{X: h.X, Y: h.Y, Width: h.Width, Height: h.Height}
}

func mapStepResponses(steps []domain.Step) []StepResponse {
	resp := make([]StepResponse, 0, len(steps))
	for _, step := range steps {
		resp = append(resp, StepResponse{
			ID:            step.ID,
			Position:      step.Position,
			Instruction:   step.Instruction,
			Action:        step.Action,
			Value:         step.Value,
			Selector:      step.Selector,
			ScreenshotURL: step.ScreenshotURL,
			Highlight:     mapHighlightResponse(step.Highlight),
		})
	}
	return resp
}

func mapGuideResponse(guide *domain.Guide) GuideResponse {
	sharedEmails := guide.SharedEmails
	if sharedEmails == nil {
		sharedEmails = []string{}
	}

	return GuideResponse{
		ID:           guide.ID,
		OwnerID:      guide.OwnerID,
		Name:         guide.Name,
		Shortcut:     guide.Shortcut,
		Description:  guide.Description,
		IsPublic:     guide.IsPublic,
		SharedEmails: sharedEmails,
		HasShareLink: guide.HasShareToken(),
		Steps:        mapStepResponses(guide.Steps),
		CreatedAt:    guide.CreatedAt,
		UpdatedAt:    guide.UpdatedAt,
	}
}
