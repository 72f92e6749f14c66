package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerShareRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "issueShareToken",
		Method:        http.MethodPost,
		Path:          "/api/v1/guides/{id}/share-token",
		Summary:       "Issue share link",
		Description:   "Mints a multi-use share token for the guide, replacing any previous one. Owner only. This response is the only place the token ever appears.",
		Tags:          []string{"Sharing"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleIssueShareToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "redeemShareToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/guides/share/access/{token}",
		Summary:     "Redeem share link",
		Description: "Grants the caller's email access to the guide behind the token and returns the guide. Unknown and revoked tokens are indistinguishable.",
		Tags:        []string{"Sharing"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRedeemShareToken)
}

// === DTOs ===

// IssueShareTokenInput contains parameters for minting a share token.
type IssueShareTokenInput struct {
	ID string `path:"id" doc:"Guide ID"`
}

// ShareTokenResponse carries a freshly minted share token.
type ShareTokenResponse struct {
	GuideID    string `json:"guide_id" doc:"Guide the token grants access to"`
	ShareToken string `json:"share_token" doc:"Multi-use claim token; store it now, it is never returned again"`
}

// ShareTokenOutput wraps the share token response for Huma.
type ShareTokenOutput struct {
	Body ShareTokenResponse
}

// RedeemShareTokenInput contains parameters for redeeming a share token.
type RedeemShareTokenInput struct {
	Token string `path:"token" doc:"Share token from a guide link"`
}

// === Handlers ===

func (s *Server) handleIssueShareToken(ctx context.Context, input *IssueShareTokenInput) (*ShareTokenOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.services.Share.IssueShareToken(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &ShareTokenOutput{
		Body: ShareTokenResponse{
			GuideID:    input.ID,
			ShareToken: token,
		},
	}, nil
}

func (s *Server) handleRedeemShareToken(ctx context.Context, input *RedeemShareTokenInput) (*GuideOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	guide, err := s.services.Share.RedeemShareToken(ctx, user, input.Token)
	if err != nil {
		return nil, err
	}

	return &GuideOutput{Body: mapGuideResponse(guide)}, nil
}
