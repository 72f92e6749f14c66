package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerInstanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getInstance",
		Method:      http.MethodGet,
		Path:        "/api/v1/instance",
		Summary:     "Get server instance",
		Description: "Returns server identity so clients and discovery can verify what they are talking to",
		Tags:        []string{"Instance"},
	}, s.handleGetInstance)
}

// InstanceResponse contains server instance data in API responses.
type InstanceResponse struct {
	ID        string    `json:"id" doc:"Instance ID"`
	Name      string    `json:"name" doc:"Server name"`
	Version   string    `json:"version" doc:"Server version"`
	LocalURL  string    `json:"local_url,omitempty" doc:"Local network URL"`
	SetupAt   time.Time `json:"setup_at" doc:"First boot timestamp"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// InstanceOutput wraps the instance response for Huma.
type InstanceOutput struct {
	Body InstanceResponse
}

func (s *Server) handleGetInstance(ctx context.Context, _ *struct{}) (*InstanceOutput, error) {
	instance, err := s.services.Instance.GetInstance(ctx)
	if err != nil {
		s.logger.Error("failed to get instance", "error", err)
		return nil, err
	}

	return &InstanceOutput{
		Body: InstanceResponse{
			ID:        instance.ID,
			Name:      instance.Name,
			Version:   instance.Version,
			LocalURL:  instance.LocalUrl,
			SetupAt:   instance.SetupAt,
			UpdatedAt: instance.UpdatedAt,
		},
	}, nil
}
