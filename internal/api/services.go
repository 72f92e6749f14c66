package api

import (
	"github.com/guidepostapp/guidepost-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Instance *service.InstanceService
	Auth     *service.AuthService
	Session  *service.SessionService
	Guide    *service.GuideService
	Share    *service.ShareService
	Search   *service.SearchService
}
