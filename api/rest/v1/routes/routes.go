package routes

import (
	"github.com/nodehub-cloud/orchestrator/api/rest/server"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/middleware"
	"github.com/nodehub-cloud/orchestrator/internal/services"
)

func RegisterRoutes(srv *server.Server, deploymentService services.DeploymentService) {
	srv.Engine.Use(middleware.CORS())
	deploymentRoutes(deploymentService, srv.Engine)
}
