package routes

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/nodehub-cloud/orchestrator/api/rest/v1"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/handlers"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/middleware"
	"github.com/nodehub-cloud/orchestrator/internal/services"
)

// @Summary Create a new deployment
// @Description Provisions a tenant-owned inference node behind a unique generated hostname
// @Tags Deployments
// @Accept json
// @Produce json
// @Param request body schemas.CreateDeploymentRequest true "Deployment parameters"
// @Success 200 {object} schemas.CreateDeploymentResponse
// @Failure 400 {object} v1.APIError
// @Failure 500 {object} v1.APIError
// @Router /deployments [post]
func handleCreateDeployment(handler *handlers.DeploymentHandler, router gin.IRoutes) {
	router.POST("/deployments", v1.ErrorHandler(handler.HandleCreateDeployment))
}

// @Summary List an owner's deployments
// @Description Returns the owner's reconciled deployment records, newest first
// @Tags Deployments
// @Produce json
// @Param ownerId path string true "Owner wallet address"
// @Param status query string false "Status filter" Enums(DEPLOYING, DEPLOYED, ACTIVE, FAILED, DELETING, DELETE_FAILED)
// @Success 200 {object} schemas.ListDeploymentsResponse
// @Failure 400 {object} v1.APIError
// @Router /deployments/{ownerId} [get]
func handleListDeployments(handler *handlers.DeploymentHandler, router gin.IRoutes) {
	router.GET("/deployments/:ownerId", middleware.OwnerAddressValidator(), v1.ErrorHandler(handler.HandleListDeployments))
}

// @Summary Get one deployment
// @Description Returns a single reconciled deployment record, optionally with recent logs
// @Tags Deployments
// @Produce json
// @Param ownerId path string true "Owner wallet address"
// @Param deploymentId path string true "Deployment identifier"
// @Param logs query bool false "Attach recent log lines"
// @Success 200 {object} models.Deployment
// @Failure 404 {object} v1.APIError
// @Router /deployments/{ownerId}/{deploymentId} [get]
func handleGetDeployment(handler *handlers.DeploymentHandler, router gin.IRoutes) {
	router.GET("/deployments/:ownerId/:deploymentId", middleware.OwnerAddressValidator(), v1.ErrorHandler(handler.HandleGetDeployment))
}

// @Summary Delete a deployment
// @Description Tears down all provisioned resources and removes the record
// @Tags Deployments
// @Produce json
// @Param ownerId path string true "Owner wallet address"
// @Param deploymentId path string true "Deployment identifier"
// @Success 200 {object} schemas.DeleteDeploymentResponse
// @Failure 404 {object} v1.APIError
// @Failure 500 {object} v1.APIError
// @Router /deployments/{ownerId}/{deploymentId} [delete]
func handleDeleteDeployment(handler *handlers.DeploymentHandler, router gin.IRoutes) {
	router.DELETE("/deployments/:ownerId/:deploymentId", middleware.OwnerAddressValidator(), v1.ErrorHandler(handler.HandleDeleteDeployment))
}

func deploymentRoutes(service services.DeploymentService, router gin.IRoutes) {
	handler := handlers.NewDeploymentHandler(service)
	handleCreateDeployment(handler, router)
	handleListDeployments(handler, router)
	handleGetDeployment(handler, router)
	handleDeleteDeployment(handler, router)
}
