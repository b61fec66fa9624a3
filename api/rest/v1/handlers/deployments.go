package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	v1 "github.com/nodehub-cloud/orchestrator/api/rest/v1"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/schemas"
	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
	"github.com/nodehub-cloud/orchestrator/internal/services"
)

type DeploymentHandler struct {
	service services.DeploymentService
}

func NewDeploymentHandler(service services.DeploymentService) *DeploymentHandler {
	return &DeploymentHandler{service: service}
}

func (h *DeploymentHandler) HandleCreateDeployment(c *gin.Context) error {
	var req schemas.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return v1.Failure(http.StatusBadRequest,
				"missing required fields: ownerId, modelService, modelIdentifier, walletKeyMaterial")
		}
		return v1.Failure(http.StatusBadRequest, "invalid request body")
	}

	// Delegate the pipeline to the service layer
	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errdefs.IsCode(err, errdefs.CodeInvalidRequest) {
			return v1.Failure(http.StatusBadRequest, errdefs.Message(err))
		}
		return v1.Failure(http.StatusInternalServerError, errdefs.Message(err))
	}

	c.JSON(http.StatusOK, resp)
	return nil
}

func (h *DeploymentHandler) HandleListDeployments(c *gin.Context) error {
	status := models.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		return v1.APIError{Code: http.StatusBadRequest, Err: "unknown status filter"}
	}

	deployments, err := h.service.List(c.Request.Context(), c.Param("ownerId"), status)
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, schemas.ListDeploymentsResponse{
		Deployments: deployments,
		Count:       len(deployments),
	})
	return nil
}

func (h *DeploymentHandler) HandleGetDeployment(c *gin.Context) error {
	includeLogs := c.Query("logs") == "true"

	deployment, err := h.service.Get(c.Request.Context(), c.Param("ownerId"), c.Param("deploymentId"), includeLogs)
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, deployment)
	return nil
}

func (h *DeploymentHandler) HandleDeleteDeployment(c *gin.Context) error {
	deploymentID := c.Param("deploymentId")

	if err := h.service.Delete(c.Request.Context(), c.Param("ownerId"), deploymentID); err != nil {
		return err
	}

	c.JSON(http.StatusOK, schemas.DeleteDeploymentResponse{
		Success:      true,
		Message:      "Deployment deleted successfully",
		DeploymentID: deploymentID,
	})
	return nil
}
