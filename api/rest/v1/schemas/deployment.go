package schemas

import "github.com/nodehub-cloud/orchestrator/internal/models"

// CreateDeploymentRequest represents the request body for provisioning a
// new inference node
// @Description Deployment creation request
type CreateDeploymentRequest struct {
	OwnerID            string `json:"ownerId" binding:"required"`           // Wallet address that owns the deployment
	ModelService       string `json:"modelService" binding:"required"`      // Model service reference
	ModelIdentifier    string `json:"modelIdentifier" binding:"required"`   // Model to serve
	WalletKeyMaterial  string `json:"walletKeyMaterial" binding:"required"` // Key material the broker signs with
	VerificationMethod string `json:"verificationMethod"`                   // Defaults to TeeML
	Domain             string `json:"domain"`                               // Optional custom domain
}

// CreateDeploymentResponse represents the response body for a successful
// provisioning call
// @Description Deployment creation response
type CreateDeploymentResponse struct {
	Success        bool   `json:"success"`
	DeploymentID   string `json:"deploymentId"`
	PublicEndpoint string `json:"publicEndpoint"`
	Subdomain      string `json:"subdomain"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// ListDeploymentsResponse wraps an owner's reconciled records
// @Description Deployment listing response
type ListDeploymentsResponse struct {
	Deployments []*models.Deployment `json:"deployments"`
	Count       int                  `json:"count"`
}

// DeleteDeploymentResponse represents the response body for a teardown
// @Description Deployment deletion response
type DeleteDeploymentResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeploymentID string `json:"deploymentId"`
}
