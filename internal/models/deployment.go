package models

import "time"

// Status is the lifecycle state of a deployment record.
type Status string

const (
	StatusDeploying    Status = "DEPLOYING"
	StatusDeployed     Status = "DEPLOYED"
	StatusActive       Status = "ACTIVE"
	StatusFailed       Status = "FAILED"
	StatusDeleting     Status = "DELETING"
	StatusDeleteFailed Status = "DELETE_FAILED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDeploying, StatusDeployed, StatusActive, StatusFailed, StatusDeleting, StatusDeleteFailed:
		return true
	}
	return false
}

// Deployment is the persisted record for one provisioned inference-node
// workload. OwnerID is the partition key and DeploymentID the sort key.
// The resource handles are populated incrementally as provisioning
// succeeds; each can be empty when a step never ran.
type Deployment struct {
	OwnerID      string `json:"ownerId" dynamodbav:"ownerId"`
	DeploymentID string `json:"deploymentId" dynamodbav:"deploymentId"`
	Status       Status `json:"status" dynamodbav:"status"`

	ModelService       string `json:"modelService" dynamodbav:"modelService"`
	ModelIdentifier    string `json:"modelIdentifier" dynamodbav:"modelIdentifier"`
	VerificationMethod string `json:"verificationMethod" dynamodbav:"verificationMethod"`
	Domain             string `json:"domain,omitempty" dynamodbav:"domain,omitempty"`

	Subdomain      string `json:"subdomain" dynamodbav:"subdomain"`
	PublicEndpoint string `json:"publicEndpoint" dynamodbav:"publicEndpoint"`

	ServiceHandle     string `json:"serviceHandle,omitempty" dynamodbav:"serviceHandle,omitempty"`
	RouteTargetHandle string `json:"routeTargetHandle,omitempty" dynamodbav:"routeTargetHandle,omitempty"`
	RouteRuleHandle   string `json:"routeRuleHandle,omitempty" dynamodbav:"routeRuleHandle,omitempty"`
	IsolationHandle   string `json:"isolationHandle,omitempty" dynamodbav:"isolationHandle,omitempty"`

	ErrorMessage string `json:"errorMessage,omitempty" dynamodbav:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`

	// Read-time attachments, never persisted.
	ServiceStatus *ServiceStatus `json:"serviceStatus,omitempty" dynamodbav:"-"`
	Logs          []LogEvent     `json:"logs,omitempty" dynamodbav:"-"`
}

// ServiceStatus is the live container-group state attached on read.
type ServiceStatus struct {
	RunningCount int32  `json:"runningCount"`
	PendingCount int32  `json:"pendingCount"`
	DesiredCount int32  `json:"desiredCount"`
	Status       string `json:"status"`
}

// LogEvent is a single recent log line attached when logs are requested.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
