package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nodehub-cloud/orchestrator/api/rest/v1/schemas"
	"github.com/nodehub-cloud/orchestrator/internal/cache"
	"github.com/nodehub-cloud/orchestrator/internal/cloud"
	"github.com/nodehub-cloud/orchestrator/internal/config"
	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
	"github.com/nodehub-cloud/orchestrator/internal/repository"
	"github.com/nodehub-cloud/orchestrator/internal/storage"
	"github.com/nodehub-cloud/orchestrator/internal/taskspec"
	"github.com/nodehub-cloud/orchestrator/internal/utils"
)

const defaultVerificationMethod = "TeeML"

// DeploymentService orchestrates the provisioning, reconciliation and
// teardown pipelines for inference-node workloads.
type DeploymentService interface {
	Create(ctx context.Context, req schemas.CreateDeploymentRequest) (*schemas.CreateDeploymentResponse, error)
	Get(ctx context.Context, ownerID, deploymentID string, includeLogs bool) (*models.Deployment, error)
	List(ctx context.Context, ownerID string, status models.Status) ([]*models.Deployment, error)
	Delete(ctx context.Context, ownerID, deploymentID string) error
}

type deploymentService struct {
	cfg       *config.Config
	repo      repository.DeploymentRepository
	cluster   cloud.ClusterClient
	routing   cloud.RoutingClient
	network   cloud.NetworkClient
	logQuery  cloud.LogClient
	artifacts storage.ArtifactStore
	probes    *cache.ProbeCache // nil disables probe caching
	log       *zap.Logger

	httpClient *http.Client
	now        func() time.Time
	newID      func() string
	sleep      func(time.Duration)
}

// Deps bundles the capability clients the service is built from.
type Deps struct {
	Repo      repository.DeploymentRepository
	Cluster   cloud.ClusterClient
	Routing   cloud.RoutingClient
	Network   cloud.NetworkClient
	LogQuery  cloud.LogClient
	Artifacts storage.ArtifactStore
	Probes    *cache.ProbeCache
	Logger    *zap.Logger
}

// NewDeploymentService creates a new instance of DeploymentService.
func NewDeploymentService(cfg *config.Config, deps Deps) DeploymentService {
	return &deploymentService{
		cfg:        cfg,
		repo:       deps.Repo,
		cluster:    deps.Cluster,
		routing:    deps.Routing,
		network:    deps.Network,
		logQuery:   deps.LogQuery,
		artifacts:  deps.Artifacts,
		probes:     deps.Probes,
		log:        deps.Logger,
		httpClient: &http.Client{Timeout: probeTimeout},
		now:        time.Now,
		newID:      utils.NewDeploymentID,
		sleep:      time.Sleep,
	}
}

func validateCreateRequest(req schemas.CreateDeploymentRequest) error {
	if req.OwnerID == "" || req.ModelService == "" || req.ModelIdentifier == "" || req.WalletKeyMaterial == "" {
		return errdefs.New(errdefs.CodeInvalidRequest,
			"missing required fields: ownerId, modelService, modelIdentifier, walletKeyMaterial")
	}
	if !utils.IsOwnerAddress(req.OwnerID) {
		return errdefs.New(errdefs.CodeInvalidRequest, "invalid wallet address format")
	}
	return nil
}

// Create runs the provisioning pipeline. The record is persisted with
// status DEPLOYING before any cloud resource is touched, resource
// handles are attached as each step succeeds, and a failing step rolls
// the record to FAILED without reclaiming what was already created.
func (s *deploymentService) Create(ctx context.Context, req schemas.CreateDeploymentRequest) (*schemas.CreateDeploymentResponse, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	verification := req.VerificationMethod
	if verification == "" {
		verification = defaultVerificationMethod
	}

	deploymentID := s.newID()
	subdomain := fmt.Sprintf("%s.%s", deploymentID, s.cfg.DeploymentDomain)
	hostname := subdomain
	if req.Domain != "" {
		hostname = req.Domain
	}

	now := s.now().UTC()
	record := &models.Deployment{
		OwnerID:            req.OwnerID,
		DeploymentID:       deploymentID,
		Status:             models.StatusDeploying,
		ModelService:       req.ModelService,
		ModelIdentifier:    req.ModelIdentifier,
		VerificationMethod: verification,
		Domain:             req.Domain,
		Subdomain:          hostname,
		PublicEndpoint:     "https://" + hostname,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// The DEPLOYING row is the durable intent log; it must exist before
	// the first cloud call so a crash leaves an inspectable record.
	if err := s.repo.Put(ctx, record); err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeProvisioningFailed, "persist deployment record")
	}

	params := taskspec.Params{
		DeploymentID:       deploymentID,
		OwnerAddress:       req.OwnerID,
		ModelService:       req.ModelService,
		ModelIdentifier:    req.ModelIdentifier,
		VerificationMethod: verification,
		Hostname:           hostname,
		WalletKey:          req.WalletKeyMaterial,
		BrokerImage:        s.cfg.BrokerImage,
		ProxyImage:         s.cfg.ProxyImage,
		LedgerImage:        s.cfg.LedgerImage,
		ProvingImage:       s.cfg.ProvingImage,
		InitImage:          s.cfg.InitImage,
		ArtifactBucket:     s.cfg.ArtifactBucket,
		ArtifactPrefix:     s.cfg.ArtifactPrefix,
		ChainRPCURL:        s.cfg.ChainRPCURL,
		ChainID:            s.cfg.ChainID,
	}

	if err := s.provision(ctx, record, params); err != nil {
		return nil, s.failProvisioning(ctx, record, err)
	}

	record.Status = models.StatusDeployed
	record.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, record); err != nil {
		return nil, s.failProvisioning(ctx, record, fmt.Errorf("persist deployed record: %w", err))
	}

	return &schemas.CreateDeploymentResponse{
		Success:        true,
		DeploymentID:   deploymentID,
		PublicEndpoint: record.PublicEndpoint,
		Subdomain:      record.Subdomain,
		Status:         string(models.StatusDeployed),
		Message:        "Deployment initiated successfully. It may take a few minutes to become fully available.",
	}, nil
}

// provision executes the ordered resource-creation steps, attaching each
// handle to the record as soon as it exists.
func (s *deploymentService) provision(ctx context.Context, record *models.Deployment, params taskspec.Params) error {
	brokerConfig, err := taskspec.RenderBrokerConfig(params)
	if err != nil {
		return err
	}
	proxyConfig, err := taskspec.RenderProxyConfig(params)
	if err != nil {
		return err
	}
	err = s.artifacts.PutArtifacts(ctx, record.DeploymentID, map[string][]byte{
		taskspec.BrokerConfigArtifact: brokerConfig,
		taskspec.ProxyConfigArtifact:  proxyConfig,
	})
	if err != nil {
		return err
	}

	isolation, err := s.network.CreateIsolation(ctx, record.DeploymentID)
	if isolation != "" {
		record.IsolationHandle = isolation
	}
	if err != nil {
		return err
	}

	task, err := taskspec.Build(params)
	if err != nil {
		return err
	}
	taskDefinition, err := s.cluster.RegisterTaskDefinition(ctx, task)
	if err != nil {
		return err
	}

	target, err := s.routing.CreateTarget(ctx, record.DeploymentID, record.OwnerID)
	if err != nil {
		return err
	}
	record.RouteTargetHandle = target

	rule, err := s.routing.CreateRule(ctx, record.Subdomain, target, record.DeploymentID, record.OwnerID)
	if err != nil {
		return err
	}
	record.RouteRuleHandle = rule

	service, err := s.cluster.CreateService(ctx, cloud.ServiceInput{
		Name:           "nodehub-" + record.DeploymentID,
		TaskDefinition: taskDefinition,
		RouteTargetARN: target,
		IsolationGroup: isolation,
		OwnerID:        record.OwnerID,
		DeploymentID:   record.DeploymentID,
	})
	if err != nil {
		return err
	}
	record.ServiceHandle = service

	return nil
}

// failProvisioning rolls the record to FAILED, keeping whatever handles
// were already attached, and returns the provisioning error for the
// caller. Resources created before the failing step stay in place for
// inspection or a follow-up delete.
func (s *deploymentService) failProvisioning(ctx context.Context, record *models.Deployment, cause error) error {
	record.Status = models.StatusFailed
	record.ErrorMessage = cause.Error()
	record.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, record); err != nil {
		s.log.Error("failed to persist FAILED status",
			zap.String("deploymentId", record.DeploymentID),
			zap.Error(err))
	}
	return errdefs.Wrap(cause, errdefs.CodeProvisioningFailed, "deployment creation failed")
}
