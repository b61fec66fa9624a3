package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
	"github.com/nodehub-cloud/orchestrator/internal/repository"
)

const (
	probeTimeout  = 10 * time.Second
	probeCacheTTL = 15 * time.Second

	logWindow = 24 * time.Hour
	logLimit  = 100
)

// Get returns one reconciled record for the owner, optionally with its
// recent log lines attached.
func (s *deploymentService) Get(ctx context.Context, ownerID, deploymentID string, includeLogs bool) (*models.Deployment, error) {
	record, err := s.repo.Get(ctx, ownerID, deploymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errdefs.New(errdefs.CodeNotFound, "deployment not found")
		}
		return nil, err
	}

	s.reconcile(ctx, record)

	if includeLogs {
		record.Logs = s.recentLogs(ctx, deploymentID)
	}
	return record, nil
}

// List returns all of the owner's records newest first, each reconciled
// independently. The optional status filter restricts the result set
// without affecting reconciliation.
func (s *deploymentService) List(ctx context.Context, ownerID string, status models.Status) ([]*models.Deployment, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		s.reconcile(ctx, record)
	}
	return records, nil
}

// reconcile derives the record's status from live infrastructure state
// and persists the change when it differs from the stored value. Every
// reconciliation-source failure is swallowed and logged so reads stay
// available; the record is left at its last-known status.
func (s *deploymentService) reconcile(ctx context.Context, record *models.Deployment) {
	derived := s.deriveStatus(ctx, record)
	if derived == record.Status {
		return
	}

	record.Status = derived
	record.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, record); err != nil {
		// The returned record still carries the freshly derived status.
		s.log.Warn("failed to persist reconciled status",
			zap.String("deploymentId", record.DeploymentID),
			zap.String("status", string(derived)),
			zap.Error(err))
	}
}

func (s *deploymentService) deriveStatus(ctx context.Context, record *models.Deployment) models.Status {
	if record.ServiceHandle == "" {
		// Simplified workloads have no service to describe; a probe
		// success while still deploying is the readiness signal.
		if record.Status == models.StatusDeploying && record.PublicEndpoint != "" && s.probeHealthy(ctx, record) {
			return models.StatusActive
		}
		return record.Status
	}

	state, err := s.cluster.DescribeService(ctx, record.ServiceHandle)
	if err != nil {
		s.log.Warn("failed to describe service",
			zap.String("deploymentId", record.DeploymentID),
			zap.Error(err))
		return record.Status
	}
	record.ServiceStatus = &models.ServiceStatus{
		RunningCount: state.RunningCount,
		PendingCount: state.PendingCount,
		DesiredCount: state.DesiredCount,
		Status:       state.Status,
	}

	switch {
	case state.Status == "DRAINING":
		return models.StatusDeleting
	case state.RunningCount >= 1:
		// The probe is additive evidence on top of a healthy runtime:
		// it can upgrade to ACTIVE but never downgrade below DEPLOYED.
		if record.PublicEndpoint != "" && s.probeHealthy(ctx, record) {
			return models.StatusActive
		}
		return models.StatusDeployed
	case state.RolloutInFlight:
		return record.Status
	default:
		return models.StatusFailed
	}
}

// probeHealthy performs the bounded health probe against the public
// endpoint, consulting the probe cache first. Any failure counts as
// unhealthy and is logged, never raised.
func (s *deploymentService) probeHealthy(ctx context.Context, record *models.Deployment) bool {
	if s.probes != nil {
		if healthy, ok := s.probes.Get(ctx, record.DeploymentID); ok {
			return healthy
		}
	}

	healthy := s.probeEndpoint(ctx, record.PublicEndpoint+"/health")

	if s.probes != nil {
		if err := s.probes.Set(ctx, record.DeploymentID, healthy, probeCacheTTL); err != nil {
			s.log.Debug("failed to cache probe result",
				zap.String("deploymentId", record.DeploymentID),
				zap.Error(err))
		}
	}
	return healthy
}

func (s *deploymentService) probeEndpoint(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Debug("health probe failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// recentLogs fetches a bounded window of recent log lines for the
// deployment. A log-query failure yields an empty slice.
func (s *deploymentService) recentLogs(ctx context.Context, deploymentID string) []models.LogEvent {
	events, err := s.logQuery.RecentEvents(ctx, deploymentID, s.now().Add(-logWindow), logLimit)
	if err != nil {
		s.log.Warn("failed to fetch deployment logs",
			zap.String("deploymentId", deploymentID),
			zap.Error(err))
		return []models.LogEvent{}
	}
	return events
}
