package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
	"github.com/nodehub-cloud/orchestrator/internal/repository"
)

// Fixed grace periods for the platform's eventual consistency: the
// service drains in-flight connections before deletion, and dependent
// routing and isolation resources release their references slowly.
const (
	serviceDrainGrace    = 30 * time.Second
	targetDeletionGrace  = 30 * time.Second
	isolationDeleteGrace = 30 * time.Second
)

// Delete runs the teardown pipeline: mark the record DELETING, run the
// best-effort resource-deletion branches concurrently, then remove the
// record. Branch failures are logged and never block the other
// branches; only a failure to remove the record itself is escalated,
// leaving the record in DELETE_FAILED for retry.
func (s *deploymentService) Delete(ctx context.Context, ownerID, deploymentID string) error {
	record, err := s.repo.Get(ctx, ownerID, deploymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errdefs.New(errdefs.CodeNotFound, "deployment not found")
		}
		return err
	}

	// Persist the transition first so concurrent reads observe it.
	record.Status = models.StatusDeleting
	record.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, record); err != nil {
		return s.failTeardown(ctx, record, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	branch := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				s.log.Warn("teardown branch failed",
					zap.String("deploymentId", record.DeploymentID),
					zap.String("branch", name),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
		}()
	}

	if record.ServiceHandle != "" {
		branch("service", func() error {
			if err := s.cluster.ScaleService(ctx, record.ServiceHandle, 0); err != nil {
				return err
			}
			s.sleep(serviceDrainGrace)
			return s.cluster.DeleteService(ctx, record.ServiceHandle)
		})
	}

	if record.RouteTargetHandle != "" {
		branch("routing-target", func() error {
			s.sleep(targetDeletionGrace)
			return s.routing.DeleteTarget(ctx, record.RouteTargetHandle)
		})
	}

	branch("routing-rule", func() error {
		rule := record.RouteRuleHandle
		if rule == "" {
			// Records written before the rule handle was persisted need
			// a scan over the listener's rules by hostname.
			found, err := s.routing.FindRuleByHost(ctx, record.Subdomain)
			if err != nil {
				return err
			}
			if found == "" {
				return nil
			}
			rule = found
		}
		return s.routing.DeleteRule(ctx, rule)
	})

	branch("artifacts", func() error {
		return s.artifacts.DeleteArtifacts(ctx, record.DeploymentID)
	})

	if record.IsolationHandle != "" {
		branch("isolation", func() error {
			s.sleep(isolationDeleteGrace)
			return s.network.DeleteIsolation(ctx, record.IsolationHandle)
		})
	}

	wg.Wait()

	if len(failed) > 0 {
		s.log.Warn("teardown completed with partial failures",
			zap.String("deploymentId", record.DeploymentID),
			zap.Strings("branches", failed))
	}

	if err := s.repo.Delete(ctx, ownerID, deploymentID); err != nil {
		return s.failTeardown(ctx, record, err)
	}
	return nil
}

// failTeardown marks the record DELETE_FAILED so it stays visible for
// manual or automated retry instead of disappearing silently.
func (s *deploymentService) failTeardown(ctx context.Context, record *models.Deployment, cause error) error {
	record.Status = models.StatusDeleteFailed
	record.ErrorMessage = cause.Error()
	record.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, record); err != nil {
		s.log.Error("failed to persist DELETE_FAILED status",
			zap.String("deploymentId", record.DeploymentID),
			zap.Error(err))
	}
	return errdefs.Wrap(cause, errdefs.CodeTeardownFailed, "deployment deletion failed")
}
