package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nodehub-cloud/orchestrator/internal/cloud"
	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
)

func seededRecord(status models.Status) *models.Deployment {
	now := time.Now().UTC()
	return &models.Deployment{
		OwnerID:           testOwner,
		DeploymentID:      "deploy-1700000000000-abc123",
		Status:            status,
		ModelService:      "inference",
		ModelIdentifier:   "llama-3-8b",
		Subdomain:         "deploy-1700000000000-abc123.deploy.test",
		PublicEndpoint:    "https://deploy-1700000000000-abc123.deploy.test",
		ServiceHandle:     "arn:service/nodehub-deploy-1700000000000-abc123",
		RouteTargetHandle: "arn:target/deploy-1700000000000-abc123",
		RouteRuleHandle:   "arn:rule/deploy-1700000000000-abc123",
		IsolationHandle:   "sg-deploy-1700000000000-abc123",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Get(context.Background(), testOwner, "deploy-0-missing", false)
	if !errdefs.IsCode(err, errdefs.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestGetUpgradesToActiveWhenProbeHealthy(t *testing.T) {
	env := newTestEnv()
	ts := healthServer(t, http.StatusOK)

	rec := seededRecord(models.StatusDeployed)
	rec.PublicEndpoint = ts.URL
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 1, DesiredCount: 1}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected ACTIVE, got %q", got.Status)
	}
	if got.ServiceStatus == nil || got.ServiceStatus.RunningCount != 1 {
		t.Fatalf("expected live service counts, got %+v", got.ServiceStatus)
	}

	// The derived status is persisted, not just returned.
	stored := env.repo.stored(rec.OwnerID, rec.DeploymentID)
	if stored.Status != models.StatusActive {
		t.Fatalf("expected persisted ACTIVE, got %q", stored.Status)
	}
}

func TestGetStaysDeployedWhenProbeFails(t *testing.T) {
	env := newTestEnv()
	ts := healthServer(t, http.StatusInternalServerError)

	rec := seededRecord(models.StatusActive)
	rec.PublicEndpoint = ts.URL
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 1, DesiredCount: 1}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	// A failed probe caps the status at DEPLOYED, never below.
	if got.Status != models.StatusDeployed {
		t.Fatalf("expected DEPLOYED, got %q", got.Status)
	}
}

func TestGetStaysDeployedWhenEndpointUnreachable(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusDeployed)
	rec.PublicEndpoint = "http://127.0.0.1:1"
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 1, DesiredCount: 1}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusDeployed {
		t.Fatalf("expected DEPLOYED, got %q", got.Status)
	}
}

func TestGetFailsWhenNothingRunsAndNoRollout(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusDeployed)
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 0, DesiredCount: 1}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusFailed {
		t.Fatalf("expected FAILED, got %q", got.Status)
	}
}

func TestGetKeepsStatusDuringRollout(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusDeploying)
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 0, DesiredCount: 1, RolloutInFlight: true}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusDeploying {
		t.Fatalf("expected DEPLOYING to stick during rollout, got %q", got.Status)
	}
}

func TestGetMapsDrainingToDeleting(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusDeployed)
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "DRAINING", RunningCount: 1, DesiredCount: 0}

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusDeleting {
		t.Fatalf("expected DELETING, got %q", got.Status)
	}
}

func TestGetKeepsStoredStatusOnDescribeFailure(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusActive)
	env.repo.seed(rec)
	env.cluster.describeErr = context.DeadlineExceeded

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("reconciliation failure must not surface: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected last-known ACTIVE, got %q", got.Status)
	}
}

func TestGetReturnsDerivedStatusWhenPersistFails(t *testing.T) {
	env := newTestEnv()

	rec := seededRecord(models.StatusDeployed)
	env.repo.seed(rec)
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 0, DesiredCount: 1}
	env.repo.putErr = context.DeadlineExceeded

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusFailed {
		t.Fatalf("expected derived FAILED despite persist failure, got %q", got.Status)
	}
}

func TestGetEndpointOnlyWorkloadUpgrades(t *testing.T) {
	env := newTestEnv()
	ts := healthServer(t, http.StatusOK)

	rec := seededRecord(models.StatusDeploying)
	rec.ServiceHandle = ""
	rec.PublicEndpoint = ts.URL
	env.repo.seed(rec)

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected ACTIVE from probe alone, got %q", got.Status)
	}
}

func TestGetAttachesRecentLogs(t *testing.T) {
	env := newTestEnv()
	env.logs.events = []models.LogEvent{
		{Timestamp: time.Now(), Message: "broker listening on :3080"},
	}

	rec := seededRecord(models.StatusActive)
	rec.ServiceHandle = ""
	rec.PublicEndpoint = ""
	env.repo.seed(rec)

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, true)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Logs) != 1 || got.Logs[0].Message != "broker listening on :3080" {
		t.Fatalf("expected log line attached, got %+v", got.Logs)
	}
}

func TestGetLogFailureYieldsEmptyLogs(t *testing.T) {
	env := newTestEnv()
	env.logs.err = context.DeadlineExceeded

	rec := seededRecord(models.StatusActive)
	rec.ServiceHandle = ""
	rec.PublicEndpoint = ""
	env.repo.seed(rec)

	got, err := env.svc.Get(context.Background(), rec.OwnerID, rec.DeploymentID, true)
	if err != nil {
		t.Fatalf("log failure must not surface: %v", err)
	}
	if got.Logs == nil || len(got.Logs) != 0 {
		t.Fatalf("expected empty log slice, got %v", got.Logs)
	}
}

func TestListNewestFirstWithStatusFilter(t *testing.T) {
	env := newTestEnv()
	base := time.Now().UTC()
	for i, status := range []models.Status{models.StatusFailed, models.StatusDeployed, models.StatusFailed} {
		rec := seededRecord(status)
		rec.DeploymentID = "deploy-170000000000" + string(rune('0'+i)) + "-abc"
		rec.ServiceHandle = ""
		rec.PublicEndpoint = ""
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		env.repo.seed(rec)
	}

	all, err := env.svc.List(context.Background(), testOwner, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatal("expected newest-first ordering")
		}
	}

	failed, err := env.svc.List(context.Background(), testOwner, models.StatusFailed)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 FAILED records, got %d", len(failed))
	}
}

func TestListReconcilesEachRecord(t *testing.T) {
	env := newTestEnv()
	env.cluster.state = &cloud.ServiceState{Status: "ACTIVE", RunningCount: 1, DesiredCount: 1}

	for i := 0; i < 2; i++ {
		rec := seededRecord(models.StatusDeploying)
		rec.DeploymentID = "deploy-170000000000" + string(rune('0'+i)) + "-abc"
		rec.PublicEndpoint = "http://127.0.0.1:1"
		env.repo.seed(rec)
	}

	records, err := env.svc.List(context.Background(), testOwner, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	for _, rec := range records {
		if rec.Status != models.StatusDeployed {
			t.Fatalf("expected each record reconciled to DEPLOYED, got %q", rec.Status)
		}
	}
}
