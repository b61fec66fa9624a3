package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nodehub-cloud/orchestrator/api/rest/server"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/schemas"
	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
	"github.com/nodehub-cloud/orchestrator/internal/models"
)

const testOwner = "0x1234567890abcdef1234567890abcdef12345678"

type fakeService struct {
	createResp *schemas.CreateDeploymentResponse
	createErr  error
	lastCreate schemas.CreateDeploymentRequest

	getResp *models.Deployment
	getErr  error
	gotLogs bool

	listResp   []*models.Deployment
	listErr    error
	lastStatus models.Status

	deleteErr error
	deletedID string
}

func (f *fakeService) Create(ctx context.Context, req schemas.CreateDeploymentRequest) (*schemas.CreateDeploymentResponse, error) {
	f.lastCreate = req
	return f.createResp, f.createErr
}

func (f *fakeService) Get(ctx context.Context, ownerID, deploymentID string, includeLogs bool) (*models.Deployment, error) {
	f.gotLogs = includeLogs
	return f.getResp, f.getErr
}

func (f *fakeService) List(ctx context.Context, ownerID string, status models.Status) ([]*models.Deployment, error) {
	f.lastStatus = status
	return f.listResp, f.listErr
}

func (f *fakeService) Delete(ctx context.Context, ownerID, deploymentID string) error {
	f.deletedID = deploymentID
	return f.deleteErr
}

func serve(svc *fakeService, method, path, body string) *httptest.ResponseRecorder {
	srv := server.NewServer(":0")
	RegisterRoutes(srv, svc)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, req)
	return w
}

func TestCreateDeploymentOK(t *testing.T) {
	svc := &fakeService{
		createResp: &schemas.CreateDeploymentResponse{
			Success:        true,
			DeploymentID:   "deploy-1700000000000-abc123",
			PublicEndpoint: "https://deploy-1700000000000-abc123.deploy.test",
			Subdomain:      "deploy-1700000000000-abc123.deploy.test",
			Status:         string(models.StatusDeployed),
			Message:        "Deployment initiated successfully. It may take a few minutes to become fully available.",
		},
	}

	body := `{"ownerId":"` + testOwner + `","modelService":"inference","modelIdentifier":"llama-3-8b","walletKeyMaterial":"secret"}`
	w := serve(svc, http.MethodPost, "/deployments", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp schemas.CreateDeploymentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.Success || resp.DeploymentID != "deploy-1700000000000-abc123" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.lastCreate.OwnerID != testOwner {
		t.Fatalf("request not forwarded to service: %+v", svc.lastCreate)
	}
}

func TestCreateDeploymentMissingField(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodPost, "/deployments", `{"ownerId":"`+testOwner+`"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Error   string `json:"error"`
		Success *bool  `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !strings.Contains(resp.Error, "missing required fields") {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if resp.Success == nil || *resp.Success {
		t.Fatal("expected success:false in the body")
	}
}

func TestCreateDeploymentMalformedBody(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodPost, "/deployments", `{"ownerId":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Error   string `json:"error"`
		Success *bool  `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Error != "invalid request body" {
		t.Fatalf("malformed JSON must not be reported as missing fields, got %q", resp.Error)
	}
	if resp.Success == nil || *resp.Success {
		t.Fatal("expected success:false in the body")
	}
}

func TestCreateDeploymentInvalidOwner(t *testing.T) {
	svc := &fakeService{
		createErr: errdefs.New(errdefs.CodeInvalidRequest, "invalid wallet address format"),
	}

	body := `{"ownerId":"0xzz","modelService":"inference","modelIdentifier":"llama-3-8b","walletKeyMaterial":"secret"}`
	w := serve(svc, http.MethodPost, "/deployments", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid wallet address format") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestCreateDeploymentProvisioningFailure(t *testing.T) {
	svc := &fakeService{
		createErr: errdefs.New(errdefs.CodeProvisioningFailed, "deployment creation failed"),
	}

	body := `{"ownerId":"` + testOwner + `","modelService":"inference","modelIdentifier":"llama-3-8b","walletKeyMaterial":"secret"}`
	w := serve(svc, http.MethodPost, "/deployments", body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("expected success:false envelope, got %s", w.Body.String())
	}
}

func TestListDeployments(t *testing.T) {
	svc := &fakeService{
		listResp: []*models.Deployment{
			{OwnerID: testOwner, DeploymentID: "deploy-2-b", Status: models.StatusActive, CreatedAt: time.Now()},
			{OwnerID: testOwner, DeploymentID: "deploy-1-a", Status: models.StatusFailed, CreatedAt: time.Now().Add(-time.Hour)},
		},
	}

	w := serve(svc, http.MethodGet, "/deployments/"+testOwner+"?status=ACTIVE", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp schemas.ListDeploymentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 2 || len(resp.Deployments) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.lastStatus != models.StatusActive {
		t.Fatalf("status filter not forwarded, got %q", svc.lastStatus)
	}
}

func TestListDeploymentsUnknownStatusFilter(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodGet, "/deployments/"+testOwner+"?status=BOGUS", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown status filter") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestListDeploymentsRejectsBadOwnerAddress(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodGet, "/deployments/not-an-address", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid wallet address format") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestGetDeployment(t *testing.T) {
	svc := &fakeService{
		getResp: &models.Deployment{
			OwnerID:      testOwner,
			DeploymentID: "deploy-1-a",
			Status:       models.StatusActive,
		},
	}

	w := serve(svc, http.MethodGet, "/deployments/"+testOwner+"/deploy-1-a?logs=true", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !svc.gotLogs {
		t.Fatal("expected logs=true to be forwarded")
	}
	var resp models.Deployment
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.DeploymentID != "deploy-1-a" || resp.Status != models.StatusActive {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetDeploymentNotFound(t *testing.T) {
	svc := &fakeService{
		getErr: errdefs.New(errdefs.CodeNotFound, "deployment not found"),
	}

	w := serve(svc, http.MethodGet, "/deployments/"+testOwner+"/deploy-0-missing", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "deployment not found") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestDeleteDeployment(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodDelete, "/deployments/"+testOwner+"/deploy-1-a", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp schemas.DeleteDeploymentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.Success || resp.DeploymentID != "deploy-1-a" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.deletedID != "deploy-1-a" {
		t.Fatalf("delete not forwarded, got %q", svc.deletedID)
	}
}

func TestDeleteDeploymentNotFound(t *testing.T) {
	svc := &fakeService{
		deleteErr: errdefs.New(errdefs.CodeNotFound, "deployment not found"),
	}

	w := serve(svc, http.MethodDelete, "/deployments/"+testOwner+"/deploy-0-missing", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	svc := &fakeService{}

	w := serve(svc, http.MethodOptions, "/deployments", "")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS origin header, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
