package cloud

import (
	"strings"
	"testing"

	"github.com/nodehub-cloud/orchestrator/internal/taskspec"
)

// Log queries filter streams by the bare deployment id, so every
// container's stream prefix must start with it.
func TestContainerLogStreamPrefixMatchesLogQueries(t *testing.T) {
	task, err := taskspec.Build(taskspec.Params{
		DeploymentID:       "deploy-1700000000000-abc123",
		OwnerAddress:       "0x1234567890abcdef1234567890abcdef12345678",
		ModelService:       "inference",
		ModelIdentifier:    "llama-3-8b",
		VerificationMethod: "TeeML",
		Hostname:           "deploy-1700000000000-abc123.deploy.test",
		WalletKey:          "secret-key",
		BrokerImage:        "broker:1",
		ProxyImage:         "nginx:1",
		LedgerImage:        "zk:1",
		ProvingImage:       "zk:1",
		InitImage:          "aws-cli:1",
		ArtifactBucket:     "artifacts",
		ArtifactPrefix:     "deployments",
		ChainRPCURL:        "https://rpc.test",
		ChainID:            16601,
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if task.LogPrefix != "deploy-1700000000000-abc123" {
		t.Fatalf("expected log prefix to be the deployment id, got %q", task.LogPrefix)
	}

	client := &ecsClusterClient{cfg: ECSClusterConfig{
		LogGroup: "/ecs/nodehub",
		Region:   "ap-southeast-1",
	}}
	for _, container := range task.Containers {
		def := client.containerDefinition(task.LogPrefix, container)
		prefix := def.LogConfiguration.Options["awslogs-stream-prefix"]
		if !strings.HasPrefix(prefix, "deploy-1700000000000-abc123") {
			t.Fatalf("container %s: stream prefix %q does not start with the deployment id", container.Name, prefix)
		}
		if prefix != task.LogPrefix+"-"+container.Name {
			t.Fatalf("container %s: unexpected stream prefix %q", container.Name, prefix)
		}
	}
}
