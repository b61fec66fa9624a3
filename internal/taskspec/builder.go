package taskspec

import (
	"fmt"
	"time"
)

// Condition is the startup condition a container requires of one of its
// dependencies before it is allowed to start.
type Condition string

const (
	// ConditionSuccess waits for a one-shot container to exit zero.
	ConditionSuccess Condition = "SUCCESS"
	// ConditionHealthy waits for a long-running container's health check
	// to pass.
	ConditionHealthy Condition = "HEALTHY"
)

// Container names used throughout the fixed topology.
const (
	ConfigInitContainer = "config-init"
	LedgerContainer     = "ledger"
	ProvingContainer    = "proving"
	BrokerContainer     = "broker"
	ProxyContainer      = "nginx-proxy"
)

// SharedConfigVolume is the task-local volume the init container
// materializes configuration into.
const SharedConfigVolume = "config"

// SharedConfigPath is where the volume is mounted in every container
// that consumes it.
const SharedConfigPath = "/nodehub"

// HealthCheck describes a container-level health probe.
type HealthCheck struct {
	Command     []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int32
	StartPeriod time.Duration
}

// Dependency names another container in the same task and the condition
// it must reach before this one starts.
type Dependency struct {
	Container string
	Condition Condition
}

// Mount attaches a task volume inside a container.
type Mount struct {
	Volume   string
	Path     string
	ReadOnly bool
}

// Container is one entry of the ordered container list.
type Container struct {
	Name       string
	Image      string
	CPU        int32
	Memory     int32
	Essential  bool
	Port       int32 // 0 means no exposed port
	Env        map[string]string
	EntryPoint []string
	Command    []string
	Health     *HealthCheck
	DependsOn  []Dependency
	Mounts     []Mount
}

// Task is the full multi-container definition for one deployment.
// LogPrefix is the base of every container's log-stream prefix; log
// queries filter streams by the bare deployment id, so it must be the
// deployment id itself, not the task family.
type Task struct {
	Family     string
	LogPrefix  string
	CPU        string
	Memory     string
	Volumes    []string
	Containers []Container
}

// Params carries everything the builder needs to produce a task spec.
type Params struct {
	DeploymentID       string
	OwnerAddress       string
	ModelService       string
	ModelIdentifier    string
	VerificationMethod string
	Hostname           string
	WalletKey          string

	BrokerImage  string
	ProxyImage   string
	LedgerImage  string
	ProvingImage string
	InitImage    string

	ArtifactBucket string
	ArtifactPrefix string

	ChainRPCURL string
	ChainID     int64
}

// Build produces the fixed topology for an inference-node workload:
// a one-shot init container that pulls the rendered configuration
// artifacts into a shared volume, the ledger and proving sidecars the
// broker needs healthy, the broker itself, and the reverse proxy that
// is the only container exposed on the public port. Containers within
// the task start strictly in dependency order.
func Build(p Params) (*Task, error) {
	if p.DeploymentID == "" || p.OwnerAddress == "" || p.ModelIdentifier == "" || p.WalletKey == "" {
		return nil, fmt.Errorf("incomplete task parameters for %q", p.DeploymentID)
	}

	artifactURI := fmt.Sprintf("s3://%s/%s/%s/", p.ArtifactBucket, p.ArtifactPrefix, p.DeploymentID)

	configInit := Container{
		Name:       ConfigInitContainer,
		Image:      p.InitImage,
		CPU:        128,
		Memory:     256,
		Essential:  false,
		EntryPoint: []string{"/bin/sh", "-c"},
		Command: []string{
			fmt.Sprintf("aws s3 cp %s %s/ --recursive", artifactURI, SharedConfigPath),
		},
		Mounts: []Mount{{Volume: SharedConfigVolume, Path: SharedConfigPath}},
	}

	ledger := Container{
		Name:      LedgerContainer,
		Image:     p.LedgerImage,
		CPU:       128,
		Memory:    256,
		Essential: true,
		Port:      3002,
		Env:       map[string]string{"JS_PROVER_PORT": "3002"},
		Health: &HealthCheck{
			Command:     []string{"CMD-SHELL", "curl -f -X GET http://localhost:3002/sign-keypair || exit 1"},
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			Retries:     10,
			StartPeriod: 30 * time.Second,
		},
	}

	proving := Container{
		Name:      ProvingContainer,
		Image:     p.ProvingImage,
		CPU:       128,
		Memory:    256,
		Essential: true,
		Port:      3001,
		Env:       map[string]string{"JS_PROVER_PORT": "3001"},
		Health: &HealthCheck{
			Command:     []string{"CMD-SHELL", "curl -f -X GET http://localhost:3001/sign-keypair || exit 1"},
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			Retries:     10,
			StartPeriod: 30 * time.Second,
		},
	}

	broker := Container{
		Name:      BrokerContainer,
		Image:     p.BrokerImage,
		CPU:       512,
		Memory:    1024,
		Essential: true,
		Port:      3080,
		Env: map[string]string{
			"PORT":                "3080",
			"WALLET_PRIVATE_KEY":  p.WalletKey,
			"MODEL_IDENTIFIER":    p.ModelIdentifier,
			"VERIFICATION_METHOD": p.VerificationMethod,
			"SERVING_URL":         "https://" + p.Hostname,
		},
		Command: []string{"0g-inference-server", "--config", SharedConfigPath + "/" + BrokerConfigArtifact},
		Health: &HealthCheck{
			Command:     []string{"CMD-SHELL", "curl -f http://localhost:3080/ || exit 1"},
			Interval:    60 * time.Second,
			Timeout:     10 * time.Second,
			Retries:     3,
			StartPeriod: 120 * time.Second,
		},
		DependsOn: []Dependency{
			{Container: ConfigInitContainer, Condition: ConditionSuccess},
			{Container: LedgerContainer, Condition: ConditionHealthy},
			{Container: ProvingContainer, Condition: ConditionHealthy},
		},
		Mounts: []Mount{{Volume: SharedConfigVolume, Path: SharedConfigPath, ReadOnly: true}},
	}

	proxy := Container{
		Name:      ProxyContainer,
		Image:     p.ProxyImage,
		CPU:       128,
		Memory:    256,
		Essential: true,
		Port:      80,
		Env: map[string]string{
			"WALLET_ADDRESS":      p.OwnerAddress,
			"MODEL_IDENTIFIER":    p.ModelIdentifier,
			"VERIFICATION_METHOD": p.VerificationMethod,
			"DEPLOYMENT_ID":       p.DeploymentID,
		},
		Command: []string{"nginx", "-c", SharedConfigPath + "/" + ProxyConfigArtifact, "-g", "daemon off;"},
		Health: &HealthCheck{
			Command:     []string{"CMD-SHELL", "wget --no-verbose --tries=1 --spider http://localhost:80/health || exit 1"},
			Interval:    30 * time.Second,
			Timeout:     5 * time.Second,
			Retries:     3,
			StartPeriod: 60 * time.Second,
		},
		DependsOn: []Dependency{
			{Container: BrokerContainer, Condition: ConditionHealthy},
		},
		Mounts: []Mount{{Volume: SharedConfigVolume, Path: SharedConfigPath, ReadOnly: true}},
	}

	return &Task{
		Family:     "nodehub-" + p.DeploymentID,
		LogPrefix:  p.DeploymentID,
		CPU:        "1024",
		Memory:     "2048",
		Volumes:    []string{SharedConfigVolume},
		Containers: []Container{configInit, ledger, proving, broker, proxy},
	}, nil
}
