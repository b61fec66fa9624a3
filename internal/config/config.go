package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration.
type Config struct {
	ListenAddr string
	LogLevel   string

	// AWS client settings. Empty access keys fall back to the default
	// credential chain; Endpoint overrides are for local stacks.
	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Cluster runtime settings.
	ClusterName      string
	Subnets          []string
	VPCID            string
	HTTPSListenerARN string
	ExecutionRoleARN string

	// Persisted record store and config artifacts.
	DeploymentsTable string
	ArtifactBucket   string
	ArtifactPrefix   string

	// Workload images and routing.
	DeploymentDomain string
	BrokerImage      string
	ProxyImage       string
	LedgerImage      string
	ProvingImage     string
	InitImage        string
	LogGroup         string

	// Chain settings rendered into the broker configuration.
	ChainRPCURL string
	ChainID     int64

	RedisAddr string
}

var (
	once     sync.Once
	instance *Config
)

// GetConfig returns the singleton instance of the Config.
// It loads the configuration from an .env file on its first call.
func GetConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using default environment variables")
		}

		instance = &Config{
			ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
			LogLevel:   getEnv("LOG_LEVEL", "info"),

			AWSRegion:          getEnv("AWS_REGION", "ap-southeast-1"),
			AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
			AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

			ClusterName:      getEnv("CLUSTER_NAME", "nodehub"),
			Subnets:          splitEnv("SUBNETS"),
			VPCID:            getEnv("VPC_ID", ""),
			HTTPSListenerARN: getEnv("HTTPS_LISTENER_ARN", ""),
			ExecutionRoleARN: getEnv("EXECUTION_ROLE_ARN", ""),

			DeploymentsTable: getEnv("DEPLOYMENTS_TABLE", "nodehub-deployments"),
			ArtifactBucket:   getEnv("ARTIFACT_BUCKET", "nodehub-artifacts"),
			ArtifactPrefix:   getEnv("ARTIFACT_PREFIX", "deployments"),

			DeploymentDomain: getEnv("DEPLOYMENT_DOMAIN", "deploy.nodehub.cloud"),
			BrokerImage:      getEnv("BROKER_IMAGE", "ghcr.io/0glabs/0g-serving-broker:0.2.1"),
			ProxyImage:       getEnv("PROXY_IMAGE", "nginx:1.27.0"),
			LedgerImage:      getEnv("LEDGER_IMAGE", "ghcr.io/0glabs/zk:0.2.1"),
			ProvingImage:     getEnv("PROVING_IMAGE", "ghcr.io/0glabs/zk:0.2.1"),
			InitImage:        getEnv("INIT_IMAGE", "amazon/aws-cli:2.17.0"),
			LogGroup:         getEnv("LOG_GROUP", "/ecs/nodehub"),

			ChainRPCURL: getEnv("CHAIN_RPC_URL", "https://evmrpc-testnet.0g.ai"),
			ChainID:     getEnvInt64("CHAIN_ID", 16601),

			RedisAddr: getEnv("REDIS_ADDR", ""),
		}
	})
	return instance
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default", key, value)
		return defaultValue
	}
	return n
}

func splitEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
