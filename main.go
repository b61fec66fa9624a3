package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/nodehub-cloud/orchestrator/api/rest/server"
	"github.com/nodehub-cloud/orchestrator/api/rest/v1/routes"
	"github.com/nodehub-cloud/orchestrator/internal/cache"
	"github.com/nodehub-cloud/orchestrator/internal/cloud"
	"github.com/nodehub-cloud/orchestrator/internal/config"
	"github.com/nodehub-cloud/orchestrator/internal/logger"
	"github.com/nodehub-cloud/orchestrator/internal/repository"
	"github.com/nodehub-cloud/orchestrator/internal/services"
	"github.com/nodehub-cloud/orchestrator/internal/storage"
)

func main() {
	cfg := config.GetConfig()

	zl, err := logger.Init(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	awsCfg, err := cloud.LoadAWSConfig(context.Background(), cloud.AWSConfig{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.AWSEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		zl.Fatal("failed to load AWS config", zap.Error(err))
	}

	var probes *cache.ProbeCache
	if cfg.RedisAddr != "" {
		probes = cache.NewProbeCache(cfg.RedisAddr)
	}

	deploymentService := services.NewDeploymentService(cfg, services.Deps{
		Repo: repository.NewDeploymentRepository(awsCfg, cfg.DeploymentsTable),
		Cluster: cloud.NewECSClusterClient(awsCfg, cloud.ECSClusterConfig{
			ClusterName:      cfg.ClusterName,
			Subnets:          cfg.Subnets,
			ExecutionRoleARN: cfg.ExecutionRoleARN,
			LogGroup:         cfg.LogGroup,
			Region:           cfg.AWSRegion,
		}),
		Routing: cloud.NewELBRoutingClient(awsCfg, cloud.ELBRoutingConfig{
			ListenerARN: cfg.HTTPSListenerARN,
			VPCID:       cfg.VPCID,
		}),
		Network:  cloud.NewEC2NetworkClient(awsCfg, cfg.VPCID),
		LogQuery: cloud.NewCloudWatchLogClient(awsCfg, cfg.LogGroup),
		Artifacts: storage.NewS3ArtifactStore(awsCfg, storage.S3Config{
			Bucket: cfg.ArtifactBucket,
			Prefix: cfg.ArtifactPrefix,
		}),
		Probes: probes,
		Logger: zl,
	})

	srv := server.NewServer(cfg.ListenAddr)
	routes.RegisterRoutes(srv, deploymentService)

	zl.Info("starting HTTP server", zap.String("addr", cfg.ListenAddr))
	if err := srv.Run(); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}
