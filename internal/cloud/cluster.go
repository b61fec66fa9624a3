package cloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/nodehub-cloud/orchestrator/internal/taskspec"
)

// ServiceState is the normalized runtime state of a container-group
// service.
type ServiceState struct {
	Status          string // ACTIVE, DRAINING or INACTIVE
	RunningCount    int32
	PendingCount    int32
	DesiredCount    int32
	RolloutInFlight bool
	TaskDefinition  string
}

// ServiceInput describes the long-running service to create from a
// registered task definition.
type ServiceInput struct {
	Name           string
	TaskDefinition string
	RouteTargetARN string
	IsolationGroup string
	OwnerID        string
	DeploymentID   string
}

// ClusterClient provisions and inspects container-group services on the
// cluster runtime.
type ClusterClient interface {
	RegisterTaskDefinition(ctx context.Context, task *taskspec.Task) (string, error)
	CreateService(ctx context.Context, input ServiceInput) (string, error)
	ScaleService(ctx context.Context, serviceHandle string, desiredCount int32) error
	DeleteService(ctx context.Context, serviceHandle string) error
	DescribeService(ctx context.Context, serviceHandle string) (*ServiceState, error)
}

// ECSClusterConfig holds the cluster-level settings shared by every
// provisioned service.
type ECSClusterConfig struct {
	ClusterName      string
	Subnets          []string
	ExecutionRoleARN string
	LogGroup         string
	Region           string
}

type ecsClusterClient struct {
	client *ecs.Client
	cfg    ECSClusterConfig
}

// NewECSClusterClient returns a ClusterClient backed by ECS on Fargate.
func NewECSClusterClient(awsCfg aws.Config, cfg ECSClusterConfig) ClusterClient {
	return &ecsClusterClient{
		client: ecs.NewFromConfig(awsCfg),
		cfg:    cfg,
	}
}

func (c *ecsClusterClient) RegisterTaskDefinition(ctx context.Context, task *taskspec.Task) (string, error) {
	defs := make([]ecstypes.ContainerDefinition, 0, len(task.Containers))
	for _, container := range task.Containers {
		defs = append(defs, c.containerDefinition(task.LogPrefix, container))
	}

	volumes := make([]ecstypes.Volume, 0, len(task.Volumes))
	for _, name := range task.Volumes {
		volumes = append(volumes, ecstypes.Volume{Name: aws.String(name)})
	}

	out, err := c.client.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(task.Family),
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		Cpu:                     aws.String(task.CPU),
		Memory:                  aws.String(task.Memory),
		ExecutionRoleArn:        aws.String(c.cfg.ExecutionRoleARN),
		TaskRoleArn:             aws.String(c.cfg.ExecutionRoleARN),
		Volumes:                 volumes,
		ContainerDefinitions:    defs,
	})
	if err != nil {
		return "", fmt.Errorf("register task definition %s: %w", task.Family, err)
	}
	return aws.ToString(out.TaskDefinition.TaskDefinitionArn), nil
}

func (c *ecsClusterClient) containerDefinition(logPrefix string, container taskspec.Container) ecstypes.ContainerDefinition {
	def := ecstypes.ContainerDefinition{
		Name:       aws.String(container.Name),
		Image:      aws.String(container.Image),
		Cpu:        container.CPU,
		Memory:     aws.Int32(container.Memory),
		Essential:  aws.Bool(container.Essential),
		EntryPoint: container.EntryPoint,
		Command:    container.Command,
		LogConfiguration: &ecstypes.LogConfiguration{
			LogDriver: ecstypes.LogDriverAwslogs,
			Options: map[string]string{
				"awslogs-group":         c.cfg.LogGroup,
				"awslogs-region":        c.cfg.Region,
				"awslogs-stream-prefix": logPrefix + "-" + container.Name,
				"awslogs-create-group":  "true",
			},
		},
	}

	if container.Port > 0 {
		def.PortMappings = []ecstypes.PortMapping{{
			ContainerPort: aws.Int32(container.Port),
			Protocol:      ecstypes.TransportProtocolTcp,
		}}
	}

	keys := make([]string, 0, len(container.Env))
	for k := range container.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		def.Environment = append(def.Environment, ecstypes.KeyValuePair{
			Name:  aws.String(k),
			Value: aws.String(container.Env[k]),
		})
	}

	if container.Health != nil {
		def.HealthCheck = &ecstypes.HealthCheck{
			Command:     container.Health.Command,
			Interval:    aws.Int32(int32(container.Health.Interval.Seconds())),
			Timeout:     aws.Int32(int32(container.Health.Timeout.Seconds())),
			Retries:     aws.Int32(container.Health.Retries),
			StartPeriod: aws.Int32(int32(container.Health.StartPeriod.Seconds())),
		}
	}

	for _, dep := range container.DependsOn {
		def.DependsOn = append(def.DependsOn, ecstypes.ContainerDependency{
			ContainerName: aws.String(dep.Container),
			Condition:     dependencyCondition(dep.Condition),
		})
	}

	for _, m := range container.Mounts {
		def.MountPoints = append(def.MountPoints, ecstypes.MountPoint{
			SourceVolume:  aws.String(m.Volume),
			ContainerPath: aws.String(m.Path),
			ReadOnly:      aws.Bool(m.ReadOnly),
		})
	}

	return def
}

func dependencyCondition(c taskspec.Condition) ecstypes.ContainerCondition {
	if c == taskspec.ConditionSuccess {
		return ecstypes.ContainerConditionSuccess
	}
	return ecstypes.ContainerConditionHealthy
}

func (c *ecsClusterClient) CreateService(ctx context.Context, input ServiceInput) (string, error) {
	out, err := c.client.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(c.cfg.ClusterName),
		ServiceName:    aws.String(input.Name),
		TaskDefinition: aws.String(input.TaskDefinition),
		DesiredCount:   aws.Int32(1),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        c.cfg.Subnets,
				SecurityGroups: []string{input.IsolationGroup},
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		// New workloads start from nothing, so the rollout may go to
		// zero healthy instances.
		DeploymentConfiguration: &ecstypes.DeploymentConfiguration{
			MaximumPercent:        aws.Int32(200),
			MinimumHealthyPercent: aws.Int32(0),
		},
		LoadBalancers: []ecstypes.LoadBalancer{{
			TargetGroupArn: aws.String(input.RouteTargetARN),
			ContainerName:  aws.String(taskspec.ProxyContainer),
			ContainerPort:  aws.Int32(80),
		}},
		Tags: []ecstypes.Tag{
			{Key: aws.String("WalletAddress"), Value: aws.String(input.OwnerID)},
			{Key: aws.String("DeploymentId"), Value: aws.String(input.DeploymentID)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create service %s: %w", input.Name, err)
	}
	return aws.ToString(out.Service.ServiceArn), nil
}

func (c *ecsClusterClient) ScaleService(ctx context.Context, serviceHandle string, desiredCount int32) error {
	_, err := c.client.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(c.cfg.ClusterName),
		Service:      aws.String(serviceHandle),
		DesiredCount: aws.Int32(desiredCount),
	})
	if err != nil {
		return fmt.Errorf("scale service %s to %d: %w", serviceHandle, desiredCount, err)
	}
	return nil
}

func (c *ecsClusterClient) DeleteService(ctx context.Context, serviceHandle string) error {
	_, err := c.client.DeleteService(ctx, &ecs.DeleteServiceInput{
		Cluster: aws.String(c.cfg.ClusterName),
		Service: aws.String(serviceHandle),
		Force:   aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("delete service %s: %w", serviceHandle, err)
	}
	return nil
}

func (c *ecsClusterClient) DescribeService(ctx context.Context, serviceHandle string) (*ServiceState, error) {
	out, err := c.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(c.cfg.ClusterName),
		Services: []string{serviceHandle},
	})
	if err != nil {
		return nil, fmt.Errorf("describe service %s: %w", serviceHandle, err)
	}
	if len(out.Services) == 0 {
		return nil, fmt.Errorf("service %s not found", serviceHandle)
	}

	svc := out.Services[0]
	state := &ServiceState{
		Status:         aws.ToString(svc.Status),
		RunningCount:   svc.RunningCount,
		PendingCount:   svc.PendingCount,
		DesiredCount:   svc.DesiredCount,
		TaskDefinition: aws.ToString(svc.TaskDefinition),
	}
	for _, d := range svc.Deployments {
		if d.RolloutState == ecstypes.DeploymentRolloutStateInProgress {
			state.RolloutInFlight = true
		}
	}
	if svc.PendingCount > 0 {
		state.RolloutInFlight = true
	}
	return state, nil
}
