package cloud

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

// RoutingClient manages the load-balancer constructs that map a
// generated hostname to a deployment's service.
type RoutingClient interface {
	// CreateTarget allocates a health-checked routing target for the
	// proxy container's port and returns its handle.
	CreateTarget(ctx context.Context, deploymentID, ownerID string) (string, error)
	DeleteTarget(ctx context.Context, targetHandle string) error
	// CreateRule installs a host-header rule forwarding hostname to the
	// target and returns its handle.
	CreateRule(ctx context.Context, hostname, targetHandle, deploymentID, ownerID string) (string, error)
	DeleteRule(ctx context.Context, ruleHandle string) error
	// FindRuleByHost scans existing rules for one whose host-header
	// condition contains hostname. It returns an empty handle when no
	// rule matches.
	FindRuleByHost(ctx context.Context, hostname string) (string, error)
}

// ELBRoutingConfig holds the listener and network the routing layer
// operates on.
type ELBRoutingConfig struct {
	ListenerARN string
	VPCID       string
}

type elbRoutingClient struct {
	client *elbv2.Client
	cfg    ELBRoutingConfig
}

// NewELBRoutingClient returns a RoutingClient backed by an application
// load balancer.
func NewELBRoutingClient(awsCfg aws.Config, cfg ELBRoutingConfig) RoutingClient {
	return &elbRoutingClient{
		client: elbv2.NewFromConfig(awsCfg),
		cfg:    cfg,
	}
}

func (c *elbRoutingClient) CreateTarget(ctx context.Context, deploymentID, ownerID string) (string, error) {
	// Target group names are capped at 32 characters.
	name := "nh-" + deploymentID
	if len(name) > 32 {
		name = name[:32]
	}

	out, err := c.client.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:                       aws.String(name),
		Protocol:                   elbv2types.ProtocolEnumHttp,
		Port:                       aws.Int32(80),
		VpcId:                      aws.String(c.cfg.VPCID),
		TargetType:                 elbv2types.TargetTypeEnumIp,
		HealthCheckPath:            aws.String("/health"),
		HealthCheckProtocol:        elbv2types.ProtocolEnumHttp,
		HealthCheckIntervalSeconds: aws.Int32(30),
		HealthCheckTimeoutSeconds:  aws.Int32(5),
		HealthyThresholdCount:      aws.Int32(2),
		UnhealthyThresholdCount:    aws.Int32(3),
		Tags: []elbv2types.Tag{
			{Key: aws.String("WalletAddress"), Value: aws.String(ownerID)},
			{Key: aws.String("DeploymentId"), Value: aws.String(deploymentID)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create routing target for %s: %w", deploymentID, err)
	}
	if len(out.TargetGroups) == 0 {
		return "", fmt.Errorf("create routing target for %s: empty response", deploymentID)
	}
	return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
}

func (c *elbRoutingClient) DeleteTarget(ctx context.Context, targetHandle string) error {
	_, err := c.client.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
		TargetGroupArn: aws.String(targetHandle),
	})
	if err != nil {
		return fmt.Errorf("delete routing target %s: %w", targetHandle, err)
	}
	return nil
}

func (c *elbRoutingClient) CreateRule(ctx context.Context, hostname, targetHandle, deploymentID, ownerID string) (string, error) {
	// Listener rule priorities must be unique; collisions surface as a
	// provisioning failure and the caller retries with a fresh create.
	priority := int32(rand.Intn(50000) + 1)

	out, err := c.client.CreateRule(ctx, &elbv2.CreateRuleInput{
		ListenerArn: aws.String(c.cfg.ListenerARN),
		Priority:    aws.Int32(priority),
		Conditions: []elbv2types.RuleCondition{{
			Field:  aws.String("host-header"),
			Values: []string{hostname},
		}},
		Actions: []elbv2types.Action{{
			Type:           elbv2types.ActionTypeEnumForward,
			TargetGroupArn: aws.String(targetHandle),
		}},
		Tags: []elbv2types.Tag{
			{Key: aws.String("WalletAddress"), Value: aws.String(ownerID)},
			{Key: aws.String("DeploymentId"), Value: aws.String(deploymentID)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create routing rule for %s: %w", hostname, err)
	}
	if len(out.Rules) == 0 {
		return "", fmt.Errorf("create routing rule for %s: empty response", hostname)
	}
	return aws.ToString(out.Rules[0].RuleArn), nil
}

func (c *elbRoutingClient) DeleteRule(ctx context.Context, ruleHandle string) error {
	_, err := c.client.DeleteRule(ctx, &elbv2.DeleteRuleInput{
		RuleArn: aws.String(ruleHandle),
	})
	if err != nil {
		return fmt.Errorf("delete routing rule %s: %w", ruleHandle, err)
	}
	return nil
}

func (c *elbRoutingClient) FindRuleByHost(ctx context.Context, hostname string) (string, error) {
	out, err := c.client.DescribeRules(ctx, &elbv2.DescribeRulesInput{
		ListenerArn: aws.String(c.cfg.ListenerARN),
	})
	if err != nil {
		return "", fmt.Errorf("describe routing rules: %w", err)
	}

	for _, rule := range out.Rules {
		for _, cond := range rule.Conditions {
			if aws.ToString(cond.Field) != "host-header" {
				continue
			}
			for _, v := range cond.Values {
				if strings.Contains(v, hostname) {
					return aws.ToString(rule.RuleArn), nil
				}
			}
		}
	}
	return "", nil
}
