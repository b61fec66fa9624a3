package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// NetworkClient manages the per-deployment network-isolation rule that
// scopes inbound traffic to the proxy and broker ports.
type NetworkClient interface {
	CreateIsolation(ctx context.Context, deploymentID string) (string, error)
	DeleteIsolation(ctx context.Context, isolationHandle string) error
}

type ec2NetworkClient struct {
	client *ec2.Client
	vpcID  string
}

// NewEC2NetworkClient returns a NetworkClient backed by EC2 security
// groups.
func NewEC2NetworkClient(awsCfg aws.Config, vpcID string) NetworkClient {
	return &ec2NetworkClient{
		client: ec2.NewFromConfig(awsCfg),
		vpcID:  vpcID,
	}
}

func (c *ec2NetworkClient) CreateIsolation(ctx context.Context, deploymentID string) (string, error) {
	out, err := c.client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String("nodehub-" + deploymentID),
		Description: aws.String("Isolation rule for inference node " + deploymentID),
		VpcId:       aws.String(c.vpcID),
	})
	if err != nil {
		return "", fmt.Errorf("create isolation group for %s: %w", deploymentID, err)
	}
	groupID := aws.ToString(out.GroupId)

	_, err = c.client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{
			ingressRule(80),
			ingressRule(3080),
		},
	})
	if err != nil {
		return groupID, fmt.Errorf("authorize ingress for %s: %w", deploymentID, err)
	}
	return groupID, nil
}

func ingressRule(port int32) ec2types.IpPermission {
	return ec2types.IpPermission{
		IpProtocol: aws.String("tcp"),
		FromPort:   aws.Int32(port),
		ToPort:     aws.Int32(port),
		IpRanges:   []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
	}
}

func (c *ec2NetworkClient) DeleteIsolation(ctx context.Context, isolationHandle string) error {
	_, err := c.client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(isolationHandle),
	})
	if err != nil {
		return fmt.Errorf("delete isolation group %s: %w", isolationHandle, err)
	}
	return nil
}
