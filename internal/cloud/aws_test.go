package cloud

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestLoadAWSConfigAppliesEndpointOverride(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), AWSConfig{
		Region:          "ap-southeast-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("LoadAWSConfig returned error: %v", err)
	}

	if cfg.Region != "ap-southeast-1" {
		t.Fatalf("unexpected region %q", cfg.Region)
	}
	// The base endpoint is shared by every service client built from
	// this config, so a local stack receives all calls.
	if aws.ToString(cfg.BaseEndpoint) != "http://localhost:4566" {
		t.Fatalf("expected base endpoint override, got %q", aws.ToString(cfg.BaseEndpoint))
	}
}
