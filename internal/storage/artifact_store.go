package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nodehub-cloud/orchestrator/internal/taskspec"
)

// ArtifactStore persists the rendered configuration blobs a deployment's
// init container pulls at startup.
type ArtifactStore interface {
	PutArtifacts(ctx context.Context, deploymentID string, artifacts map[string][]byte) error
	DeleteArtifacts(ctx context.Context, deploymentID string) error
}

// S3Config configures the artifact bucket.
type S3Config struct {
	Bucket string
	Prefix string
}

type s3ArtifactStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3ArtifactStore returns an ArtifactStore backed by S3.
func NewS3ArtifactStore(awsCfg aws.Config, cfg S3Config) ArtifactStore {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// UsePathStyle is required for most local S3-compat layers.
		o.UsePathStyle = true
	})

	return &s3ArtifactStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

func (s *s3ArtifactStore) key(deploymentID, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, deploymentID, name)
}

func (s *s3ArtifactStore) PutArtifacts(ctx context.Context, deploymentID string, artifacts map[string][]byte) error {
	for name, data := range artifacts {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(deploymentID, name)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("text/plain"),
		})
		if err != nil {
			return fmt.Errorf("upload artifact %s for %s: %w", name, deploymentID, err)
		}
	}
	return nil
}

func (s *s3ArtifactStore) DeleteArtifacts(ctx context.Context, deploymentID string) error {
	// A deployment owns exactly two blobs under its prefix.
	for _, name := range []string{taskspec.ProxyConfigArtifact, taskspec.BrokerConfigArtifact} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(deploymentID, name)),
		})
		if err != nil {
			return fmt.Errorf("delete artifact %s for %s: %w", name, deploymentID, err)
		}
	}
	return nil
}
