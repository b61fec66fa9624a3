package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/nodehub-cloud/orchestrator/internal/models"
)

// LogClient retrieves recent, prefix-filtered log events for a
// deployment.
type LogClient interface {
	RecentEvents(ctx context.Context, streamPrefix string, since time.Time, limit int32) ([]models.LogEvent, error)
}

type cloudwatchLogClient struct {
	client   *cloudwatchlogs.Client
	logGroup string
}

// NewCloudWatchLogClient returns a LogClient over the given log group.
func NewCloudWatchLogClient(awsCfg aws.Config, logGroup string) LogClient {
	return &cloudwatchLogClient{
		client:   cloudwatchlogs.NewFromConfig(awsCfg),
		logGroup: logGroup,
	}
}

func (c *cloudwatchLogClient) RecentEvents(ctx context.Context, streamPrefix string, since time.Time, limit int32) ([]models.LogEvent, error) {
	out, err := c.client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:        aws.String(c.logGroup),
		LogStreamNamePrefix: aws.String(streamPrefix),
		StartTime:           aws.Int64(since.UnixMilli()),
		Limit:               aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("filter log events for %s: %w", streamPrefix, err)
	}

	events := make([]models.LogEvent, 0, len(out.Events))
	for _, e := range out.Events {
		events = append(events, models.LogEvent{
			Timestamp: time.UnixMilli(aws.ToInt64(e.Timestamp)).UTC(),
			Message:   aws.ToString(e.Message),
		})
	}
	return events, nil
}
