package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// snsAPI is the minimal SNS interface required by Client.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher is the interface consumed by the batch services. Messages are
// delivered at least once; subscribers must tolerate duplicates.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Client publishes JSON messages to a fixed SNS topic.
type Client struct {
	api      snsAPI
	topicARN string
}

// New creates a Client for the given topic.
func New(api snsAPI, topicARN string) (*Client, error) {
	if api == nil {
		return nil, errors.New("notify: api must not be nil")
	}
	if strings.TrimSpace(topicARN) == "" {
		return nil, errors.New("notify: topic ARN must not be empty")
	}
	return &Client{api: api, topicARN: topicARN}, nil
}

// Publish marshals payload as JSON and publishes it with the given subject.
func (c *Client) Publish(ctx context.Context, subject string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}
	_, err = c.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("notify: publish to %s: %w", c.topicARN, err)
	}
	return nil
}
