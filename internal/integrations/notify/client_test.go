package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	err    error
	lastIn *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "arn:aws:sns:us-east-1:123:topic")
	require.Error(t, err)

	_, err = New(&fakeSNS{}, "")
	require.Error(t, err)
}

func TestPublish(t *testing.T) {
	api := &fakeSNS{}
	c, err := New(api, "arn:aws:sns:us-east-1:123:batch-alerts")
	require.NoError(t, err)

	payload := map[string]any{"batch_id": "batch-1", "status": "COMPLETED"}
	require.NoError(t, c.Publish(context.Background(), "Batch batch-1 processing completed", payload))

	require.Equal(t, "arn:aws:sns:us-east-1:123:batch-alerts", *api.lastIn.TopicArn)
	require.Equal(t, "Batch batch-1 processing completed", *api.lastIn.Subject)
	require.JSONEq(t, `{"batch_id":"batch-1","status":"COMPLETED"}`, *api.lastIn.Message)
}

func TestPublish_UnmarshalablePayload(t *testing.T) {
	api := &fakeSNS{}
	c, err := New(api, "arn:aws:sns:us-east-1:123:topic")
	require.NoError(t, err)

	err = c.Publish(context.Background(), "subject", func() {})
	require.Error(t, err)
	require.Nil(t, api.lastIn)
}

func TestPublish_Error(t *testing.T) {
	c, err := New(&fakeSNS{err: errors.New("topic deleted")}, "arn:aws:sns:us-east-1:123:topic")
	require.NoError(t, err)

	err = c.Publish(context.Background(), "subject", map[string]string{"k": "v"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "topic deleted")
}
