package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	body   string
	err    error
	lastIn *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "bucket")
	require.Error(t, err)

	_, err = New(&fakeS3{}, " ")
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	api := &fakeS3{body: "text\nhello\n"}
	c, err := New(api, "uploads-bucket")
	require.NoError(t, err)

	body, err := c.Fetch(context.Background(), "uploads/in.csv")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "text\nhello\n", string(data))

	require.Equal(t, "uploads-bucket", *api.lastIn.Bucket)
	require.Equal(t, "uploads/in.csv", *api.lastIn.Key)
}

func TestFetch_EmptyKey(t *testing.T) {
	c, err := New(&fakeS3{}, "uploads-bucket")
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "  ")
	require.Error(t, err)
}

func TestFetch_Error(t *testing.T) {
	c, err := New(&fakeS3{err: errors.New("NoSuchKey")}, "uploads-bucket")
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "missing.csv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "s3://uploads-bucket/missing.csv")
}
