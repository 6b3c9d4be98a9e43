package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/sentiment/model-token"), Value: strPtr(`{"token":"v"}`),
	}}}
	client, err := New(api, "/sentiment")
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "model-token")
	require.NoError(t, err)
	require.Equal(t, `{"token":"v"}`, v)

	require.Equal(t, "/sentiment/model-token", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_PrefixJoining(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr("v"),
	}}}

	// Trailing slash on the prefix and a leading slash on the name both
	// collapse to a single separator.
	client, err := New(api, "/sentiment/")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/model-endpoint")
	require.NoError(t, err)
	require.Equal(t, "/sentiment/model-endpoint", *api.lastIn.Name)
}

func TestGetParameter_SecureString(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr("secret"), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api, "/sentiment")
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "model-token")
	require.NoError(t, err)
	require.Equal(t, "secret", v)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api, "/sentiment")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "model-endpoint")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api, "/sentiment")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "model-endpoint")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{}, "/sentiment")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "/sentiment")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")

	_, err = New(&fakeAPI{}, "  /  ")
	require.Error(t, err)
}
