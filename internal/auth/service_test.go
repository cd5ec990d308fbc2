package auth_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/api/apitest"
	"pdfchat/internal/auth"
	"pdfchat/internal/platform/localstore"
)

func newService(t *testing.T, backend *apitest.Backend) (*auth.Service, *auth.TokenProvider) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	tokens := auth.NewTokenProvider(store, zap.NewNop())
	client := api.NewClient(backend.URL(), 0, tokens, zap.NewNop())
	return auth.NewService(client, tokens), tokens
}

func TestLoginStoresTokenPair(t *testing.T) {
	backend := apitest.New(t)
	service, tokens := newService(t, backend)

	require.NoError(t, service.Login(context.Background(), "alice", "wonderland"))

	cred := tokens.Credential()
	assert.Equal(t, apitest.AccessToken, cred.AccessToken)
	assert.Equal(t, apitest.RefreshToken, cred.RefreshToken)
	assert.True(t, tokens.LoggedIn())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	backend := apitest.New(t)
	service, tokens := newService(t, backend)

	err := service.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, tokens.LoggedIn())
}

func TestLoginValidatesInput(t *testing.T) {
	backend := apitest.New(t)
	service, _ := newService(t, backend)

	assert.ErrorIs(t, service.Login(context.Background(), "", "pw"), auth.ErrInvalidInput)
	assert.ErrorIs(t, service.Login(context.Background(), "alice", ""), auth.ErrInvalidInput)
}

func TestRegisterThenLogin(t *testing.T) {
	backend := apitest.New(t)
	service, _ := newService(t, backend)

	require.NoError(t, service.Register(context.Background(), "bob", "Bob@Example.com", "builder123"))
	require.NoError(t, service.Login(context.Background(), "bob", "builder123"))
}

func TestLogoutClearsCredentials(t *testing.T) {
	backend := apitest.New(t)
	service, tokens := newService(t, backend)
	require.NoError(t, service.Login(context.Background(), "alice", "wonderland"))

	require.NoError(t, service.Logout())
	assert.False(t, tokens.LoggedIn())
}

func TestWhoamiRequiresLogin(t *testing.T) {
	backend := apitest.New(t)
	service, _ := newService(t, backend)

	_, err := service.Whoami()
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
}
