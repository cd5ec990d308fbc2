package auth_test

import (
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pdfchat/internal/auth"
	"pdfchat/internal/model"
	"pdfchat/internal/platform/localstore"
)

func newProvider(t *testing.T) *auth.TokenProvider {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, err)
	return auth.NewTokenProvider(store, zap.NewNop())
}

func TestAttachInjectsBearerHeader(t *testing.T) {
	provider := newProvider(t)
	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "abc", RefreshToken: "def"}))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/api/my_pdfs/", nil)
	provider.Attach(req)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestAttachWithoutTokenLeavesRequestUnchanged(t *testing.T) {
	provider := newProvider(t)

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/api/test", nil)
	provider.Attach(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestCredentialsPersistAcrossProviders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	store, err := localstore.Open(path)
	require.NoError(t, err)
	provider := auth.NewTokenProvider(store, zap.NewNop())
	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "abc", RefreshToken: "def"}))

	reopened, err := localstore.Open(path)
	require.NoError(t, err)
	restored := auth.NewTokenProvider(reopened, zap.NewNop())
	assert.Equal(t, model.Credential{AccessToken: "abc", RefreshToken: "def"}, restored.Credential())
}

func TestHandleUnauthorizedFiresCallbacksOnce(t *testing.T) {
	provider := newProvider(t)
	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "abc", RefreshToken: "def"}))

	var fired int32
	provider.OnLogout(func() { atomic.AddInt32(&fired, 1) })

	// Two requests in flight can both see a 401 at the same time.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider.HandleUnauthorized()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.True(t, provider.Credential().Empty())
	assert.False(t, provider.LoggedIn())
}

func TestHandleUnauthorizedAfterClearIsNoOp(t *testing.T) {
	provider := newProvider(t)
	var fired int32
	provider.OnLogout(func() { atomic.AddInt32(&fired, 1) })

	provider.HandleUnauthorized()
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired), "no credential, nothing to revoke")
}

func TestClearIsIdempotent(t *testing.T) {
	provider := newProvider(t)
	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "abc", RefreshToken: "def"}))

	require.NoError(t, provider.Clear())
	require.NoError(t, provider.Clear())
	assert.True(t, provider.Credential().Empty())
}

func TestCallbackRegisteredAfterRevocationFiresOnNextOne(t *testing.T) {
	provider := newProvider(t)
	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "abc"}))
	provider.HandleUnauthorized()

	var fired int32
	provider.OnLogout(func() { atomic.AddInt32(&fired, 1) })

	require.NoError(t, provider.SetCredential(model.Credential{AccessToken: "xyz"}))
	provider.HandleUnauthorized()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}
