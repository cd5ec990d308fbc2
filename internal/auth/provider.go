package auth

import (
	"net/http"
	"sync"

	"go.uber.org/zap"

	"pdfchat/internal/model"
	"pdfchat/internal/platform/localstore"
)

// Storage keys, matching the browser client's local storage layout.
const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
)

// TokenProvider owns the process-wide Credential: it mirrors the
// persisted pair in memory, attaches it to outgoing requests, and clears
// it on revocation. It is the only writer of credential state.
type TokenProvider struct {
	store  *localstore.Store
	logger *zap.Logger

	mu       sync.Mutex
	cred     model.Credential
	onLogout []func()
}

func NewTokenProvider(store *localstore.Store, logger *zap.Logger) *TokenProvider {
	p := &TokenProvider{
		store:  store,
		logger: logger,
	}
	if access, ok := store.Get(KeyAccess); ok {
		p.cred.AccessToken = access
	}
	if refresh, ok := store.Get(KeyRefresh); ok {
		p.cred.RefreshToken = refresh
	}
	return p
}

// Attach injects the bearer header when a token is present; otherwise
// the request passes through unchanged.
func (p *TokenProvider) Attach(req *http.Request) {
	p.mu.Lock()
	token := p.cred.AccessToken
	p.mu.Unlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (p *TokenProvider) Credential() model.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cred
}

func (p *TokenProvider) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cred.AccessToken != ""
}

// SetCredential stores a fresh pair after a successful login.
func (p *TokenProvider) SetCredential(cred model.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cred = cred
	if err := p.store.Set(KeyAccess, cred.AccessToken); err != nil {
		return err
	}
	return p.store.Set(KeyRefresh, cred.RefreshToken)
}

// Clear drops both layers. Safe to call repeatedly.
func (p *TokenProvider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cred = model.Credential{}
	return p.store.Delete(KeyAccess, KeyRefresh)
}

// OnLogout registers a callback fired when the credential is revoked by
// the server (401). Used by the presentation layer to fall back to the
// login prompt.
func (p *TokenProvider) OnLogout(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLogout = append(p.onLogout, fn)
}

// HandleUnauthorized clears the credential and notifies subscribers.
// Several in-flight requests can all see a 401 at once; only the first
// caller to observe a non-empty credential fires the callbacks, the
// rest are no-ops.
func (p *TokenProvider) HandleUnauthorized() {
	p.mu.Lock()
	if p.cred.Empty() {
		p.mu.Unlock()
		return
	}
	p.cred = model.Credential{}
	if err := p.store.Delete(KeyAccess, KeyRefresh); err != nil {
		p.logger.Warn("clear persisted credentials failed", zap.Error(err))
	}
	callbacks := make([]func(), len(p.onLogout))
	copy(callbacks, p.onLogout)
	p.mu.Unlock()

	p.logger.Info("credentials cleared after 401")
	for _, fn := range callbacks {
		fn()
	}
}
