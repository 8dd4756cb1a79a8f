package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/opencampus/studysync/internal/auth/google"
	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/db/models"
	"golang.org/x/oauth2"
)

// ErrRefreshFailed marks a credential whose refresh was rejected by the
// provider. The current operation degrades to "not synced"; the user is
// told to reconnect only when the failure is permanent.
var ErrRefreshFailed = errors.New("token refresh failed")

// expiryLeeway treats tokens expiring within the window as already
// expired, so a call never goes out with a token the provider is about
// to reject.
const expiryLeeway = time.Minute

// Manager owns the credential lifecycle: deciding whether a stored
// token is usable, refreshing expired ones against the provider and
// persisting the result. Tokens are always read fresh from the store;
// there is no cross-request cache.
type Manager struct {
	store   *db.CredentialStore
	refresh func(ctx context.Context, cred *models.Credential) (*oauth2.Token, error)

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewManager creates a lifecycle manager over the credential store.
func NewManager(store *db.CredentialStore) *Manager {
	return &Manager{
		store:   store,
		refresh: providerRefresh,
		users:   make(map[string]*sync.Mutex),
	}
}

// providerRefresh exchanges a refresh token for a new access token at
// Google's token endpoint.
func providerRefresh(ctx context.Context, cred *models.Credential) (*oauth2.Token, error) {
	config := google.NewOAuthConfig("")
	source := config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	return source.Token()
}

// userLock returns the per-user mutex that serializes refreshes, so two
// concurrent requests observing the same expired token cannot race each
// other's refresh token rotation.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.users[userID] = lock
	}
	return lock
}

// ObtainUsableCredential returns a credential whose access token is
// valid for immediate use. found=false means the user never connected a
// calendar, which is a normal state and not an error. An expired token
// is refreshed inline and the refreshed row persisted before returning.
func (m *Manager) ObtainUsableCredential(ctx context.Context, userID string) (*models.Credential, bool, error) {
	cred, found, err := m.store.Get(userID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if cred.Usable(time.Now(), expiryLeeway) {
		return cred, true, nil
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent request may have finished
	// the refresh while we waited.
	cred, found, err = m.store.Get(userID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if cred.Usable(time.Now(), expiryLeeway) {
		return cred, true, nil
	}

	return m.refreshCredential(ctx, cred)
}

// refreshCredential performs the provider refresh and persists the new
// tokens. The refresh token is replaced only when the provider rotated
// it; Google usually returns the same one and an empty value must not
// clobber the stored token.
func (m *Manager) refreshCredential(ctx context.Context, cred *models.Credential) (*models.Credential, bool, error) {
	newToken, err := m.refresh(ctx, cred)
	if err != nil {
		if isPermanentRefreshError(err) {
			// Consent was revoked; the row is useless until the user
			// reconnects.
			if _, delErr := m.store.Delete(cred.UserID); delErr != nil {
				log.Printf("⚠️ Failed to remove revoked credential for %s: %v", cred.UserID, delErr)
			}
			log.Printf("🔒 Credential for %s revoked by provider, user must reconnect", cred.UserID)
			return nil, false, fmt.Errorf("%w for %s: %v", ErrRefreshFailed, cred.UserID, err)
		}
		// Transient failure: keep the row, a later request may succeed.
		log.Printf("⏳ Transient refresh failure for %s: %v", cred.UserID, err)
		return nil, false, fmt.Errorf("%w for %s: %v", ErrRefreshFailed, cred.UserID, err)
	}

	refreshToken := cred.RefreshToken
	if newToken.RefreshToken != "" && newToken.RefreshToken != cred.RefreshToken {
		log.Printf("🔄 Provider rotated refresh token for %s", cred.UserID)
		refreshToken = newToken.RefreshToken
	}

	if err := m.store.Upsert(cred.UserID, newToken.AccessToken, refreshToken, newToken.Expiry, cred.Scopes); err != nil {
		return nil, false, fmt.Errorf("persist refreshed credential for %s: %w", cred.UserID, err)
	}

	log.Printf("✅ Refreshed token for %s (expires %s)", cred.UserID, newToken.Expiry.Format(time.RFC3339))
	cred.AccessToken = newToken.AccessToken
	cred.RefreshToken = refreshToken
	cred.ExpiresAt = newToken.Expiry
	return cred, true, nil
}

// isPermanentRefreshError reports whether a refresh failure means the
// grant is gone for good, as opposed to a transient provider problem.
func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
