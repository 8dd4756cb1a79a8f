package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/middleware"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Error kinds surfaced in the callback redirect. The raw failure detail
// stays in the logs; the browser only ever sees one of these.
const (
	errKindStateInvalid  = "state_invalid"
	errKindExchange      = "exchange_failed"
	errKindNoAccessToken = "no_access_token"
	errKindUnknownUser   = "unknown_user"
	errKindStoreFailed   = "store_failed"
)

// profilePath is where the callback sends the browser, with either
// connected=true or error=<kind> appended.
const profilePath = "/profile"

// exchangeCode is swapped out in tests to avoid hitting Google.
var exchangeCode = func(ctx context.Context, config *oauth2.Config, code string) (*oauth2.Token, error) {
	return config.Exchange(ctx, code)
}

func redirectURLFor(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/auth/google/callback", scheme, r.Host)
}

// HandleAuthorize starts the OAuth flow: it packs the session user's
// identity into a state token and redirects to Google's consent page.
func HandleAuthorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		state, err := EncodeState(user.ID, time.Now())
		if err != nil {
			log.Printf("❌ Failed to issue authorization state for %s: %v", user.ID, err)
			http.Error(w, "failed to start authorization", http.StatusInternalServerError)
			return
		}

		config := NewOAuthConfig(redirectURLFor(r))
		http.Redirect(w, r, ConsentURL(config, state), http.StatusFound)
	}
}

// HandleCallback completes the OAuth flow. It validates the state
// token, exchanges the code for tokens, verifies the user still exists
// and persists the credential. Every failure redirects to the profile
// page with a distinct error kind.
func HandleCallback(database *gorm.DB, creds *db.CredentialStore) http.HandlerFunc {
	fail := func(w http.ResponseWriter, r *http.Request, kind string) {
		http.Redirect(w, r, profilePath+"?error="+kind, http.StatusFound)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		state, err := DecodeState(r.URL.Query().Get("state"), time.Now())
		if err != nil {
			log.Printf("⚠️ Rejected authorization callback: %v", err)
			fail(w, r, errKindStateInvalid)
			return
		}

		config := NewOAuthConfig(redirectURLFor(r))
		token, err := exchangeCode(r.Context(), config, r.URL.Query().Get("code"))
		if err != nil {
			log.Printf("❌ Code exchange failed for %s: %v", state.UserID, err)
			fail(w, r, errKindExchange)
			return
		}
		if token.AccessToken == "" {
			log.Printf("❌ Provider returned no access token for %s", state.UserID)
			fail(w, r, errKindNoAccessToken)
			return
		}

		if _, found, err := db.FindUser(database, state.UserID); err != nil || !found {
			log.Printf("⚠️ Authorization callback for unknown user %s", state.UserID)
			fail(w, r, errKindUnknownUser)
			return
		}

		if err := creds.Upsert(state.UserID, token.AccessToken, token.RefreshToken, token.Expiry, strings.Join(Scopes, " ")); err != nil {
			log.Printf("❌ Failed to persist credential for %s: %v", state.UserID, err)
			fail(w, r, errKindStoreFailed)
			return
		}

		log.Printf("✅ Calendar connected for user %s (token expires %s)", state.UserID, token.Expiry.Format(time.RFC3339))
		http.Redirect(w, r, profilePath+"?connected=true", http.StatusFound)
	}
}

// HandleDisconnect removes the session user's credential. Answers 404
// when there is nothing to remove, so a second disconnect is visible as
// "not connected" rather than a silent success.
func HandleDisconnect(creds *db.CredentialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		found, err := creds.Delete(user.ID)
		if err != nil {
			http.Error(w, "failed to disconnect", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !found {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "not connected"})
			return
		}
		log.Printf("🔌 Calendar disconnected for user %s", user.ID)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}
}

// HandleStatus reports whether a user has a stored credential. The
// userId query parameter defaults to the session user.
func HandleStatus(creds *db.CredentialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			user, ok := middleware.UserFrom(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			userID = user.ID
		}

		_, found, err := creds.Get(userID)
		if err != nil {
			http.Error(w, "failed to read credential", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"connected": found})
	}
}
