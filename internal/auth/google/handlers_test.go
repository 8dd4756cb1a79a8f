package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/db/models"
	"github.com/opencampus/studysync/internal/middleware"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, *db.CredentialStore) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.Credential{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database, db.NewCredentialStore(database)
}

func addUser(t *testing.T, database *gorm.DB, id string) *models.User {
	t.Helper()
	user := models.User{ID: id, Email: id + "@example.com", Name: id, SessionToken: "tok-" + id}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func stubExchange(t *testing.T, token *oauth2.Token, err error) {
	t.Helper()
	orig := exchangeCode
	exchangeCode = func(context.Context, *oauth2.Config, string) (*oauth2.Token, error) {
		return token, err
	}
	t.Cleanup(func() { exchangeCode = orig })
}

func redirectLocation(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	return loc
}

func TestHandleAuthorize_RedirectsToConsent(t *testing.T) {
	user := &models.User{ID: "u1", Email: "u1@example.com"}
	req := httptest.NewRequest(http.MethodGet, "/auth/google/authorize", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	HandleAuthorize()(rec, req)

	loc := redirectLocation(t, rec)
	if !strings.Contains(loc.Host, "google.com") {
		t.Fatalf("expected redirect to Google, got %s", loc)
	}
	q := loc.Query()
	if q.Get("access_type") != "offline" {
		t.Fatal("consent URL must request offline access")
	}
	if q.Get("prompt") != "consent" && q.Get("approval_prompt") != "force" {
		t.Fatal("consent URL must force re-consent so a refresh token is issued")
	}

	st, err := DecodeState(q.Get("state"), time.Now())
	if err != nil {
		t.Fatalf("state in consent URL must decode: %v", err)
	}
	if st.UserID != "u1" {
		t.Fatalf("state carries wrong user %q", st.UserID)
	}
}

func TestHandleCallback_InvalidStateRedirectsWithKind(t *testing.T) {
	database, store := newTestDB(t)
	handler := HandleCallback(database, store)

	for _, state := range []string{"", "garbage", mustState(t, "u1", time.Now().Add(-16*time.Minute))} {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state="+url.QueryEscape(state), nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		loc := redirectLocation(t, rec)
		if loc.Query().Get("error") != "state_invalid" {
			t.Fatalf("expected error=state_invalid for state %q, got %s", state, loc)
		}
	}
}

func mustState(t *testing.T, userID string, issued time.Time) string {
	t.Helper()
	raw, err := EncodeState(userID, issued)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	return raw
}

func TestHandleCallback_PersistsCredential(t *testing.T) {
	database, store := newTestDB(t)
	addUser(t, database, "u1")
	expiry := time.Now().Add(time.Hour)
	stubExchange(t, &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: expiry}, nil)

	state := mustState(t, "u1", time.Now())
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state="+url.QueryEscape(state), nil)
	rec := httptest.NewRecorder()
	HandleCallback(database, store)(rec, req)

	loc := redirectLocation(t, rec)
	if loc.Query().Get("connected") != "true" {
		t.Fatalf("expected connected=true, got %s", loc)
	}

	cred, found, err := store.Get("u1")
	if err != nil || !found {
		t.Fatalf("credential not stored: found=%v err=%v", found, err)
	}
	if cred.AccessToken != "at" || cred.RefreshToken != "rt" {
		t.Fatalf("stored wrong tokens: %+v", cred)
	}
}

func TestHandleCallback_ErrorKinds(t *testing.T) {
	database, store := newTestDB(t)
	addUser(t, database, "u1")

	tests := []struct {
		name     string
		userID   string
		token    *oauth2.Token
		exchErr  error
		wantKind string
	}{
		{name: "exchange failure", userID: "u1", exchErr: fmt.Errorf("boom"), wantKind: "exchange_failed"},
		{name: "no access token", userID: "u1", token: &oauth2.Token{}, wantKind: "no_access_token"},
		{name: "unknown user", userID: "u-ghost", token: &oauth2.Token{AccessToken: "at"}, wantKind: "unknown_user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubExchange(t, tt.token, tt.exchErr)
			state := mustState(t, tt.userID, time.Now())
			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state="+url.QueryEscape(state), nil)
			rec := httptest.NewRecorder()
			HandleCallback(database, store)(rec, req)

			loc := redirectLocation(t, rec)
			if got := loc.Query().Get("error"); got != tt.wantKind {
				t.Fatalf("expected error=%s, got %q", tt.wantKind, got)
			}
		})
	}
}

func TestHandleDisconnect_SecondCallIs404(t *testing.T) {
	database, store := newTestDB(t)
	user := addUser(t, database, "u1")
	if err := store.Upsert("u1", "at", "rt", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/google/disconnect", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), user))
		rec := httptest.NewRecorder()
		HandleDisconnect(store)(rec, req)
		return rec
	}

	first := call()
	if first.Code != http.StatusOK {
		t.Fatalf("first disconnect: expected 200, got %d", first.Code)
	}
	var body map[string]any
	json.NewDecoder(first.Body).Decode(&body)
	if body["success"] != true {
		t.Fatalf("expected success:true, got %v", body)
	}

	second := call()
	if second.Code != http.StatusNotFound {
		t.Fatalf("second disconnect: expected 404, got %d", second.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	database, store := newTestDB(t)
	user := addUser(t, database, "u1")

	status := func(query string) map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/status"+query, nil)
		req = req.WithContext(middleware.WithUser(req.Context(), user))
		rec := httptest.NewRecorder()
		HandleStatus(store)(rec, req)
		var body map[string]any
		json.NewDecoder(rec.Body).Decode(&body)
		return body
	}

	if body := status(""); body["connected"] != false {
		t.Fatalf("expected connected=false, got %v", body)
	}

	if err := store.Upsert("u1", "at", "rt", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if body := status(""); body["connected"] != true {
		t.Fatalf("expected connected=true, got %v", body)
	}
	if body := status("?userId=u-other"); body["connected"] != false {
		t.Fatalf("expected connected=false for other user, got %v", body)
	}
}
