package google

import (
	"os"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// Scopes required to manage events on a user's calendar and read the
// email address we match attendees by.
var Scopes = []string{
	calendar.CalendarEventsScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

// NewOAuthConfig returns a fresh OAuth2 config for Google authorization.
// A new value is built per call rather than shared, so no request can
// observe another request's redirect URL or credential state.
func NewOAuthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}

// ConsentURL builds the provider consent URL for a state token,
// requesting offline access and forcing the approval prompt so Google
// always issues a refresh token, even on re-authorization.
func ConsentURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)
}
