package calendar

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// externalStatusCode extracts the HTTP status from a provider error,
// or 0 when the failure never reached the API (transport error,
// timeout).
func externalStatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// isGone reports whether the provider says the event no longer exists
// on its side. There is nothing left to cancel or patch then, so the
// callers log it as a skip rather than a failure.
func isGone(err error) bool {
	code := externalStatusCode(err)
	return code == http.StatusNotFound || code == http.StatusGone
}
