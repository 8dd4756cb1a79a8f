package calendar

import (
	"context"
	"log"

	"github.com/opencampus/studysync/internal/db/models"
	"github.com/opencampus/studysync/internal/logging"
	"github.com/opencampus/studysync/internal/util"
	gcal "google.golang.org/api/calendar/v3"
)

// Sync outcomes reported back to the caller. The local status change is
// already committed by the time these are produced, so "not synced" is
// an outcome, not an error.
const (
	OutcomeSynced    = "synced"
	OutcomeNotSynced = "not synced"
)

// mapResponseStatus translates the local response vocabulary into the
// provider's.
func mapResponseStatus(local string) string {
	switch local {
	case models.ResponseAccepted:
		return "accepted"
	case models.ResponseDeclined:
		return "declined"
	case models.ResponseTentative:
		return "tentative"
	default:
		return "needsAction"
	}
}

// SyncResponse mirrors a locally committed attendance change onto the
// organizer-side event's attendee list. Preconditions: the event must
// have an external id and the attendee's email must be known; when
// either is missing the operation is a no-op returning "not synced".
// The matching entry is replaced by email; no entry is ever invented
// when no match exists.
func (s *Syncer) SyncResponse(ctx context.Context, event *models.Event, attendeeEmail, newStatus string) string {
	if event.ExternalEventID == "" || attendeeEmail == "" {
		return OutcomeNotSynced
	}

	cred, found, err := s.tokens.ObtainUsableCredential(ctx, event.CreatorID)
	if err != nil {
		log.Printf("⚠️ %sResponse sync skipped for event %s: %v", logging.Prefix(ctx), event.ID, err)
		return OutcomeNotSynced
	}
	if !found {
		return OutcomeNotSynced
	}

	external, err := s.provider.Get(ctx, cred, event.ExternalEventID)
	if err != nil {
		if isGone(err) {
			log.Printf("⚠️ %sExternal event %s no longer exists, response stays local", logging.Prefix(ctx), event.ExternalEventID)
			return OutcomeNotSynced
		}
		log.Printf("❌ %sFailed to fetch external event %s (status %d): %s",
			logging.Prefix(ctx), event.ExternalEventID, externalStatusCode(err), util.TruncateError(err))
		return OutcomeNotSynced
	}

	matched := false
	for _, entry := range external.Attendees {
		if entry.Email == attendeeEmail {
			entry.ResponseStatus = mapResponseStatus(newStatus)
			matched = true
			break
		}
	}
	if !matched {
		log.Printf("⚠️ %sNo attendee entry for %s on external event %s, nothing to patch", logging.Prefix(ctx), attendeeEmail, event.ExternalEventID)
		return OutcomeNotSynced
	}

	patch := &gcal.Event{Attendees: external.Attendees}
	if _, err := s.provider.Patch(ctx, cred, event.ExternalEventID, patch); err != nil {
		log.Printf("❌ %sResponse patch failed for external event %s (status %d): %s",
			logging.Prefix(ctx), event.ExternalEventID, externalStatusCode(err), util.TruncateError(err))
		return OutcomeNotSynced
	}

	log.Printf("✅ Synced response %s for %s on event %s", newStatus, attendeeEmail, event.ID)
	return OutcomeSynced
}
