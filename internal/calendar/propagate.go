package calendar

import (
	"context"
	"log"

	"github.com/opencampus/studysync/internal/db/models"
	"github.com/opencampus/studysync/internal/logging"
	"github.com/opencampus/studysync/internal/util"
	gcal "google.golang.org/api/calendar/v3"
)

// Participant is an invited user as the propagator needs to see them.
type Participant struct {
	UserID string
	Email  string
}

// PropagationReport summarizes one fan-out sweep. Failures are kept for
// logging only; they never fail the triggering request.
type PropagationReport struct {
	Attempted int
	Imported  int
	Skipped   int      // attendees without a connected calendar
	Failed    []string // user IDs whose import failed
}

// PropagateToAttendees imports the organizer-side event into each other
// attendee's own calendar, identified by its cross-calendar iCal UID.
// The sweep is sequential and each attendee is isolated: one failure
// never aborts the rest.
func (s *Syncer) PropagateToAttendees(ctx context.Context, organizerID string, ref ExternalRef, attendees []Participant, event *models.Event) PropagationReport {
	var report PropagationReport

	for _, attendee := range attendees {
		if attendee.UserID == organizerID {
			continue
		}

		cred, found, err := s.tokens.ObtainUsableCredential(ctx, attendee.UserID)
		if err != nil {
			// Refresh failure degrades to a skip for this attendee.
			log.Printf("⚠️ %sSkipping propagation to %s: %v", logging.Prefix(ctx), attendee.UserID, err)
			report.Skipped++
			continue
		}
		if !found {
			report.Skipped++
			continue
		}

		report.Attempted++
		if _, err := s.provider.Import(ctx, cred, importPayload(ref, attendee.Email, event)); err != nil {
			log.Printf("❌ %sImport failed for attendee %s on event %s (status %d): %s",
				logging.Prefix(ctx), attendee.UserID, event.ID, externalStatusCode(err), util.TruncateError(err))
			report.Failed = append(report.Failed, attendee.UserID)
			continue
		}
		report.Imported++
	}

	if len(report.Failed) > 0 {
		log.Printf("⚠️ %sPropagation for event %s finished with %d failure(s): %v", logging.Prefix(ctx), event.ID, len(report.Failed), report.Failed)
	}
	return report
}

// importPayload builds the event copy imported into an attendee's
// calendar. The iCal UID ties it back to the organizer-side event so
// the provider treats it as the same meeting, confirmed on their side.
func importPayload(ref ExternalRef, attendeeEmail string, event *models.Event) *gcal.Event {
	out := buildProviderEvent(event, nil)
	out.ICalUID = ref.ICalUID
	out.Status = "confirmed"
	out.Attendees = []*gcal.EventAttendee{
		{Email: attendeeEmail, ResponseStatus: "accepted", Self: true},
	}
	return out
}
