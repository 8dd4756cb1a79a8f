package calendar

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/opencampus/studysync/internal/auth/token"
	"github.com/opencampus/studysync/internal/db/models"
	"github.com/opencampus/studysync/internal/logging"
	"github.com/opencampus/studysync/internal/util"
	gcal "google.golang.org/api/calendar/v3"
)

// Syncer mirrors local events onto participants' external calendars.
// Sync is strictly best-effort: local state is authoritative and no
// external failure ever unwinds a local mutation.
type Syncer struct {
	tokens   *token.Manager
	provider Provider
}

// NewSyncer wires the sync engine over a credential lifecycle manager
// and a calendar provider.
func NewSyncer(tokens *token.Manager, provider Provider) *Syncer {
	return &Syncer{tokens: tokens, provider: provider}
}

// ExternalRef identifies the organizer-side event on the provider:
// EventID within the organizer's own calendar and ICalUID across
// calendars (the handle attendee imports use).
type ExternalRef struct {
	EventID string
	ICalUID string
}

// CreateExternal creates the organizer-side event on the creator's
// calendar, inviting the given attendee emails. synced=false covers
// both "organizer not connected" and "provider call failed"; either
// way the caller proceeds as if sync simply did not happen.
func (s *Syncer) CreateExternal(ctx context.Context, organizerID string, event *models.Event, attendeeEmails []string) (ExternalRef, bool) {
	cred, found, err := s.tokens.ObtainUsableCredential(ctx, organizerID)
	if err != nil {
		log.Printf("⚠️ %sNo usable credential for organizer %s: %v", logging.Prefix(ctx), organizerID, err)
		return ExternalRef{}, false
	}
	if !found {
		return ExternalRef{}, false
	}

	created, err := s.provider.Insert(ctx, cred, buildProviderEvent(event, attendeeEmails))
	if err != nil {
		log.Printf("❌ %sExternal create failed for event %s (organizer %s, status %d): %s",
			logging.Prefix(ctx), event.ID, organizerID, externalStatusCode(err), util.TruncateError(err))
		return ExternalRef{}, false
	}

	log.Printf("📅 Created external event %s for %q", created.Id, event.Title)
	return ExternalRef{EventID: created.Id, ICalUID: created.ICalUID}, true
}

// CancelExternal marks the organizer-side event cancelled. Best effort:
// failure is logged and swallowed.
func (s *Syncer) CancelExternal(ctx context.Context, organizerID, externalEventID string) {
	cred, found, err := s.tokens.ObtainUsableCredential(ctx, organizerID)
	if err != nil || !found {
		if err != nil {
			log.Printf("⚠️ %sSkipping external cancel for %s: %v", logging.Prefix(ctx), externalEventID, err)
		}
		return
	}

	if _, err := s.provider.Patch(ctx, cred, externalEventID, &gcal.Event{Status: "cancelled"}); err != nil {
		if isGone(err) {
			log.Printf("⚠️ %sExternal event %s already gone, nothing to cancel", logging.Prefix(ctx), externalEventID)
			return
		}
		log.Printf("❌ %sExternal cancel failed for %s (status %d): %s",
			logging.Prefix(ctx), externalEventID, externalStatusCode(err), util.TruncateError(err))
		return
	}
	log.Printf("🗑️ Cancelled external event %s", externalEventID)
}

// buildProviderEvent maps a local event to the provider payload.
// Times go out in UTC; attendees start as needsAction so the provider
// sends invitations.
func buildProviderEvent(event *models.Event, attendeeEmails []string) *gcal.Event {
	out := &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &gcal.EventDateTime{
			DateTime: event.StartTime.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: event.EndTime.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	for _, email := range attendeeEmails {
		out.Attendees = append(out.Attendees, &gcal.EventAttendee{
			Email:          email,
			ResponseStatus: "needsAction",
		})
	}

	if event.Recurrence != "" {
		// Rules are stored newline-joined: ";" separates parameters
		// inside a single RRULE and must not be used to split rules.
		out.Recurrence = strings.Split(event.Recurrence, "\n")
	}

	out.Reminders = buildReminders(event.ReminderMinutes)
	return out
}

// buildReminders turns the comma-joined minute offsets into popup
// reminder overrides, or falls back to the user's calendar defaults.
func buildReminders(reminderMinutes string) *gcal.EventReminders {
	if reminderMinutes == "" {
		return &gcal.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}}
	}

	var overrides []*gcal.EventReminder
	for _, part := range strings.Split(reminderMinutes, ",") {
		minutes, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || minutes < 0 {
			continue
		}
		overrides = append(overrides, &gcal.EventReminder{Method: "popup", Minutes: int64(minutes)})
	}
	if len(overrides) == 0 {
		return &gcal.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}}
	}
	return &gcal.EventReminders{UseDefault: false, Overrides: overrides, ForceSendFields: []string{"UseDefault"}}
}
