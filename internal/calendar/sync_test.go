package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/opencampus/studysync/internal/auth/token"
	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/db/models"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

// fakeProvider records calls and delegates to overridable behaviors.
type fakeProvider struct {
	inserts int
	gets    int
	patches int
	imports int

	insertFn func(cred *models.Credential, event *gcal.Event) (*gcal.Event, error)
	getFn    func(cred *models.Credential, id string) (*gcal.Event, error)
	patchFn  func(cred *models.Credential, id string, event *gcal.Event) (*gcal.Event, error)
	importFn func(cred *models.Credential, event *gcal.Event) (*gcal.Event, error)
}

func (f *fakeProvider) Insert(_ context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error) {
	f.inserts++
	if f.insertFn != nil {
		return f.insertFn(cred, event)
	}
	return &gcal.Event{Id: "ext-1", ICalUID: "uid-1@google.com"}, nil
}

func (f *fakeProvider) Get(_ context.Context, cred *models.Credential, id string) (*gcal.Event, error) {
	f.gets++
	if f.getFn != nil {
		return f.getFn(cred, id)
	}
	return &gcal.Event{Id: id}, nil
}

func (f *fakeProvider) Patch(_ context.Context, cred *models.Credential, id string, event *gcal.Event) (*gcal.Event, error) {
	f.patches++
	if f.patchFn != nil {
		return f.patchFn(cred, id, event)
	}
	return event, nil
}

func (f *fakeProvider) Import(_ context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error) {
	f.imports++
	if f.importFn != nil {
		return f.importFn(cred, event)
	}
	return event, nil
}

func newSyncFixture(t *testing.T) (*db.CredentialStore, *fakeProvider, *Syncer) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(&models.Credential{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	store := db.NewCredentialStore(database)
	provider := &fakeProvider{}
	return store, provider, NewSyncer(token.NewManager(store), provider)
}

func connect(t *testing.T, store *db.CredentialStore, userID string) {
	t.Helper()
	if err := store.Upsert(userID, "access-"+userID, "refresh-"+userID, time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("connect %s: %v", userID, err)
	}
}

func testEvent() *models.Event {
	return &models.Event{
		ID:          "ev-1",
		Title:       "Midterm review",
		Description: "Chapters 4-7",
		Location:    "Library room 2",
		StartTime:   time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
		CreatorID:   "u1",
		Status:      models.EventConfirmed,
	}
}

func TestCreateExternal_UnconnectedOrganizerIsNoOp(t *testing.T) {
	_, provider, syncer := newSyncFixture(t)

	ref, synced := syncer.CreateExternal(context.Background(), "u-unconnected", testEvent(), []string{"a@example.com"})
	if synced {
		t.Fatal("expected not synced for unconnected organizer")
	}
	if ref.EventID != "" {
		t.Fatalf("expected empty external ref, got %+v", ref)
	}
	if provider.inserts != 0 {
		t.Fatalf("expected zero provider calls, got %d", provider.inserts)
	}
}

func TestCreateExternal_BuildsProviderPayload(t *testing.T) {
	store, provider, syncer := newSyncFixture(t)
	connect(t, store, "u1")

	var got *gcal.Event
	provider.insertFn = func(_ *models.Credential, event *gcal.Event) (*gcal.Event, error) {
		got = event
		return &gcal.Event{Id: "ext-42", ICalUID: "uid-42@google.com"}, nil
	}

	event := testEvent()
	event.Recurrence = "RRULE:FREQ=WEEKLY;COUNT=4"
	event.ReminderMinutes = "10,60"

	ref, synced := syncer.CreateExternal(context.Background(), "u1", event, []string{"u1@example.com", "u2@example.com"})
	if !synced {
		t.Fatal("expected synced")
	}
	if ref.EventID != "ext-42" || ref.ICalUID != "uid-42@google.com" {
		t.Fatalf("unexpected external ref %+v", ref)
	}

	if got.Summary != "Midterm review" || got.Location != "Library room 2" {
		t.Fatalf("payload fields wrong: %+v", got)
	}
	if got.Start.DateTime != "2024-03-01T18:00:00Z" || got.Start.TimeZone != "UTC" {
		t.Fatalf("start not mapped to UTC: %+v", got.Start)
	}
	if len(got.Attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(got.Attendees))
	}
	for _, a := range got.Attendees {
		if a.ResponseStatus != "needsAction" {
			t.Fatalf("attendee %s must start as needsAction, got %s", a.Email, a.ResponseStatus)
		}
	}
	if len(got.Recurrence) != 1 || got.Recurrence[0] != "RRULE:FREQ=WEEKLY;COUNT=4" {
		t.Fatalf("recurrence not carried: %v", got.Recurrence)
	}
	if got.Reminders == nil || got.Reminders.UseDefault || len(got.Reminders.Overrides) != 2 {
		t.Fatalf("reminder overrides not built: %+v", got.Reminders)
	}
}

func TestBuildProviderEvent_MultiParameterRulesStayIntact(t *testing.T) {
	event := testEvent()
	event.Recurrence = "RRULE:FREQ=WEEKLY;COUNT=4\nEXDATE:20240308T180000Z"

	out := buildProviderEvent(event, nil)
	if len(out.Recurrence) != 2 {
		t.Fatalf("expected 2 rules, got %v", out.Recurrence)
	}
	if out.Recurrence[0] != "RRULE:FREQ=WEEKLY;COUNT=4" {
		t.Fatalf("rule parameters must not be split apart: %q", out.Recurrence[0])
	}
	if out.Recurrence[1] != "EXDATE:20240308T180000Z" {
		t.Fatalf("second rule corrupted: %q", out.Recurrence[1])
	}
}

func TestCreateExternal_ProviderFailureDegradesToNotSynced(t *testing.T) {
	store, provider, syncer := newSyncFixture(t)
	connect(t, store, "u1")
	provider.insertFn = func(*models.Credential, *gcal.Event) (*gcal.Event, error) {
		return nil, errors.New("googleapi: Error 500: backend error")
	}

	_, synced := syncer.CreateExternal(context.Background(), "u1", testEvent(), nil)
	if synced {
		t.Fatal("provider failure must report not synced, never an error to the caller")
	}
}

func TestCancelExternal_BestEffort(t *testing.T) {
	store, provider, syncer := newSyncFixture(t)
	connect(t, store, "u1")

	var patched *gcal.Event
	provider.patchFn = func(_ *models.Credential, id string, event *gcal.Event) (*gcal.Event, error) {
		if id != "ext-1" {
			t.Fatalf("patched wrong event %s", id)
		}
		patched = event
		return event, nil
	}

	syncer.CancelExternal(context.Background(), "u1", "ext-1")
	if patched == nil || patched.Status != "cancelled" {
		t.Fatalf("expected cancelled status patch, got %+v", patched)
	}

	// Failure path must be silent, including a provider-deleted event.
	provider.patchFn = func(*models.Credential, string, *gcal.Event) (*gcal.Event, error) {
		return nil, &googleapi.Error{Code: 404, Message: "Not Found"}
	}
	syncer.CancelExternal(context.Background(), "u1", "ext-gone")

	// Unconnected organizer skips the call entirely.
	before := provider.patches
	syncer.CancelExternal(context.Background(), "u-unconnected", "ext-1")
	if provider.patches != before {
		t.Fatal("unconnected organizer must not reach the provider")
	}
}

func TestBuildReminders_DefaultsWhenUnset(t *testing.T) {
	reminders := buildReminders("")
	if !reminders.UseDefault {
		t.Fatal("empty override list must fall back to calendar defaults")
	}
	reminders = buildReminders("bogus,-5")
	if !reminders.UseDefault {
		t.Fatal("only invalid offsets must fall back to calendar defaults")
	}
}
