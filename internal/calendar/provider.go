package calendar

import (
	"context"
	"time"

	"github.com/opencampus/studysync/internal/db/models"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// callTimeout bounds every provider call. A slow provider turns into a
// per-attendee failure instead of a hung request.
const callTimeout = 30 * time.Second

// Provider is the external calendar API surface the sync engine needs.
// Every operation acts on the "primary" calendar of the user the
// credential belongs to.
type Provider interface {
	Insert(ctx context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error)
	Get(ctx context.Context, cred *models.Credential, externalEventID string) (*gcal.Event, error)
	Patch(ctx context.Context, cred *models.Credential, externalEventID string, event *gcal.Event) (*gcal.Event, error)
	Import(ctx context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error)
}

// googleProvider talks to the Google Calendar API. A fresh service is
// built per call from the credential under operation, never shared, so
// one request's tokens cannot leak into another's.
type googleProvider struct{}

// NewGoogleProvider returns the production Google Calendar provider.
func NewGoogleProvider() Provider {
	return &googleProvider{}
}

func (g *googleProvider) service(ctx context.Context, cred *models.Credential) (*gcal.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
	return gcal.NewService(ctx, option.WithTokenSource(source))
}

func (g *googleProvider) Insert(ctx context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	return svc.Events.Insert("primary", event).SendUpdates("all").Context(ctx).Do()
}

func (g *googleProvider) Get(ctx context.Context, cred *models.Credential, externalEventID string) (*gcal.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	return svc.Events.Get("primary", externalEventID).Context(ctx).Do()
}

func (g *googleProvider) Patch(ctx context.Context, cred *models.Credential, externalEventID string, event *gcal.Event) (*gcal.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	return svc.Events.Patch("primary", externalEventID, event).SendUpdates("all").Context(ctx).Do()
}

func (g *googleProvider) Import(ctx context.Context, cred *models.Credential, event *gcal.Event) (*gcal.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	return svc.Events.Import("primary", event).Context(ctx).Do()
}
