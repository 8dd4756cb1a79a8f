package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencampus/studysync/internal/calendar"
	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/db/models"
	"github.com/opencampus/studysync/internal/groups"
	"gorm.io/gorm"
)

// Error kinds the handlers translate into HTTP statuses. Validation
// always fails before any local mutation.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("event not found")
	ErrForbidden  = errors.New("not allowed")
)

// Service orchestrates event operations: the local transactional store
// is mutated first, then the syncer mirrors the change externally.
// External failure never rolls a local mutation back.
type Service struct {
	db     *gorm.DB
	syncer *calendar.Syncer
	groups *groups.Service
}

// NewService wires the event service.
func NewService(database *gorm.DB, syncer *calendar.Syncer, groupSvc *groups.Service) *Service {
	return &Service{db: database, syncer: syncer, groups: groupSvc}
}

// CreateInput is the payload for creating a study event.
type CreateInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	GroupID         string    `json:"groupId"`
	AttendeeIDs     []string  `json:"attendeeIds"`
	Recurrence      []string  `json:"recurrence"`
	ReminderMinutes []int     `json:"reminders"`
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return fmt.Errorf("%w: startTime and endTime are required", ErrValidation)
	}
	if !in.EndTime.After(in.StartTime) {
		return fmt.Errorf("%w: endTime must be after startTime", ErrValidation)
	}
	for _, rule := range in.Recurrence {
		if !strings.HasPrefix(rule, "RRULE:") && !strings.HasPrefix(rule, "EXDATE:") && !strings.HasPrefix(rule, "RDATE:") {
			return fmt.Errorf("%w: unsupported recurrence rule %q", ErrValidation, rule)
		}
	}
	for _, minutes := range in.ReminderMinutes {
		if minutes < 0 {
			return fmt.Errorf("%w: reminder minutes must not be negative", ErrValidation)
		}
	}
	return nil
}

// Create validates the payload, persists the event with an attendee row
// for every invited user (creator included, all PENDING), and then
// mirrors it externally: organizer-side create, external id write-back,
// attendee fan-out. The event is returned successfully even when every
// external step fails.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput) (*models.Event, []models.Attendee, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	if in.GroupID != "" {
		member, err := s.groups.IsMember(in.GroupID, creatorID)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			return nil, nil, fmt.Errorf("%w: creator is not a member of group %s", ErrForbidden, in.GroupID)
		}
	}

	participants, err := s.resolveParticipants(creatorID, in.AttendeeIDs)
	if err != nil {
		return nil, nil, err
	}

	event := models.Event{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Location:        in.Location,
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
		CreatorID:       creatorID,
		GroupID:         in.GroupID,
		Recurrence:      strings.Join(in.Recurrence, "\n"),
		ReminderMinutes: joinMinutes(in.ReminderMinutes),
		Status:          models.EventConfirmed,
	}

	var attendees []models.Attendee
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		for _, p := range participants {
			row := models.Attendee{
				EventID:        event.ID,
				UserID:         p.user.ID,
				ResponseStatus: models.ResponsePending,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			attendees = append(attendees, row)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Local rows are committed; everything below is best-effort sync.
	s.mirrorCreate(ctx, creatorID, &event, participants)
	return &event, attendees, nil
}

// mirrorCreate performs the organizer-side external create, writes the
// external id back on success and fans the event out to the other
// attendees.
func (s *Service) mirrorCreate(ctx context.Context, creatorID string, event *models.Event, participants []participant) {
	var invitees []string
	var fanout []calendar.Participant
	for _, p := range participants {
		invitees = append(invitees, p.user.Email)
		fanout = append(fanout, calendar.Participant{UserID: p.user.ID, Email: p.user.Email})
	}

	ref, synced := s.syncer.CreateExternal(ctx, creatorID, event, invitees)
	if !synced {
		return
	}

	// The external id is written back only after a successful create.
	if err := s.db.Model(event).Updates(map[string]any{
		"external_event_id": ref.EventID,
		"external_ical_uid": ref.ICalUID,
	}).Error; err == nil {
		event.ExternalEventID = ref.EventID
		event.ExternalICalUID = ref.ICalUID
	}

	s.syncer.PropagateToAttendees(ctx, creatorID, ref, fanout, event)
}

// Cancel marks the event cancelled locally and then best-effort cancels
// the organizer-side event. Only the creator or a group admin may
// cancel.
func (s *Service) Cancel(ctx context.Context, userID, eventID string) (*models.Event, error) {
	event, err := s.find(eventID)
	if err != nil {
		return nil, err
	}

	allowed := event.CreatorID == userID
	if !allowed && event.GroupID != "" {
		allowed, err = s.groups.IsAdmin(event.GroupID, userID)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: only the creator or a group admin may cancel", ErrForbidden)
	}

	if err := s.db.Model(event).Update("status", models.EventCancelled).Error; err != nil {
		return nil, err
	}
	event.Status = models.EventCancelled

	if event.ExternalEventID != "" {
		s.syncer.CancelExternal(ctx, event.CreatorID, event.ExternalEventID)
	}
	return event, nil
}

// Respond records an attendance response locally and then mirrors it
// onto the external event. The returned outcome tells the caller
// whether the mirror happened; the local change stands either way.
func (s *Service) Respond(ctx context.Context, userID, eventID, response string) (*models.Attendee, string, error) {
	switch response {
	case models.ResponseAccepted, models.ResponseDeclined, models.ResponseTentative:
	default:
		return nil, "", fmt.Errorf("%w: unknown response %q", ErrValidation, response)
	}

	event, err := s.find(eventID)
	if err != nil {
		return nil, "", err
	}

	var attendee models.Attendee
	err = s.db.First(&attendee, "event_id = ? AND user_id = ?", eventID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("%w: user %s is not invited to event %s", ErrForbidden, userID, eventID)
	}
	if err != nil {
		return nil, "", err
	}

	if err := s.db.Model(&attendee).Update("response_status", response).Error; err != nil {
		return nil, "", err
	}
	attendee.ResponseStatus = response

	email := ""
	if user, found, err := db.FindUser(s.db, userID); err == nil && found {
		email = user.Email
	}
	outcome := s.syncer.SyncResponse(ctx, event, email, response)
	return &attendee, outcome, nil
}

// Get returns an event with its attendee rows.
func (s *Service) Get(eventID string) (*models.Event, []models.Attendee, error) {
	event, err := s.find(eventID)
	if err != nil {
		return nil, nil, err
	}
	var attendees []models.Attendee
	if err := s.db.Where("event_id = ?", eventID).Find(&attendees).Error; err != nil {
		return nil, nil, err
	}
	return event, attendees, nil
}

func (s *Service) find(eventID string) (*models.Event, error) {
	var event models.Event
	err := s.db.First(&event, "id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type participant struct {
	user models.User
}

// resolveParticipants loads the invited users plus the creator,
// deduplicated. Unknown attendee ids are a validation error, caught
// before any local mutation.
func (s *Service) resolveParticipants(creatorID string, attendeeIDs []string) ([]participant, error) {
	ids := map[string]bool{creatorID: true}
	ordered := []string{creatorID}
	for _, id := range attendeeIDs {
		if !ids[id] {
			ids[id] = true
			ordered = append(ordered, id)
		}
	}

	var users []models.User
	if err := s.db.Where("id IN ?", ordered).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var out []participant
	for _, id := range ordered {
		user, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown attendee %s", ErrValidation, id)
		}
		out = append(out, participant{user: user})
	}
	return out, nil
}

func joinMinutes(minutes []int) string {
	parts := make([]string, 0, len(minutes))
	for _, m := range minutes {
		parts = append(parts, strconv.Itoa(m))
	}
	return strings.Join(parts, ",")
}
