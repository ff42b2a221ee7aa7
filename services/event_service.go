package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"eventhub-api/logging"
	"eventhub-api/models"
	"eventhub-api/repositories"
	"eventhub-api/utils"
	"eventhub-api/validation"
)

type EventService struct {
	events    *repositories.EventRepository
	locations *LocationService
	presenter *Presenter
}

func NewEventService(db *gorm.DB, locations *LocationService, presenter *Presenter) *EventService {
	return &EventService{
		events:    repositories.NewEventRepository(db),
		locations: locations,
		presenter: presenter,
	}
}

func (s *EventService) List(ctx context.Context, viewerID uint, filter repositories.EventFilter, page utils.Page) ([]models.EventResponse, int64, error) {
	filter.ViewerID = viewerID
	events, total, err := s.events.List(ctx, filter, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, err
	}
	if len(events) == 0 && page.Number > 1 {
		return nil, 0, utils.NewNotFound("Invalid page.")
	}
	out, err := s.presenter.Events(ctx, viewerID, events)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get loads the event model, used for permission checks before writes.
func (s *EventService) Get(ctx context.Context, id uint) (*models.Event, error) {
	return s.events.Get(ctx, id)
}

func (s *EventService) Retrieve(ctx context.Context, viewerID, id uint) (*models.EventResponse, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presenter.Event(ctx, viewerID, event)
}

type eventFields struct {
	update   repositories.EventUpdate
	location *models.LocationInput
}

// validateEvent checks req; with partial set absent fields are allowed.
func validateEvent(req models.EventRequest, partial bool) (eventFields, error) {
	var out eventFields
	fields := utils.FieldErrors{}
	const required = "This field is required."

	if req.Name == nil {
		if !partial {
			fields.Add("name", required)
		}
	} else if err := validation.ValidateEventName(*req.Name); err != nil {
		fields.Add("name", err.Error())
	} else {
		out.update.Name = req.Name
	}

	if req.Description == nil {
		if !partial {
			fields.Add("description", required)
		}
	} else if strings.TrimSpace(*req.Description) == "" {
		fields.Add("description", "This field may not be blank.")
	} else {
		out.update.Description = req.Description
	}

	if req.Activity == nil {
		if !partial {
			fields.Add("activity", "At least one activity is required.")
		}
	} else if len(req.Activity) == 0 {
		fields.Add("activity", "At least one activity is required.")
	} else {
		out.update.ActivityIDs = req.Activity
	}

	if req.Datetime == nil {
		if !partial {
			fields.Add("datetime", required)
		}
	} else if t, err := utils.ParseDatetime(*req.Datetime); err != nil {
		fields.Add("datetime", "Datetime has wrong format.")
	} else {
		out.update.Datetime = &t
	}

	if req.Duration == nil {
		if !partial {
			fields.Add("duration", required)
		}
	} else if err := validation.ValidateDuration(*req.Duration); err != nil {
		fields.Add("duration", err.Error())
	} else {
		out.update.Duration = req.Duration
	}

	out.location = req.Location
	return out, fields.Err()
}

// Create validates req, resolves the location and stores the event with the
// author as first participant. The geocoder is called before any write.
func (s *EventService) Create(ctx context.Context, authorID uint, req models.EventRequest) (*models.EventResponse, error) {
	f, err := validateEvent(req, false)
	if err != nil {
		return nil, err
	}

	in := models.LocationInput{}
	if f.location != nil {
		in = *f.location
	}
	location, err := s.locations.Resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		Name:        *f.update.Name,
		Description: *f.update.Description,
		Datetime:    *f.update.Datetime,
		Duration:    *f.update.Duration,
		AuthorID:    authorID,
	}
	if err := s.events.Create(ctx, event, location, f.update.ActivityIDs); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Uint("event_id", event.ID).Uint("author_id", authorID).Msg("event created")

	return s.Retrieve(ctx, authorID, event.ID)
}

// Update applies req to event. partial selects PATCH semantics.
func (s *EventService) Update(ctx context.Context, viewerID uint, event *models.Event, req models.EventRequest, partial bool) (*models.EventResponse, error) {
	f, err := validateEvent(req, partial)
	if err != nil {
		return nil, err
	}

	if f.location != nil {
		location, err := s.locations.Resolve(ctx, *f.location)
		if err != nil {
			return nil, err
		}
		f.update.Location = location
	}

	if err := s.events.Update(ctx, event, f.update); err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, viewerID, event.ID)
}

func (s *EventService) Delete(ctx context.Context, event *models.Event) error {
	if err := s.events.Delete(ctx, event); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Uint("event_id", event.ID).Msg("event deleted")
	return nil
}

