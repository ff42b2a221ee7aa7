package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/utils"
)

// EventFilter holds the listing filters. Zero values disable a filter.
type EventFilter struct {
	Authors    []string
	Activities []string
	// ViewerID is the caller; personalised filters are ignored when it is 0.
	ViewerID              uint
	InMyParticipationList bool
	ActualEvent           bool
	PastEvent             bool
	ActualParticipation   bool
	PastParticipation     bool
	// Now is captured once per request so actual/past split cleanly.
	Now time.Time
}

// Apply narrows q (a query over events) by the filter.
func (f EventFilter) Apply(db, q *gorm.DB) *gorm.DB {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if len(f.Authors) > 0 {
		q = q.Where("events.author_id IN (?)",
			db.Model(&models.User{}).Select("id").Where("username IN ?", f.Authors))
	}
	if len(f.Activities) > 0 {
		q = q.Where("events.id IN (?)",
			db.Model(&models.ActivityForEvent{}).
				Select("activity_for_events.event_id").
				Joins("JOIN activities ON activities.id = activity_for_events.activity_id").
				Where("activities.name IN ?", f.Activities))
	}
	if f.ActualEvent {
		q = q.Where("events.datetime > ?", now)
	}
	if f.PastEvent {
		q = q.Where("events.datetime <= ?", now)
	}

	if f.ViewerID == 0 {
		return q
	}
	participating := db.Model(&models.Participation{}).Select("event_id").Where("user_id = ?", f.ViewerID)
	if f.InMyParticipationList {
		q = q.Where("events.id IN (?)", participating)
	}
	if f.ActualParticipation {
		q = q.Where("events.id IN (?)", participating).Where("events.datetime > ?", now)
	}
	if f.PastParticipation {
		q = q.Where("events.id IN (?)", participating).Where("events.datetime <= ?", now)
	}
	return q
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) DB() *gorm.DB {
	return r.db
}

func (r *EventRepository) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Author").Preload("Location").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("activities.name") })
}

// List returns one page of events matching filter, plus the total count.
func (r *EventRepository) List(ctx context.Context, filter EventFilter, offset, limit int) ([]models.Event, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := filter.Apply(db, db.Model(&models.Event{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	var events []models.Event
	q := filter.Apply(db, r.preload(db.Model(&models.Event{}))).Order(models.EventOrder)
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// All returns every event in default order with activities preloaded.
func (r *EventRepository) All(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := r.preload(r.db.WithContext(ctx)).Order(models.EventOrder).Find(&events).Error
	return events, err
}

func (r *EventRepository) Get(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.preload(r.db.WithContext(ctx)).First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("Event not found.")
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Exists(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.NewNotFound("Event not found.")
	}
	return nil
}

// Create stores the location, the event with its activities and the author's
// participation in one transaction.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, location *models.Location, activityIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(location).Error; err != nil {
			return fmt.Errorf("create location: %w", err)
		}
		event.LocationID = location.ID

		activities, err := loadActivities(tx, activityIDs)
		if err != nil {
			return err
		}

		if err := tx.Omit("Author", "Location", "Activities").Create(event).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.NewConflict("This author already has an event with this name and date.")
			}
			return fmt.Errorf("create event: %w", err)
		}
		if err := linkActivities(tx, event.ID, activities); err != nil {
			return err
		}
		event.Activities = activities

		if err := tx.Create(&models.Participation{UserID: event.AuthorID, EventID: event.ID}).Error; err != nil {
			return fmt.Errorf("create author participation: %w", err)
		}
		event.Location = *location
		return nil
	})
}

// EventUpdate carries the changed fields; nil leaves a field untouched.
type EventUpdate struct {
	Name        *string
	Description *string
	Datetime    *time.Time
	Duration    *int
	ActivityIDs []uint
	Location    *models.Location
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event, upd EventUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{}
		if upd.Name != nil {
			fields["name"] = *upd.Name
		}
		if upd.Description != nil {
			fields["description"] = *upd.Description
		}
		if upd.Datetime != nil {
			fields["datetime"] = *upd.Datetime
		}
		if upd.Duration != nil {
			fields["duration"] = *upd.Duration
		}

		var staleLocationID uint
		if upd.Location != nil {
			if err := tx.Create(upd.Location).Error; err != nil {
				return fmt.Errorf("create location: %w", err)
			}
			staleLocationID = event.LocationID
			fields["location_id"] = upd.Location.ID
		}

		if len(fields) > 0 {
			if err := tx.Model(event).Updates(fields).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return utils.NewConflict("This author already has an event with this name and date.")
				}
				return fmt.Errorf("update event: %w", err)
			}
		}

		if upd.ActivityIDs != nil {
			activities, err := loadActivities(tx, upd.ActivityIDs)
			if err != nil {
				return err
			}
			if err := tx.Where("event_id = ?", event.ID).Delete(&models.ActivityForEvent{}).Error; err != nil {
				return fmt.Errorf("clear event activities: %w", err)
			}
			if err := linkActivities(tx, event.ID, activities); err != nil {
				return err
			}
		}

		// Locations are never shared, so the replaced one goes.
		if staleLocationID != 0 {
			if err := tx.Delete(&models.Location{}, staleLocationID).Error; err != nil {
				return fmt.Errorf("delete old location: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the event and everything hanging off it.
func (r *EventRepository) Delete(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteEvents(tx, []uint{event.ID})
	})
}

func deleteEvents(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var locationIDs []uint
	if err := tx.Model(&models.Event{}).Where("id IN ?", ids).Pluck("location_id", &locationIDs).Error; err != nil {
		return err
	}

	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("event_id IN ?", ids)
	steps := []struct {
		model interface{}
		query string
		arg   interface{}
	}{
		{&models.Like{}, "comment_id IN (?)", commentIDs},
		{&models.Comment{}, "event_id IN ?", ids},
		{&models.Participation{}, "event_id IN ?", ids},
		{&models.FavoriteEvent{}, "event_id IN ?", ids},
		{&models.ActivityForEvent{}, "event_id IN ?", ids},
		{&models.Event{}, "id IN ?", ids},
		{&models.Location{}, "id IN ?", locationIDs},
	}
	for _, s := range steps {
		if err := tx.Where(s.query, s.arg).Delete(s.model).Error; err != nil {
			return fmt.Errorf("delete %T: %w", s.model, err)
		}
	}
	return nil
}

func linkActivities(tx *gorm.DB, eventID uint, activities []models.Activity) error {
	for _, a := range activities {
		if err := tx.Create(&models.ActivityForEvent{EventID: eventID, ActivityID: a.ID}).Error; err != nil {
			return fmt.Errorf("link activity %d: %w", a.ID, err)
		}
	}
	return nil
}

// loadActivities fetches activities by id and fails if any is unknown.
func loadActivities(tx *gorm.DB, ids []uint) ([]models.Activity, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var activities []models.Activity
	if err := tx.Where("id IN ?", unique).Order("name").Find(&activities).Error; err != nil {
		return nil, err
	}
	if len(activities) != len(unique) {
		found := make(map[uint]bool, len(activities))
		for _, a := range activities {
			found[a.ID] = true
		}
		fields := utils.FieldErrors{}
		for _, id := range unique {
			if !found[id] {
				fields.Add("activity", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
			}
		}
		return nil, fields.Err()
	}
	return activities, nil
}
