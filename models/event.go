// File: /models/event.go
package models

import (
	"time"
)

type Activity struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:124;uniqueIndex:idx_activities_name"`
}

type Event struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:124;uniqueIndex:unique_event,priority:1"`
	Description string    `json:"description" gorm:"not null;type:text"`
	Datetime    time.Time `json:"datetime" gorm:"column:datetime;not null;uniqueIndex:unique_event,priority:3;index"`
	Duration    int       `json:"duration" gorm:"not null"` // minutes
	AuthorID    uint      `json:"author_id" gorm:"not null;uniqueIndex:unique_event,priority:2;index"`
	LocationID  uint      `json:"location_id" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Author     User       `json:"-" gorm:"foreignKey:AuthorID"`
	Location   Location   `json:"-" gorm:"foreignKey:LocationID"`
	Activities []Activity `json:"-" gorm:"many2many:activity_for_events;joinForeignKey:EventID;joinReferences:ActivityID"`
}

// ActivityForEvent is the join row behind Event.Activities.
type ActivityForEvent struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	EventID    uint `json:"event_id" gorm:"not null;uniqueIndex:unique_activity_for_event"`
	ActivityID uint `json:"activity_id" gorm:"not null;uniqueIndex:unique_activity_for_event;index"`
}

func (ActivityForEvent) TableName() string {
	return "activity_for_events"
}

type Participation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:unique_participation"`
	EventID   uint      `json:"event_id" gorm:"not null;uniqueIndex:unique_participation;index"`
	CreatedAt time.Time `json:"created_at"`
}

type FavoriteEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:unique_favorite"`
	EventID   uint      `json:"event_id" gorm:"not null;uniqueIndex:unique_favorite;index"`
	CreatedAt time.Time `json:"created_at"`
}

// EventOrder is the default listing order.
const EventOrder = "events.datetime DESC, events.id DESC"

// ActivityIDs returns the ids of the preloaded activities.
func (e *Event) ActivityIDs() []uint {
	ids := make([]uint, 0, len(e.Activities))
	for _, a := range e.Activities {
		ids = append(ids, a.ID)
	}
	return ids
}
