// File: /controllers/event_controller.go
package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventhub-api/models"
	"eventhub-api/permissions"
	"eventhub-api/repositories"
	"eventhub-api/services"
	"eventhub-api/utils"
)

type EventController struct {
	events    *services.EventService
	relations *services.RelationService
	enforcer  *permissions.Enforcer
	pageSize  int
}

func NewEventController(events *services.EventService, relations *services.RelationService, enforcer *permissions.Enforcer, pageSize int) *EventController {
	return &EventController{events: events, relations: relations, enforcer: enforcer, pageSize: pageSize}
}

// parseEventFilter reads the event list query parameters. now is captured
// once so the actual/past split is consistent within the request.
func parseEventFilter(c *gin.Context, now time.Time) (repositories.EventFilter, error) {
	filter := repositories.EventFilter{
		Authors:    c.QueryArray("author"),
		Activities: c.QueryArray("activities"),
		Now:        now,
	}
	fields := utils.FieldErrors{}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"in_my_participation_list", &filter.InMyParticipationList},
		{"is_actual_participation", &filter.ActualParticipation},
		{"is_past_participation", &filter.PastParticipation},
	}
	// Participation filters apply whenever the parameter is present, false
	// included; the value itself only has to be a valid boolean.
	for _, b := range bools {
		_, present, err := parseBool(c.Query(b.name))
		if err != nil {
			fields.Add(b.name, "Must be a valid boolean.")
			continue
		}
		*b.dst = present
	}

	numbers := []struct {
		name string
		dst  *bool
	}{
		{"is_actual_event", &filter.ActualEvent},
		{"is_past_event", &filter.PastEvent},
	}
	for _, n := range numbers {
		raw := strings.TrimSpace(c.Query(n.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields.Add(n.name, "Enter a number.")
			continue
		}
		*n.dst = v != 0
	}

	return filter, fields.Err()
}

func (ec *EventController) GetEvents(c *gin.Context) {
	if _, err := authorize(c, ec.enforcer, permissions.NoOwner, permissions.ResourceEvent, "list"); err != nil {
		utils.RespondError(c, err)
		return
	}
	filter, err := parseEventFilter(c, time.Now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page, err := utils.ParsePage(c, ec.pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	events, total, err := ec.events.List(c.Request.Context(), viewerID(c), filter, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SendPaginated(c, events, page, total)
}

func (ec *EventController) CreateEvent(c *gin.Context) {
	user, err := authorize(c, ec.enforcer, permissions.NoOwner, permissions.ResourceEvent, "create")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req models.EventRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	event, err := ec.events.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (ec *EventController) GetEvent(c *gin.Context) {
	if _, err := authorize(c, ec.enforcer, permissions.NoOwner, permissions.ResourceEvent, "retrieve"); err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	event, err := ec.events.Retrieve(c.Request.Context(), viewerID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UpdateEvent serves PUT and PATCH; PATCH leaves omitted fields untouched.
func (ec *EventController) UpdateEvent(c *gin.Context) {
	event, ok := ec.loadOwned(c, "update")
	if !ok {
		return
	}

	var req models.EventRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	partial := c.Request.Method == http.MethodPatch
	updated, err := ec.events.Update(c.Request.Context(), viewerID(c), event, req, partial)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (ec *EventController) DeleteEvent(c *gin.Context) {
	event, ok := ec.loadOwned(c, "delete")
	if !ok {
		return
	}
	if err := ec.events.Delete(c.Request.Context(), event); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// loadOwned loads the event and checks action against its author. A missing
// event is a 404 regardless of who asks.
func (ec *EventController) loadOwned(c *gin.Context, action string) (*models.Event, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	event, err := ec.events.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	if _, err := authorize(c, ec.enforcer, event.AuthorID, permissions.ResourceEvent, action); err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return event, true
}

func (ec *EventController) AddFavorite(c *gin.Context) {
	ec.toggle(c, "favorite", true, ec.relations.SetFavoriteEvent)
}

func (ec *EventController) RemoveFavorite(c *gin.Context) {
	ec.toggle(c, "favorite", false, ec.relations.SetFavoriteEvent)
}

func (ec *EventController) Participate(c *gin.Context) {
	ec.toggle(c, "participate", true, ec.relations.SetParticipation)
}

func (ec *EventController) Leave(c *gin.Context) {
	ec.toggle(c, "participate", false, ec.relations.SetParticipation)
}

type eventToggle func(ctx context.Context, userID, eventID uint, on bool) (*models.EventResponse, error)

func (ec *EventController) toggle(c *gin.Context, action string, on bool, set eventToggle) {
	user, err := authorize(c, ec.enforcer, permissions.NoOwner, permissions.ResourceEvent, action)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	event, err := set(c.Request.Context(), user.ID, id, on)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !on {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, event)
}
